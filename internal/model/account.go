// Package model defines the records shared by the lease manager, the invoice queue and the
// control API.
package model

import "time"

// User is the profile the billing API returns on login.
type User struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool { return u.Role == "admin" }

// AccountRecord is a locally cached credential, one per email.
type AccountRecord struct {
	Email    string    `json:"email"`
	User     User      `json:"user"`
	Token    string    `json:"token"`
	LastUsed time.Time `json:"lastUsed"`
}

// OccupancyRecord is a tab's lease on one account.
type OccupancyRecord struct {
	TabID    string    `json:"tabId"`
	LastSeen time.Time `json:"lastSeen"`
}

// Stale reports whether the lease has gone unrenewed for longer than ttl.
func (o OccupancyRecord) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(o.LastSeen) > ttl
}

// AccountSummary is what an account switcher shows for each cached account.
type AccountSummary struct {
	User           User      `json:"user"`
	LastUsed       time.Time `json:"lastUsed"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt,omitzero"`
	Active         bool      `json:"active"`
}
