// Package lease coordinates which cached account each tab presents as logged in.
//
// Accounts and leases live in storage shared by every tab; the tab identity and
// the active account pointer live in the tab's own store. A tab claims an
// account by writing an occupancy record and keeps the claim fresh with a
// heartbeat. A claim older than the lease TTL is stale and may be taken over
// by any tab, which covers tabs that died without releasing.
//
// Shared maps are updated with plain read-modify-write; concurrent writers
// from different tabs race and the last write wins. Leases are advisory and
// heal through the TTL.
package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/msana/internal/model"
)

const (
	DefaultLeaseTTL          = 8 * time.Second
	DefaultHeartbeatInterval = 4 * time.Second
)

// Store is the shared persistent state the manager reads and writes.
type Store interface {
	LoadAccounts(ctx context.Context) (map[string]model.AccountRecord, error)
	SaveAccounts(ctx context.Context, accounts map[string]model.AccountRecord) error
	LoadOccupancy(ctx context.Context) (map[string]model.OccupancyRecord, error)
	SaveOccupancy(ctx context.Context, occupancy map[string]model.OccupancyRecord) error
}

// Config tunes the lease protocol.
type Config struct {
	LeaseTTL          time.Duration
	HeartbeatInterval time.Duration
	// ClearIdentityOnFreshNavigation makes a fresh navigation start as a new
	// tab, so a duplicated tab cannot inherit the original's session.
	ClearIdentityOnFreshNavigation bool
}

func (c Config) withDefaults() Config {
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = DefaultLeaseTTL
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return c
}

// NavigationType says how the tab was (re)started.
type NavigationType string

const (
	Navigate    NavigationType = "navigate"
	Reload      NavigationType = "reload"
	BackForward NavigationType = "back_forward"
)

// ParseNavigation validates a navigation type string.
func ParseNavigation(s string) (NavigationType, error) {
	switch NavigationType(s) {
	case Navigate, Reload, BackForward:
		return NavigationType(s), nil
	default:
		return "", fmt.Errorf("invalid navigation type %q: want navigate, reload or back_forward", s)
	}
}

// Change is the payload of session.* bus events.
type Change struct {
	Email string
	TabID string
}
