// Package errs contains errors shared across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountBusy indicates another tab holds a fresh lease on the account.
	ErrAccountBusy = errors.New("This account is already active in another tab")

	// ErrAccountNotFound indicates no cached credential exists for the email.
	ErrAccountNotFound = errors.New("Account not found")

	// ErrNoActiveAccount indicates the tab is not logged in.
	ErrNoActiveAccount = errors.New("no active account")

	// ErrInvalidInvoice indicates the invoice payload failed local validation.
	ErrInvalidInvoice = errors.New("invalid invoice")
)

// StorageError wraps a failed read or write against the persistent or tab store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError, passing nil through.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
