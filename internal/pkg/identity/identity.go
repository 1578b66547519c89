// Package identity abstracts the identity provider the assignment flow
// consumes: account creation, lookup by email, and password-reset dispatch.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrAccountNotFound is returned by FindAccountByEmail for unknown emails.
	ErrAccountNotFound = errors.New("identity account not found")
	// ErrAccountExists is returned by CreateAccount when the email is taken.
	ErrAccountExists = errors.New("identity account already exists")
)

// Provider is the identity provider consumed by the core.
type Provider interface {
	// CreateAccount creates an account and returns its identifier.
	CreateAccount(ctx context.Context, email, password string) (string, error)
	// FindAccountByEmail returns the account identifier for an email, or
	// ErrAccountNotFound.
	FindAccountByEmail(ctx context.Context, email string) (string, error)
	// SendPasswordReset issues a password-reset dispatch for an existing
	// account without touching its credential.
	SendPasswordReset(ctx context.Context, email string) error
}
