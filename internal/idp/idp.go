// Package idp defines the identity provider contract consumed by user
// provisioning. Implementations live in subpackages.
package idp

import (
	"context"
	"errors"
)

var (
	// ErrUserNotFound means the provider has no account with the requested id.
	ErrUserNotFound = errors.New("user not found in identity provider")

	// ErrAuthentication means the service account could not log in.
	ErrAuthentication = errors.New("identity provider authentication failed")
)

// User is the provider's view of an account. Optional provider attributes
// are already defaulted: empty names and Enabled=false when absent.
type User struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Enabled   bool
}

// Provider opens service-account sessions against the identity provider.
type Provider interface {
	Authenticate(ctx context.Context) (Session, error)
}

// Session is a short-lived authenticated handle. Sessions are not shared
// between resolutions.
type Session interface {
	FindUser(ctx context.Context, id string) (*User, error)
}
