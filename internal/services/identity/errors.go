package identity

import (
	"errors"
	"fmt"
)

// ErrAnonymous is returned for an empty user id. Anonymous broker clients
// have no identity to resolve.
var ErrAnonymous = errors.New("anonymous user has no identity")

// Cause classifies why a resolution failed. Callers treat every cause the
// same way; the distinction exists for logs, traces and metrics.
type Cause string

const (
	CauseStore            Cause = "store"
	CauseProviderAuth     Cause = "provider_auth"
	CauseProviderLookup   Cause = "provider_lookup"
	CauseIdentityNotFound Cause = "identity_not_found"
	CauseProvisioning     Cause = "provisioning"
)

func (c Cause) summary() string {
	switch c {
	case CauseStore:
		return "directory lookup failed"
	case CauseProviderAuth:
		return "identity provider login failed"
	case CauseProviderLookup:
		return "identity provider lookup failed"
	case CauseIdentityNotFound:
		return "identity not found"
	case CauseProvisioning:
		return "provisioning failed"
	default:
		return "resolution failed"
	}
}

// ResolutionError is the single failure type returned by Resolver.Resolve.
type ResolutionError struct {
	Cause  Cause
	UserID string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Cause.summary(), e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// CauseOf returns the resolution cause carried by err, or "" when err is
// not a resolution failure.
func CauseOf(err error) Cause {
	var rerr *ResolutionError
	if errors.As(err, &rerr) {
		return rerr.Cause
	}
	return ""
}
