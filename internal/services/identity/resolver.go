// Package identity guarantees that a local user record exists for an
// identity provider subject, provisioning it on first use.
package identity

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fedya-eremin/ms-ws/internal/db/models"
	"github.com/fedya-eremin/ms-ws/internal/idp"
	"github.com/fedya-eremin/ms-ws/internal/logging"
	"github.com/fedya-eremin/ms-ws/internal/repository"
	"github.com/fedya-eremin/ms-ws/internal/telemetry"
)

// Provisioning results reported to metrics.
const (
	provisionCreated = "created"
	provisionRaced   = "raced"
	provisionFailed  = "failed"
)

// Resolver implements get-or-provision over the directory and the identity
// provider. It keeps no state between calls: every directory miss goes to
// the provider with a fresh session.
//
// Concurrent first-touch resolutions of the same subject may both reach the
// provider and both attempt the insert. Only one insert wins; the loser
// re-reads the row and succeeds. No lock is taken.
type Resolver struct {
	directory repository.Directory
	provider  idp.Provider
	logger    *zap.Logger
	metrics   *telemetry.Metrics
}

// NewResolver constructs a resolver over the given directory and provider.
func NewResolver(directory repository.Directory, provider idp.Provider) *Resolver {
	return &Resolver{
		directory: directory,
		provider:  provider,
		logger:    zap.NewNop(),
	}
}

// WithLogger sets the logger (optional).
func (r *Resolver) WithLogger(logger *zap.Logger) *Resolver {
	r.logger = logging.OrNop(logger)
	return r
}

// WithMetrics sets the metrics sink (optional).
func (r *Resolver) WithMetrics(metrics *telemetry.Metrics) *Resolver {
	r.metrics = metrics
	return r
}

// Resolve returns the local record for userID, provisioning it from the
// identity provider when the directory has none. Failures are always
// *ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIdentity, "identity.Resolve",
		attribute.String(telemetry.AttrUserID, userID),
	)
	defer span.End()

	user, err := r.resolve(ctx, userID)
	if err != nil {
		cause := CauseOf(err)
		span.SetAttributes(attribute.String(telemetry.AttrResolutionCause, string(cause)))
		telemetry.RecordError(span, err)
		r.logger.Warn("user resolution failed",
			zap.String("user_id", userID),
			zap.String("cause", string(cause)),
			zap.Error(err),
		)
		return nil, err
	}
	return user, nil
}

func (r *Resolver) resolve(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, &ResolutionError{Cause: CauseIdentityNotFound, UserID: userID, Err: ErrAnonymous}
	}

	user, err := r.directory.FindUserByID(ctx, userID)
	if err != nil {
		return nil, &ResolutionError{Cause: CauseStore, UserID: userID, Err: err}
	}
	if user != nil {
		return user, nil
	}

	return r.provision(ctx, userID)
}

func (r *Resolver) provision(ctx context.Context, userID string) (*models.User, error) {
	span := trace.SpanFromContext(ctx)
	telemetry.AddEvent(span, "identity.provision")

	session, err := r.provider.Authenticate(ctx)
	if err != nil {
		return nil, &ResolutionError{Cause: CauseProviderAuth, UserID: userID, Err: err}
	}

	remote, err := session.FindUser(ctx, userID)
	if err != nil {
		cause := CauseProviderLookup
		if errors.Is(err, idp.ErrUserNotFound) {
			cause = CauseIdentityNotFound
		}
		return nil, &ResolutionError{Cause: cause, UserID: userID, Err: err}
	}

	createErr := r.directory.CreateUser(ctx, &models.User{
		ID:         userID,
		Username:   remote.Username,
		GivenName:  remote.FirstName,
		FamilyName: remote.LastName,
		Enabled:    remote.Enabled,
	})

	// Re-read in both cases: after a successful insert it returns the stored
	// row, after a failed one it tells whether a concurrent resolver won.
	stored, readErr := r.directory.FindUserByID(ctx, userID)
	switch {
	case readErr != nil:
		r.metrics.ObserveProvisioning(provisionFailed)
		return nil, &ResolutionError{Cause: CauseProvisioning, UserID: userID, Err: errors.Join(createErr, readErr)}
	case stored == nil && createErr != nil:
		r.metrics.ObserveProvisioning(provisionFailed)
		return nil, &ResolutionError{Cause: CauseProvisioning, UserID: userID, Err: createErr}
	case stored == nil:
		r.metrics.ObserveProvisioning(provisionFailed)
		return nil, &ResolutionError{Cause: CauseProvisioning, UserID: userID, Err: fmt.Errorf("user %s missing after create", userID)}
	case createErr != nil:
		r.metrics.ObserveProvisioning(provisionRaced)
		telemetry.AddEvent(span, "identity.provision.raced")
		r.logger.Info("lost provisioning race, using stored user",
			zap.String("user_id", userID),
			zap.NamedError("create_error", createErr),
		)
		return stored, nil
	default:
		r.metrics.ObserveProvisioning(provisionCreated)
		r.logger.Info("provisioned user from identity provider",
			zap.String("user_id", userID),
			zap.String("username", stored.Username),
			zap.Bool("enabled", stored.Enabled),
		)
		return stored, nil
	}
}
