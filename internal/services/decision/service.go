// Package decision answers the broker's publish and subscribe checks.
package decision

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fedya-eremin/ms-ws/internal/db/models"
	"github.com/fedya-eremin/ms-ws/internal/logging"
	"github.com/fedya-eremin/ms-ws/internal/services/identity"
	"github.com/fedya-eremin/ms-ws/internal/telemetry"
)

// Operation names the broker action being authorized.
type Operation string

const (
	OperationPublish   Operation = "publish"
	OperationSubscribe Operation = "subscribe"
)

// Resolver provides the local record for a broker user id.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (*models.User, error)
}

// Checker evaluates channel entitlements for a resolved user.
type Checker interface {
	CanPublish(ctx context.Context, user *models.User, channel string) (bool, error)
	CanSubscribe(ctx context.Context, user *models.User, channel string) (bool, error)
}

type predicate func(ctx context.Context, user *models.User, channel string) (bool, error)

// Service runs resolve-then-check and folds every outcome into a Decision.
// It never returns an error: infrastructure faults become temporary 500
// denials and missing entitlements become permanent 403 denials.
type Service struct {
	resolver Resolver
	checker  Checker
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

// NewService constructs a decision service.
func NewService(resolver Resolver, checker Checker) *Service {
	return &Service{
		resolver: resolver,
		checker:  checker,
		logger:   zap.NewNop(),
	}
}

// WithLogger sets the logger (optional).
func (s *Service) WithLogger(logger *zap.Logger) *Service {
	s.logger = logging.OrNop(logger)
	return s
}

// WithMetrics sets the metrics sink (optional).
func (s *Service) WithMetrics(metrics *telemetry.Metrics) *Service {
	s.metrics = metrics
	return s
}

// CheckPublish decides whether userID may publish to channel.
func (s *Service) CheckPublish(ctx context.Context, userID, channel string) Decision {
	return s.decide(ctx, OperationPublish, userID, channel, s.checker.CanPublish, MessagePublishForbidden)
}

// CheckSubscribe decides whether userID may subscribe to channel.
func (s *Service) CheckSubscribe(ctx context.Context, userID, channel string) Decision {
	return s.decide(ctx, OperationSubscribe, userID, channel, s.checker.CanSubscribe, MessageSubscriptionForbidden)
}

func (s *Service) decide(ctx context.Context, op Operation, userID, channel string, allowed predicate, refusal string) (d Decision) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerDecision, "decision.Check",
		attribute.String(telemetry.AttrOperation, string(op)),
		attribute.String(telemetry.AttrUserID, userID),
		attribute.String(telemetry.AttrChannel, channel),
	)
	defer span.End()

	var cause error
	defer func() {
		if rec := recover(); rec != nil {
			cause = fmt.Errorf("%s check panicked: %v", op, rec)
			d = internal(cause)
		}

		outcome := outcomeOf(d)
		span.SetAttributes(attribute.String(telemetry.AttrOutcome, outcome))
		telemetry.RecordError(span, cause)
		s.metrics.ObserveDecision(string(op), outcome)

		fields := []zap.Field{
			zap.String("operation", string(op)),
			zap.String("user_id", userID),
			zap.String("channel", channel),
			zap.String("outcome", outcome),
		}
		if denied, ok := d.(Denied); ok {
			fields = append(fields, zap.Int("code", denied.Code))
		}
		if cause != nil {
			fields = append(fields, zap.String("cause", string(identity.CauseOf(cause))), zap.Error(cause))
			s.logger.Error("authorization check failed", fields...)
			return
		}
		s.logger.Debug("authorization decided", fields...)
	}()

	user, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		cause = err
		return internal(err)
	}

	ok, err := allowed(ctx, user, channel)
	if err != nil {
		cause = fmt.Errorf("%s entitlement check: %w", op, err)
		return internal(cause)
	}
	if !ok {
		return forbidden(refusal)
	}
	return Allowed{}
}

func outcomeOf(d Decision) string {
	switch v := d.(type) {
	case Allowed:
		return telemetry.OutcomeAllowed
	case Denied:
		if v.Temporary {
			return telemetry.OutcomeError
		}
		return telemetry.OutcomeForbidden
	default:
		return telemetry.OutcomeError
	}
}
