package decision

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap/zaptest"

	"github.com/fedya-eremin/ms-ws/internal/db/dbtest"
	"github.com/fedya-eremin/ms-ws/internal/db/models"
	"github.com/fedya-eremin/ms-ws/internal/idp"
	"github.com/fedya-eremin/ms-ws/internal/repository"
	"github.com/fedya-eremin/ms-ws/internal/services/entitlement"
	"github.com/fedya-eremin/ms-ws/internal/services/identity"
	"github.com/fedya-eremin/ms-ws/internal/telemetry"
)

var (
	_ Resolver = (*identity.Resolver)(nil)
	_ Checker  = (*entitlement.Checker)(nil)
)

type mapProvider map[string]idp.User

func (p mapProvider) Authenticate(context.Context) (idp.Session, error) { return p, nil }

func (p mapProvider) FindUser(_ context.Context, id string) (*idp.User, error) {
	u, ok := p[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", idp.ErrUserNotFound, id)
	}
	return &u, nil
}

type pipeline struct {
	db  *bun.DB
	dir *repository.BunDirectory
	svc *Service
	reg *prometheus.Registry
}

func newPipeline(t *testing.T, provider idp.Provider) *pipeline {
	t.Helper()
	db := dbtest.NewSQLite(t)
	dir := repository.NewBunDirectory(db)
	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(reg)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	resolver := identity.NewResolver(dir, provider).WithLogger(logger)
	svc := NewService(resolver, entitlement.NewChecker(dir)).
		WithLogger(logger).
		WithMetrics(metrics)

	return &pipeline{db: db, dir: dir, svc: svc, reg: reg}
}

func TestService_FirstTouchSubscribe(t *testing.T) {
	p := newPipeline(t, mapProvider{
		"u1": {ID: "u1", Username: "alice", FirstName: "Alice", LastName: "A", Enabled: true},
	})
	ctx := context.Background()

	// Seed the grant ahead of the user row.
	_, err := p.db.ExecContext(ctx, "PRAGMA foreign_keys = OFF")
	require.NoError(t, err)
	general := dbtest.InsertChannel(t, p.db, "general")
	dbtest.InsertGrant(t, p.db, "u1", general, false)

	assert.Equal(t, Allowed{}, p.svc.CheckSubscribe(ctx, "u1", "general"))

	stored, err := p.dir.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &models.User{ID: "u1", Username: "alice", GivenName: "Alice", FamilyName: "A", Enabled: true}, stored)
}

func TestService_GrantExactness(t *testing.T) {
	p := newPipeline(t, mapProvider{})
	dbtest.InsertUser(t, p.db, &models.User{ID: "u", Username: "una", Enabled: true})
	news := dbtest.InsertChannel(t, p.db, "news")
	dbtest.InsertGrant(t, p.db, "u", news, false)
	ctx := context.Background()

	assert.Equal(t, Allowed{}, p.svc.CheckSubscribe(ctx, "u", "news"))
	assert.Equal(t, Denied{Code: 403, Message: "Publish forbidden", Temporary: false}, p.svc.CheckPublish(ctx, "u", "news"))
	assert.Equal(t, Denied{Code: 403, Message: "Subscription forbidden", Temporary: false}, p.svc.CheckSubscribe(ctx, "u", "sports"))

	assert.Equal(t, 1.0, p.decisions(t, OperationSubscribe, telemetry.OutcomeAllowed))
	assert.Equal(t, 1.0, p.decisions(t, OperationSubscribe, telemetry.OutcomeForbidden))
	assert.Equal(t, 1.0, p.decisions(t, OperationPublish, telemetry.OutcomeForbidden))
}

func TestService_DisabledUser(t *testing.T) {
	p := newPipeline(t, mapProvider{
		"off": {ID: "off", Username: "mallory"},
	})
	ctx := context.Background()

	// Provisioned with enabled defaulted to false.
	assert.Equal(t, Denied{Code: 403, Message: "Publish forbidden"}, p.svc.CheckPublish(ctx, "off", "general"))

	general := dbtest.InsertChannel(t, p.db, "general")
	dbtest.InsertGrant(t, p.db, "off", general, true)

	assert.Equal(t, Denied{Code: 403, Message: "Publish forbidden"}, p.svc.CheckPublish(ctx, "off", "general"))
	assert.Equal(t, Denied{Code: 403, Message: "Subscription forbidden"}, p.svc.CheckSubscribe(ctx, "off", "general"))
}

func TestService_UnknownIdentity(t *testing.T) {
	p := newPipeline(t, mapProvider{})
	dbtest.InsertChannel(t, p.db, "general")
	ctx := context.Background()

	for _, d := range []Decision{
		p.svc.CheckPublish(ctx, "ghost", "general"),
		p.svc.CheckSubscribe(ctx, "ghost", "general"),
	} {
		denied, ok := d.(Denied)
		require.True(t, ok, "expected Denied, got %T", d)
		assert.Equal(t, 500, denied.Code)
		assert.True(t, denied.Temporary)
		assert.Contains(t, denied.Message, "identity not found")
	}

	stored, err := p.dir.FindUserByID(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.Equal(t, 1.0, p.decisions(t, OperationPublish, telemetry.OutcomeError))
	assert.Equal(t, 1.0, p.decisions(t, OperationSubscribe, telemetry.OutcomeError))
}

type stubResolver struct {
	user *models.User
	err  error
	boom bool
}

func (r stubResolver) Resolve(context.Context, string) (*models.User, error) {
	if r.boom {
		panic("nil map write")
	}
	return r.user, r.err
}

type stubChecker struct {
	ok  bool
	err error
}

func (c stubChecker) CanPublish(context.Context, *models.User, string) (bool, error) {
	return c.ok, c.err
}

func (c stubChecker) CanSubscribe(context.Context, *models.User, string) (bool, error) {
	return c.ok, c.err
}

func TestService_InternalFailuresAreTemporary(t *testing.T) {
	alice := &models.User{ID: "u1", Enabled: true}

	tests := []struct {
		name     string
		resolver stubResolver
		checker  stubChecker
		message  string
	}{
		{
			name:     "resolution failure",
			resolver: stubResolver{err: &identity.ResolutionError{Cause: identity.CauseProviderAuth, UserID: "u1", Err: idp.ErrAuthentication}},
			message:  "identity provider login failed: identity provider authentication failed",
		},
		{
			name:     "entitlement store failure",
			resolver: stubResolver{user: alice},
			checker:  stubChecker{err: errors.New("connection reset by peer")},
			message:  "entitlement check: connection reset by peer",
		},
		{
			name:     "panic in pipeline",
			resolver: stubResolver{boom: true},
			message:  "check panicked: nil map write",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.resolver, tt.checker).WithLogger(zaptest.NewLogger(t))

			for _, d := range []Decision{
				svc.CheckPublish(context.Background(), "u1", "news"),
				svc.CheckSubscribe(context.Background(), "u1", "news"),
			} {
				denied, ok := d.(Denied)
				require.True(t, ok)
				assert.Equal(t, CodeInternal, denied.Code)
				assert.True(t, denied.Temporary)
				assert.Contains(t, denied.Message, tt.message)
			}
		})
	}
}

func TestService_AllowedWhenEntitled(t *testing.T) {
	svc := NewService(stubResolver{user: &models.User{ID: "u1", Enabled: true}}, stubChecker{ok: true})

	assert.Equal(t, Allowed{}, svc.CheckPublish(context.Background(), "u1", "news"))
	assert.Equal(t, Allowed{}, svc.CheckSubscribe(context.Background(), "u1", "news"))
}

// decisions reads eventproxy_decisions_total for one label pair.
func (p *pipeline) decisions(t *testing.T, op Operation, outcome string) float64 {
	t.Helper()
	families, err := p.reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "eventproxy_decisions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["operation"] == string(op) && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
