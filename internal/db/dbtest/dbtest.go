// Package dbtest provides migrated in-memory SQLite databases and fixture
// helpers for package tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/fedya-eremin/ms-ws/internal/db/bunx"
	"github.com/fedya-eremin/ms-ws/internal/db/models"
	"github.com/fedya-eremin/ms-ws/internal/migrations"
)

// NewSQLite opens a private in-memory database with all migrations applied.
// The database is closed when the test ends.
func NewSQLite(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	db, err := bunx.NewDB(ctx, ":memory:", bunx.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return db
}

// InsertUser stores u as-is.
func InsertUser(t *testing.T, db *bun.DB, u *models.User) {
	t.Helper()
	_, err := db.NewInsert().Model(u).Exec(context.Background())
	require.NoError(t, err)
}

// InsertChannel stores a channel with the given wire name and returns it.
func InsertChannel(t *testing.T, db *bun.DB, name string) *models.Channel {
	t.Helper()
	ch := &models.Channel{ID: bunx.NewUUIDv7(), Name: name, Title: name}
	_, err := db.NewInsert().Model(ch).Exec(context.Background())
	require.NoError(t, err)
	return ch
}

// InsertGrant entitles userID on ch.
func InsertGrant(t *testing.T, db *bun.DB, userID string, ch *models.Channel, canPublish bool) {
	t.Helper()
	g := &models.Grant{UserID: userID, ChanID: ch.ID, CanPublish: canPublish}
	_, err := db.NewInsert().Model(g).Exec(context.Background())
	require.NoError(t, err)
}
