package migrations

import (
	"context"
	"fmt"

	"github.com/fedya-eremin/ms-ws/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20240601000000, down_20240601000000)
}

// up_20240601000000 creates the user, channel and user_channel tables
func up_20240601000000(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{(*models.User)(nil), (*models.Channel)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create %T table: %w", model, err)
		}
	}

	_, err := db.NewCreateTable().
		Model((*models.Grant)(nil)).
		IfNotExists().
		WithForeignKeys().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create user_channel table: %w", err)
	}

	// Subscribe checks list a user's grants; membership listings scan by channel.
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_user_channel_chan_id ON user_channel(chan_id)`)
	if err != nil {
		return fmt.Errorf("failed to create user_channel chan_id index: %w", err)
	}

	if IsPostgreSQL(db) {
		_, err = db.ExecContext(ctx, `COMMENT ON COLUMN channel."default" IS 'informational; entitlement is granted through user_channel only'`)
		if err != nil {
			return fmt.Errorf("failed to comment channel.default: %w", err)
		}
	}

	return nil
}

// down_20240601000000 drops the directory tables in dependency order
func down_20240601000000(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{(*models.Grant)(nil), (*models.Channel)(nil), (*models.User)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop %T table: %w", model, err)
		}
	}
	return nil
}
