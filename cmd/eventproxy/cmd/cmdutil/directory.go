package cmdutil

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/fedya-eremin/ms-ws/internal/config"
	"github.com/fedya-eremin/ms-ws/internal/db/bunx"
	"github.com/fedya-eremin/ms-ws/internal/repository"
)

// DirectoryBundle bundles the directory with its DB connection.
type DirectoryBundle struct {
	Directory *repository.BunDirectory
	DB        *bun.DB
}

// Close releases the underlying database connection.
func (b *DirectoryBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	_ = bunx.Close(b.DB)
}

// OpenDirectory loads configuration and connects the directory for admin
// commands. Keycloak settings are not checked.
func OpenDirectory(ctx context.Context) (*config.Config, *DirectoryBundle, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := bunx.NewDB(ctx, cfg.DatabaseURL, bunx.Options{MaxOpenConns: 2})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, &DirectoryBundle{Directory: repository.NewBunDirectory(db), DB: db}, nil
}
