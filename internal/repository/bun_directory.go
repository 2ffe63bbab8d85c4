package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/fedya-eremin/ms-ws/internal/db/models"
)

var (
	_ Directory    = (*BunDirectory)(nil)
	_ ChannelAdmin = (*BunDirectory)(nil)
)

// BunDirectory implements Directory and ChannelAdmin using Bun ORM
type BunDirectory struct {
	db *bun.DB
}

// NewBunDirectory creates a new Bun-based directory
func NewBunDirectory(db *bun.DB) *BunDirectory {
	return &BunDirectory{db: db}
}

// FindUserByID retrieves a user by provider subject. A missing row is not an error.
func (r *BunDirectory) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by ID: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user. A duplicate id yields ErrUserExists.
func (r *BunDirectory) CreateUser(ctx context.Context, user *models.User) error {
	_, err := r.db.NewInsert().
		Model(user).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", user.ID, ErrUserExists)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// ListChannels returns every channel the user holds a grant on.
func (r *BunDirectory) ListChannels(ctx context.Context, userID string) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.NewSelect().
		Model(&channels).
		Join("JOIN user_channel AS uc ON uc.chan_id = c.id").
		Where("uc.user_id = ?", userID).
		Order("c.channel ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels for user: %w", err)
	}
	return channels, nil
}

// CanPublish reports whether a publish-enabled grant exists for the user on the named channel.
func (r *BunDirectory) CanPublish(ctx context.Context, userID, channel string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.Grant)(nil)).
		Join("JOIN channel AS c ON c.id = uc.chan_id").
		Where("uc.user_id = ?", userID).
		Where("c.channel = ?", channel).
		Where("uc.can_publish = ?", true).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check publish grant: %w", err)
	}
	return exists, nil
}

// CreateChannel inserts a new channel.
func (r *BunDirectory) CreateChannel(ctx context.Context, channel *models.Channel) error {
	_, err := r.db.NewInsert().
		Model(channel).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	return nil
}

// FindChannelByName retrieves a channel by its wire name.
func (r *BunDirectory) FindChannelByName(ctx context.Context, name string) (*models.Channel, error) {
	channel := new(models.Channel)
	err := r.db.NewSelect().
		Model(channel).
		Where("c.channel = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, name)
		}
		return nil, fmt.Errorf("get channel by name: %w", err)
	}
	return channel, nil
}

// ListAllChannels retrieves all channels ordered by name.
func (r *BunDirectory) ListAllChannels(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.NewSelect().
		Model(&channels).
		Order("c.channel ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

// ListChannelUsers returns every user holding a grant on the channel.
func (r *BunDirectory) ListChannelUsers(ctx context.Context, chanID string) ([]models.User, error) {
	var users []models.User
	err := r.db.NewSelect().
		Model(&users).
		Join("JOIN user_channel AS uc ON uc.user_id = u.id").
		Where("uc.chan_id = ?", chanID).
		Order("u.username ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users for channel: %w", err)
	}
	return users, nil
}

// UpsertGrant creates the grant or updates its publish flag.
func (r *BunDirectory) UpsertGrant(ctx context.Context, grant *models.Grant) error {
	_, err := r.db.NewInsert().
		Model(grant).
		On("CONFLICT (user_id, chan_id) DO UPDATE").
		Set("can_publish = EXCLUDED.can_publish").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert grant: %w", err)
	}
	return nil
}

// isUniqueViolation recognises duplicate-key failures from both supported drivers.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
