package repository

import (
	"context"
	"errors"

	"github.com/fedya-eremin/ms-ws/internal/db/models"
)

// ErrUserExists is returned by CreateUser when the id is already taken.
var ErrUserExists = errors.New("user already exists")

// ErrChannelNotFound is returned by admin lookups of an unknown channel name.
var ErrChannelNotFound = errors.New("channel not found")

// Directory is the read path of the system-of-record store used by the
// authorization pipeline. Every call goes to the store; nothing is cached.
type Directory interface {
	// FindUserByID returns (nil, nil) when the user is absent.
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	ListChannels(ctx context.Context, userID string) ([]models.Channel, error)
	CanPublish(ctx context.Context, userID, channel string) (bool, error)
}

// ChannelAdmin exposes the channel and grant writes used by the admin CLI.
// The authorization pipeline never depends on it.
type ChannelAdmin interface {
	CreateChannel(ctx context.Context, channel *models.Channel) error
	FindChannelByName(ctx context.Context, name string) (*models.Channel, error)
	ListAllChannels(ctx context.Context) ([]models.Channel, error)
	ListChannelUsers(ctx context.Context, chanID string) ([]models.User, error)
	UpsertGrant(ctx context.Context, grant *models.Grant) error
}
