// Package entitlement decides whether a resolved user may use a channel.
package entitlement

import (
	"context"

	"github.com/fedya-eremin/ms-ws/internal/db/models"
	"github.com/fedya-eremin/ms-ws/internal/repository"
)

// Checker evaluates channel grants for resolved users. A false result means
// "not entitled"; errors are reserved for store failures.
type Checker struct {
	directory repository.Directory
}

// NewChecker constructs a checker reading grants from directory.
func NewChecker(directory repository.Directory) *Checker {
	return &Checker{directory: directory}
}

// CanSubscribe reports whether user holds any grant on channel.
// Disabled users are never entitled and cost no store round trip.
func (c *Checker) CanSubscribe(ctx context.Context, user *models.User, channel string) (bool, error) {
	if !user.Enabled {
		return false, nil
	}

	channels, err := c.directory.ListChannels(ctx, user.ID)
	if err != nil {
		return false, err
	}
	for _, ch := range channels {
		if ch.Name == channel {
			return true, nil
		}
	}
	return false, nil
}

// CanPublish reports whether user holds a publish grant on channel.
func (c *Checker) CanPublish(ctx context.Context, user *models.User, channel string) (bool, error) {
	if !user.Enabled {
		return false, nil
	}
	return c.directory.CanPublish(ctx, user.ID, channel)
}
