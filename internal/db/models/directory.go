package models

import "github.com/uptrace/bun"

// User is the local projection of an identity provider account.
// ID is the provider subject and never changes once provisioned.
type User struct {
	bun.BaseModel `bun:"table:user,alias:u"`

	ID         string `bun:"id,pk"`
	Username   string `bun:"username,notnull"`
	GivenName  string `bun:"given_name,notnull,default:''"`
	FamilyName string `bun:"family_name,notnull,default:''"`
	Enabled    bool   `bun:"enabled,notnull,default:false"`
}

// Channel is a named broker topic. Name is the wire name carried in proxy requests.
type Channel struct {
	bun.BaseModel `bun:"table:channel,alias:c"`

	ID      string `bun:"id,pk"`
	Name    string `bun:"channel,notnull,unique"`
	Title   string `bun:"title,notnull,default:''"`
	Default bool   `bun:"default,notnull,default:false"`
}

// Grant entitles a user on a channel. Any grant allows subscribing;
// publishing additionally requires CanPublish.
type Grant struct {
	bun.BaseModel `bun:"table:user_channel,alias:uc"`

	UserID     string `bun:"user_id,pk"`
	ChanID     string `bun:"chan_id,pk"`
	CanPublish bool   `bun:"can_publish,notnull,default:false"`

	User    *User    `bun:"rel:belongs-to,join:user_id=id"`
	Channel *Channel `bun:"rel:belongs-to,join:chan_id=id"`
}
