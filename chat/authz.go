package chat

import (
	"context"
	"database/sql"
	"errors"

	"concord/db"
)

var ErrNotMember = errors.New("user is not a member of the channel's server")

// Authorizer decides whether a user may subscribe to or post into a channel.
// The reference behavior trusts the client outright; AllowAll preserves that,
// MembershipAuthorizer actually checks the membership table.
type Authorizer interface {
	CanSubscribe(ctx context.Context, userID, channelID int64) error
	CanPost(ctx context.Context, userID, channelID int64) error
}

type AllowAll struct{}

func (AllowAll) CanSubscribe(context.Context, int64, int64) error { return nil }
func (AllowAll) CanPost(context.Context, int64, int64) error      { return nil }

// MembershipAuthorizer requires the user to be a member of the server the
// channel belongs to.
type MembershipAuthorizer struct{}

func (MembershipAuthorizer) CanSubscribe(ctx context.Context, userID, channelID int64) error {
	return checkMembership(ctx, userID, channelID)
}

func (MembershipAuthorizer) CanPost(ctx context.Context, userID, channelID int64) error {
	return checkMembership(ctx, userID, channelID)
}

func checkMembership(ctx context.Context, userID, channelID int64) error {
	var memberID int64
	err := db.DB.QueryRowContext(ctx,
		`SELECT server_members.id FROM server_members
		 JOIN channels ON channels.server_id = server_members.server_id
		 WHERE channels.id = ? AND server_members.user_id = ?`,
		channelID, userID).Scan(&memberID)
	if err == sql.ErrNoRows {
		return ErrNotMember
	}
	return err
}
