package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/jibe/internal/platform/errors"
)

const (
	// DefaultDisplayName is used when a caller has no display name.
	DefaultDisplayName = "Jibe Player"
	// DefaultAvatar is the gravatar robohash placeholder.
	DefaultAvatar = "https://www.gravatar.com/avatar?d=robohash&s=200"
)

// Profile is the caller identity attached to a player.
type Profile struct {
	UserID      string
	DisplayName string
	Avatar      string
}

// Normalize trims fields and fills display defaults.
func (p Profile) Normalize() (Profile, error) {
	p.UserID = strings.TrimSpace(p.UserID)
	if p.UserID == "" {
		return p, apperrors.New(apperrors.CodePlayerEmptyUserID, "user id is required")
	}
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if p.DisplayName == "" {
		p.DisplayName = DefaultDisplayName
	}
	p.Avatar = strings.TrimSpace(p.Avatar)
	if p.Avatar == "" {
		p.Avatar = DefaultAvatar
	}
	return p, nil
}

// Player is a member of a session.
type Player struct {
	SessionID   string
	UserID      string
	DisplayName string
	Avatar      string
	Number      int
	Score       int
	JoinedAt    time.Time
}

// Profile returns the identity fields of the player.
func (p Player) Profile() Profile {
	return Profile{UserID: p.UserID, DisplayName: p.DisplayName, Avatar: p.Avatar}
}

// NotInSessionError reports a caller who never joined the session.
func NotInSessionError(sessionID, userID string) error {
	return apperrors.WithMetadata(apperrors.CodePlayerNotInSession, "player is not in session",
		map[string]string{"SessionID": sessionID, "UserID": userID})
}
