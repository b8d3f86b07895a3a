package api

import (
	"context"
)

type User struct {
	ID          string          `json:"_id"`
	Profile     UserProfile     `json:"profile"`
	Stats       UserStats       `json:"stats"`
	Party       UserParty       `json:"party"`
	Preferences UserPreferences `json:"preferences"`
}

type UserProfile struct {
	Name string `json:"name"`
}

type UserStats struct {
	HP          float64 `json:"hp"`
	MaxHealth   float64 `json:"maxHealth"`
	MP          float64 `json:"mp"`
	MaxMP       float64 `json:"maxMP"`
	Exp         float64 `json:"exp"`
	ToNextLevel float64 `json:"toNextLevel"`
	Gold        float64 `json:"gp"`
	Level       int     `json:"lvl"`
	Class       string  `json:"class"`
}

type UserParty struct {
	ID string `json:"_id"`
}

type UserPreferences struct {
	Sleep bool `json:"sleep"`
}

func (u *User) HasParty() bool {
	return u.Party.ID != ""
}

// UserRepository is the source of truth for the signed-in user.
type UserRepository interface {
	// WatchUser calls fn with every snapshot until ctx is done, the
	// repository is closed or a non-retryable error occurs. Snapshots passed
	// to fn must not be modified.
	WatchUser(ctx context.Context, fn func(*User)) error
	// UpdateUser sets the dotted field path, e.g. "preferences.sleep".
	UpdateUser(ctx context.Context, path string, value any) error
	Close() error
}
