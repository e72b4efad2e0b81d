package repository

import (
	"context"
	"errors"
	"strings"

	"scdl-bot/internal/model"
)

// ErrNotFound is returned by Get when the user is not in the registry.
var ErrNotFound = errors.New("record not found")

// UserRepository is the append-only user registry.
// Upsert inserts a row only for an unseen id and reports whether it did;
// existing rows are never modified.
type UserRepository interface {
	Get(ctx context.Context, id int64) (*model.User, error)
	Upsert(ctx context.Context, user model.User) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	ReplaceAll(ctx context.Context, users []model.User) error
}

// ChannelRepository persists the ordered sponsor channel list as a whole.
// Initialized reports whether the list was ever written, so seeding from
// configuration happens on the first run only.
type ChannelRepository interface {
	List(ctx context.Context) ([]string, error)
	ReplaceAll(ctx context.Context, channels []string) error
	Initialized(ctx context.Context) (bool, error)
}

// LanguageStore keeps the locale each user picked.
type LanguageStore interface {
	Get(ctx context.Context, userID int64) (string, bool, error)
	Set(ctx context.Context, userID int64, lang string) error
}

func normalizeHandle(ch string) string {
	return strings.TrimLeft(strings.TrimSpace(ch), "@")
}
