// Package board holds the per-field accessors and JSON views of forums,
// topics and replies. Every accessor takes IDs and reads through the
// store, so results reflect the latest recount.
package board

import (
	"log/slog"
	"time"

	"msgboard/caps"
	"msgboard/database"
	"msgboard/models"
	"msgboard/urls"
)

// Board bundles the store, capability checker and URL layout.
type Board struct {
	DB       *database.DatabaseService
	Caps     *caps.Checker
	Paths    urls.Paths
	Notifier models.Notifier
	logger   *slog.Logger
}

func New(db *database.DatabaseService, notifier models.Notifier, logger *slog.Logger) *Board {
	return &Board{
		DB:       db,
		Caps:     caps.New(db),
		Paths:    urls.Default,
		Notifier: notifier,
		logger:   logger,
	}
}

// Viewer is the request-scoped context accessors need: who is looking
// and at what time.
type Viewer struct {
	User *models.User
	Now  time.Time
}

// NewViewer returns a viewer for user at the current time.
func NewViewer(user *models.User) Viewer {
	return Viewer{User: user, Now: time.Now().UTC()}
}

// UserID returns 0 for guests.
func (v Viewer) UserID() int64 {
	if v.User == nil {
		return 0
	}
	return v.User.ID
}

func (v Viewer) LoggedIn() bool { return v.User != nil && v.User.ID > 0 }

// Can checks a capability for the viewer.
func (b *Board) Can(v Viewer, cap string, args ...int64) bool {
	return b.Caps.UserCan(v.User, cap, args...)
}

func (b *Board) item(id int64, t models.ItemType) *models.Item {
	it, err := b.DB.GetTypedItem(id, t)
	if err != nil {
		return nil
	}
	return it
}

func (b *Board) metaInt(id int64, key string) int64 {
	n, err := b.DB.GetMetaInt(id, key)
	if err != nil {
		b.logger.Error("Failed to read meta", "item", id, "key", key, "error", err)
		return 0
	}
	return n
}
