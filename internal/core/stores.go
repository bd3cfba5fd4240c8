package core

import (
	"github.com/valter-silva-au/limbguide/internal/storage"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

// TreeStore is the single entry point to the topic tree. View gives
// read-only access; Mutate applies a change and persists it.
type TreeStore interface {
	View(fn func(tree *models.TopicTree) error) error
	Mutate(fn func(tree *models.TopicTree) error) error
}

var _ TreeStore = (*storage.TopicTreeStore)(nil)

// NavStateStore holds per-chat navigation state.
type NavStateStore = storage.StateStore[NavState]

// AdminStateStore holds per-chat admin wizard sessions.
type AdminStateStore = storage.StateStore[AdminSession]
