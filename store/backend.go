package store

import (
	"context"
	"errors"

	"gramaalert-be/models"
)

var ErrNotFound = errors.New("issue not found")

// Event is one push from the document store. A Reset event carries the whole
// collection and replaces the local mapping; otherwise Issues are upserts.
type Event struct {
	Reset  bool
	Issues []models.Issue
}

// Backend is the hosted document store behind the issue mapping.
type Backend interface {
	// Insert assigns the id, persists the issue and returns the id.
	Insert(ctx context.Context, issue models.Issue) (string, error)
	// UpdateStatus rewrites status, resolutionNote and updatedAt together.
	UpdateStatus(ctx context.Context, id string, upd models.StatusUpdate) error
	// Subscribe delivers a Reset snapshot first, then every later change,
	// until ctx is done.
	Subscribe(ctx context.Context) (<-chan Event, error)
}
