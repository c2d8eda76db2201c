// Package store provides the durable local key-value store, the snapshot
// repository interface, and its SQLite, in-memory and S3 implementations.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/cardfolio/internal/model"
)

// ErrNotFound is returned when a key or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// LocalStore is the durable key-value store a document session saves to.
type LocalStore interface {
	// GetItem returns the value for key and whether it was present.
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItem writes value under key, replacing any previous value.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
}

// Repository stores snapshots by id. It backs the remote save endpoint and
// can be swapped without touching its callers.
type Repository interface {
	// Put stores snap under snap.ID, replacing the visible value.
	Put(ctx context.Context, snap model.SavedContent) error

	// Get returns the latest snapshot stored under id.
	Get(ctx context.Context, id string) (*model.SavedContent, error)

	// Close releases backend resources.
	Close() error
}

// ListParams holds parameters for listing snapshots.
type ListParams struct {
	Limit int
}

// RmParams holds parameters for deleting a snapshot.
type RmParams struct {
	ID          string
	AllVersions bool
	Hard        bool
}

// SearchParams holds parameters for searching cards across snapshots.
type SearchParams struct {
	Query string
	Limit int
}
