// Package store persists model snapshots.
//
// A snapshot is a model's JSON encoding keyed by kind and id. Persister
// adapts a Store to observable.Persister so Destroy removes the snapshot,
// and adds Save and Fetch for the other direction.
//
//	s, err := store.NewSQLiteStore("./models.db")
//	p := store.NewPersister(s)
//	err = p.Save(ctx, user)
//	err = user.Destroy(observable.WithPersister(p), observable.Wait())
package store

import (
	"errors"
	"time"
)

// Store persists snapshots. Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a snapshot, replacing any existing one for (kind, id).
	Save(kind, id string, data []byte) error

	// Load retrieves a snapshot. Returns ErrNotFound if it doesn't exist.
	Load(kind, id string) ([]byte, error)

	// List returns the snapshots of a kind ordered by sequence.
	// Returns an empty slice (not error) if there are none.
	List(kind string) ([]Info, error)

	// Delete removes a snapshot. Returns nil if it doesn't exist.
	Delete(kind, id string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info describes a stored snapshot without its data.
type Info struct {
	Kind      string
	ID        string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a snapshot doesn't exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")

	// ErrNoID indicates a model without an identity attribute was saved.
	ErrNoID = errors.New("model has no id")
)
