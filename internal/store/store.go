// Package store defines the persistence contract for events.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
package store

import (
	"context"
	"time"

	"github.com/babylog/babylog/internal/model"
)

// EventStore owns the events table. Mutations execute as single atomic
// transactions; reads take the engine's default consistency level. The store
// never retries internally. Logical misses surface as model.ErrNotFound (or
// a false return for deletes); infrastructure failures are wrapped with
// model.ErrStorageUnavailable.
type EventStore interface {
	// Create inserts a new row, assigning the ID and defaulting the
	// timestamp to the current UTC time when unset.
	Create(ctx context.Context, e *model.Event) (*model.Event, error)
	Get(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, req model.ListEventsRequest) (*model.EventPage, error)
	// Last returns the most recent event by (timestamp, id), optionally
	// filtered by type. eventType may be empty.
	Last(ctx context.Context, eventType string) (*model.Event, error)
	// Update applies only the fields set on patch. It never creates a row.
	Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)
	// DeleteLast removes the single most-recent row matching the optional
	// type filter, using the same (timestamp, id) ordering as Last.
	DeleteLast(ctx context.Context, eventType string) (bool, error)
	// DeleteAll wipes every row and returns the number removed.
	DeleteAll(ctx context.Context) (int64, error)
	// CountSince counts rows with timestamp >= since, optionally filtered
	// by type.
	CountSince(ctx context.Context, since time.Time, eventType string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

const (
	// MaxLimit bounds a single page regardless of the requested size.
	MaxLimit = 500
)

// ClampLimit forces a page size into [1, MaxLimit].
func ClampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// EncodeCursor renders the continuation cursor for a page ending at t.
func EncodeCursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// DecodeCursor parses a cursor back into a timestamp. Malformed cursors are
// ignored (nil return): pagination degrades to an unfiltered listing rather
// than failing the request.
func DecodeCursor(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
