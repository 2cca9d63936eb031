// Package pending persists proposed task mutations until they are confirmed,
// canceled or expire.
package pending

import (
	"context"
	"fmt"
	"time"
)

// Kind is the mutation a pending action will apply.
type Kind string

const (
	Done       Kind = "done"
	Reschedule Kind = "reschedule"
	Defer      Kind = "defer"
)

// Details carries the action specific payload: nothing for Done, a target
// date for Reschedule, a day count for Defer.
type Details struct {
	TargetDate string `json:"targetDate,omitempty"`
	Days       int    `json:"days,omitempty"`
}

// Action is a proposed mutation awaiting confirmation by UserID. Entries are
// never updated in place; they are put once and later deleted.
type Action struct {
	ID        string    `json:"id"`
	Action    Kind      `json:"action"`
	TaskID    string    `json:"taskId"`
	UserID    string    `json:"userId"`
	Details   Details   `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the action is no longer usable at now.
func (a *Action) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// Store maps action ids to pending actions. Get returns nil, nil when the
// id is unknown. Expired entries stay visible to Get until PruneExpired
// removes them.
type Store interface {
	Put(ctx context.Context, a Action) error
	Get(ctx context.Context, id string) (*Action, error)
	Delete(ctx context.Context, id string) error
	// PruneExpired removes every entry with ExpiresAt <= now and returns
	// how many were removed.
	PruneExpired(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// Open returns the store for backend ("file" or "sqlite") at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(path), nil
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}
