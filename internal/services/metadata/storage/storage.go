// Package storage defines persistence contracts for metadata service state.
package storage

import (
	"context"
	"errors"

	"github.com/louisbranch/ugs-metadata/internal/services/metadata/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrCorruptRecord indicates a stored value that no longer decodes, such
	// as a badge result or vote code outside the known enum range.
	ErrCorruptRecord = errors.New("corrupt record")
)

// RowFilter narrows badge and user-event fetches. MaxChange and
// AfterSequence are ignored when zero; MinChange of zero matches everything.
type RowFilter struct {
	MinChange     int64
	MaxChange     int64
	AfterSequence int64
}

// ProjectStore maps (stream, name) identities to durable project ids.
type ProjectStore interface {
	// ResolveOrCreateProject returns the id for the identity, creating the
	// project row on first use. Safe under concurrent callers: creation is
	// backed by a uniqueness constraint, not read-then-insert.
	ResolveOrCreateProject(ctx context.Context, stream, name string) (int64, error)
	// LookupProject returns an existing project or ErrNotFound.
	LookupProject(ctx context.Context, stream, name string) (domain.Project, error)
	// ListProjectsByStream returns every project in a stream, ordered by id.
	ListProjectsByStream(ctx context.Context, stream string) ([]domain.Project, error)
}

// BadgeStore persists the append-only badge history.
type BadgeStore interface {
	InsertBadge(ctx context.Context, badge domain.Badge) error
	// ListBadges returns matching badges ordered ascending by sequence.
	ListBadges(ctx context.Context, projectID int64, filter RowFilter) ([]domain.Badge, error)
	// MaxBadgeSequence returns the highest badge sequence recorded for the
	// project, or 0 when it has no badges.
	MaxBadgeSequence(ctx context.Context, projectID int64) (int64, error)
}

// UserEventStore persists per-user review state, one mutable row per
// (project, user, changelist).
type UserEventStore interface {
	GetUserEvent(ctx context.Context, projectID int64, user string, change int64) (domain.UserEvent, error)
	// UpsertUserEvent inserts or replaces the row for the event's
	// (project, user, changelist) identity in a single statement.
	UpsertUserEvent(ctx context.Context, event domain.UserEvent) error
	// ListUserEvents returns matching events ordered ascending by sequence.
	ListUserEvents(ctx context.Context, projectID int64, filter RowFilter) ([]domain.UserEvent, error)
}

// Store is the full persistence surface the sync engine requires.
type Store interface {
	ProjectStore
	BadgeStore
	UserEventStore
	// MaxSequence returns the highest sequence number persisted across both
	// the badge and user-event tables, or 0 when both are empty. Used to
	// reseed the sequence allocator after a restart.
	MaxSequence(ctx context.Context) (int64, error)
}
