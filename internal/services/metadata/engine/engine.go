// Package engine implements the sequence-ordered synchronization core: it
// assigns one global write order across badges and user events, serializes
// writes against reads, and folds raw rows into per-changelist aggregates
// for delta polling.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/ugs-metadata/internal/services/metadata/domain"
	"github.com/louisbranch/ugs-metadata/internal/services/metadata/storage"
)

// ErrInvalidSubmission marks a submission rejected by validation before any
// state change.
var ErrInvalidSubmission = errors.New("invalid submission")

// Engine coordinates all metadata reads and writes.
//
// The embedded RWMutex is the consistency gate: writes hold it exclusively,
// so every write (and its sequence allocation) is totally ordered, and reads
// hold it shared, so a poll never observes a half-applied submission across
// the badge and user-event tables.
type Engine struct {
	mu      sync.RWMutex
	store   storage.Store
	clock   func() time.Time
	lastSeq int64
}

// New creates an engine over the given store, seeding the sequence allocator
// from the highest sequence already persisted so restarts never reissue or
// regress sequence numbers.
func New(ctx context.Context, store storage.Store) (*Engine, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	last, err := store.MaxSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed sequence allocator: %w", err)
	}
	return &Engine{
		store:   store,
		clock:   time.Now,
		lastSeq: last,
	}, nil
}

// BadgeSubmission is one build-status report from CI.
type BadgeSubmission struct {
	ProjectPath string
	Change      int64
	BuildType   string
	Result      domain.BadgeResult
	URL         string
}

// SubmitBadge validates the submission, resolves (creating if new) the
// project, allocates a sequence number, and appends the badge row. The whole
// operation runs in the write-exclusive section.
func (e *Engine) SubmitBadge(ctx context.Context, sub BadgeSubmission) error {
	stream, name, err := domain.ParseProjectPath(sub.ProjectPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(sub.BuildType) == "" {
		return fmt.Errorf("%w: build type is required", ErrInvalidSubmission)
	}
	if !sub.Result.Valid() {
		return fmt.Errorf("%w: badge result %d out of range", ErrInvalidSubmission, sub.Result)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	projectID, err := e.store.ResolveOrCreateProject(ctx, stream, name)
	if err != nil {
		return fmt.Errorf("resolve project: %w", err)
	}
	now := e.clock().UTC()
	return e.store.InsertBadge(ctx, domain.Badge{
		Sequence:  e.nextSequence(),
		Change:    sub.Change,
		AddedAt:   now,
		BuildType: strings.TrimSpace(sub.BuildType),
		Result:    sub.Result,
		URL:       sub.URL,
		ProjectID: projectID,
	})
}

// UserEventSubmission is one user's partial review-state update. Nil fields
// leave the stored value untouched.
type UserEventSubmission struct {
	ProjectPath   string
	Change        int64
	User          string
	Synced        *bool
	Vote          *domain.UserVote
	Investigating *bool
	Starred       *bool
	Comment       *string
}

// SubmitUserEvent merges the submission into the stored review state for the
// (project, user, changelist) identity, creating it on first use. The merge
// is a read-modify-write, so the entire operation runs in the
// write-exclusive section to rule out lost updates.
//
// Synced=true stamps the sync time with "now"; a set sync time is never
// cleared.
func (e *Engine) SubmitUserEvent(ctx context.Context, sub UserEventSubmission) error {
	stream, name, err := domain.ParseProjectPath(sub.ProjectPath)
	if err != nil {
		return err
	}
	user := strings.TrimSpace(sub.User)
	if user == "" {
		return fmt.Errorf("%w: user name is required", ErrInvalidSubmission)
	}
	if sub.Vote != nil && !sub.Vote.Valid() {
		return fmt.Errorf("%w: user vote %d out of range", ErrInvalidSubmission, *sub.Vote)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	projectID, err := e.store.ResolveOrCreateProject(ctx, stream, name)
	if err != nil {
		return fmt.Errorf("resolve project: %w", err)
	}

	event, err := e.store.GetUserEvent(ctx, projectID, user, sub.Change)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load user event: %w", err)
		}
		event = domain.UserEvent{
			ProjectID: projectID,
			Change:    sub.Change,
			User:      user,
		}
	}

	now := e.clock().UTC()
	if sub.Synced != nil && *sub.Synced {
		syncTime := now
		event.SyncTime = &syncTime
	}
	if sub.Vote != nil {
		vote := *sub.Vote
		event.Vote = &vote
	}
	if sub.Investigating != nil {
		investigating := *sub.Investigating
		event.Investigating = &investigating
	}
	if sub.Starred != nil {
		starred := *sub.Starred
		event.Starred = &starred
	}
	if sub.Comment != nil {
		comment := *sub.Comment
		event.Comment = &comment
	}
	event.Sequence = e.nextSequence()
	event.UpdatedAt = now

	return e.store.UpsertUserEvent(ctx, event)
}

// ListBadges returns the project's badges with sequence greater than
// afterSequence, ascending. A project that does not exist yet yields an
// empty list, matching what old polling clients expect.
func (e *Engine) ListBadges(ctx context.Context, projectPath string, afterSequence int64) ([]domain.Badge, error) {
	stream, name, err := domain.ParseProjectPath(projectPath)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	project, err := e.store.LookupProject(ctx, stream, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []domain.Badge{}, nil
		}
		return nil, fmt.Errorf("lookup project: %w", err)
	}
	badges, err := e.store.ListBadges(ctx, project.ID, storage.RowFilter{AfterSequence: afterSequence})
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	if badges == nil {
		badges = []domain.Badge{}
	}
	return badges, nil
}

// LatestSequence returns the highest badge sequence recorded for the project
// path, or 0 when the project or its badges do not exist yet. Old clients
// poll this before fetching.
func (e *Engine) LatestSequence(ctx context.Context, projectPath string) (int64, error) {
	stream, name, err := domain.ParseProjectPath(projectPath)
	if err != nil {
		return 0, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	project, err := e.store.LookupProject(ctx, stream, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("lookup project: %w", err)
	}
	max, err := e.store.MaxBadgeSequence(ctx, project.ID)
	if err != nil {
		return 0, fmt.Errorf("latest badge sequence: %w", err)
	}
	return max, nil
}
