package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/ugs-metadata/internal/services/metadata/domain"
	"github.com/louisbranch/ugs-metadata/internal/services/metadata/storage"
)

func TestGetUserEventMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	projectID, err := store.ResolveOrCreateProject(ctx, "//depot", "stream/proj")
	if err != nil {
		t.Fatalf("resolve project: %v", err)
	}

	_, err = store.GetUserEvent(ctx, projectID, "alice", 100)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get error = %v, want ErrNotFound", err)
	}
}

func TestUpsertUserEventKeepsRowIDAcrossUpdates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	projectID, err := store.ResolveOrCreateProject(ctx, "//depot", "stream/proj")
	if err != nil {
		t.Fatalf("resolve project: %v", err)
	}

	vote := domain.VoteGood
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	if err := store.UpsertUserEvent(ctx, domain.UserEvent{
		ProjectID: projectID,
		Change:    100,
		User:      "alice",
		Sequence:  10,
		UpdatedAt: now,
		Vote:      &vote,
	}); err != nil {
		t.Fatalf("insert user event: %v", err)
	}

	first, err := store.GetUserEvent(ctx, projectID, "alice", 100)
	if err != nil {
		t.Fatalf("get after insert: %v", err)
	}
	if first.Vote == nil || *first.Vote != domain.VoteGood {
		t.Fatalf("vote = %v, want VoteGood", first.Vote)
	}

	comment := "broken on linux"
	if err := store.UpsertUserEvent(ctx, domain.UserEvent{
		ProjectID: projectID,
		Change:    100,
		User:      "alice",
		Sequence:  20,
		UpdatedAt: now.Add(time.Minute),
		Vote:      first.Vote,
		Comment:   &comment,
	}); err != nil {
		t.Fatalf("update user event: %v", err)
	}

	second, err := store.GetUserEvent(ctx, projectID, "alice", 100)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("row id changed across update: %d -> %d", first.ID, second.ID)
	}
	if second.Sequence != 20 {
		t.Fatalf("sequence = %d, want 20", second.Sequence)
	}
	if second.Comment == nil || *second.Comment != comment {
		t.Fatalf("comment = %v, want %q", second.Comment, comment)
	}
}

func TestListUserEventsOrdersBySequence(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	projectID, err := store.ResolveOrCreateProject(ctx, "//depot", "stream/proj")
	if err != nil {
		t.Fatalf("resolve project: %v", err)
	}

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	for _, entry := range []struct {
		user     string
		change   int64
		sequence int64
	}{
		{"bob", 101, 30},
		{"alice", 100, 10},
		{"carol", 100, 20},
	} {
		if err := store.UpsertUserEvent(ctx, domain.UserEvent{
			ProjectID: projectID,
			Change:    entry.change,
			User:      entry.user,
			Sequence:  entry.sequence,
			UpdatedAt: now,
			Starred:   boolPtr(true),
		}); err != nil {
			t.Fatalf("upsert %s: %v", entry.user, err)
		}
	}

	events, err := store.ListUserEvents(ctx, projectID, storage.RowFilter{})
	if err != nil {
		t.Fatalf("list user events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events len = %d, want 3", len(events))
	}
	for i, want := range []string{"alice", "carol", "bob"} {
		if events[i].User != want {
			t.Fatalf("events[%d].User = %q, want %q", i, events[i].User, want)
		}
	}

	filtered, err := store.ListUserEvents(ctx, projectID, storage.RowFilter{AfterSequence: 10, MaxChange: 100})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].User != "carol" {
		t.Fatalf("filtered = %+v, want single carol event", filtered)
	}
}

func TestListUserEventsSurfacesCorruptVote(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	projectID, err := store.ResolveOrCreateProject(ctx, "//depot", "stream/proj")
	if err != nil {
		t.Fatalf("resolve project: %v", err)
	}

	vote := domain.VoteBad
	if err := store.UpsertUserEvent(ctx, domain.UserEvent{
		ProjectID: projectID,
		Change:    100,
		User:      "alice",
		Sequence:  10,
		UpdatedAt: time.Now().UTC(),
		Vote:      &vote,
	}); err != nil {
		t.Fatalf("upsert user event: %v", err)
	}

	if _, err := store.sqlDB.ExecContext(ctx, "UPDATE user_events SET vote = 9 WHERE user_name = 'alice'"); err != nil {
		t.Fatalf("corrupt user event row: %v", err)
	}

	_, err = store.ListUserEvents(ctx, projectID, storage.RowFilter{})
	if !errors.Is(err, storage.ErrCorruptRecord) {
		t.Fatalf("list error = %v, want ErrCorruptRecord", err)
	}
}

func TestMaxSequenceSpansBothTables(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	max, err := store.MaxSequence(ctx)
	if err != nil {
		t.Fatalf("max sequence on empty store: %v", err)
	}
	if max != 0 {
		t.Fatalf("empty max = %d, want 0", max)
	}

	projectID, err := store.ResolveOrCreateProject(ctx, "//depot", "stream/proj")
	if err != nil {
		t.Fatalf("resolve project: %v", err)
	}
	insertTestBadge(t, store, projectID, 10, 100, "Editor")
	if err := store.UpsertUserEvent(ctx, domain.UserEvent{
		ProjectID: projectID,
		Change:    100,
		User:      "alice",
		Sequence:  25,
		UpdatedAt: time.Now().UTC(),
		Comment:   stringPtr("looking at it"),
	}); err != nil {
		t.Fatalf("upsert user event: %v", err)
	}

	max, err = store.MaxSequence(ctx)
	if err != nil {
		t.Fatalf("max sequence: %v", err)
	}
	if max != 25 {
		t.Fatalf("max = %d, want 25", max)
	}
}
