package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/ugs-metadata/internal/services/metadata/domain"
	"github.com/louisbranch/ugs-metadata/internal/services/metadata/storage"
)

// QueryRequest selects which metadata to aggregate. Project narrows the query
// to one project inside the stream; empty means every project in the stream.
// MaxChange and AfterSequence of 0 mean no upper bound and no cursor.
type QueryRequest struct {
	Stream        string
	Project       string
	MinChange     int64
	MaxChange     int64
	AfterSequence int64
}

// BadgeState is one build badge inside an aggregated record.
type BadgeState struct {
	Name  string
	URL   string
	State domain.BadgeResult
}

// UserState is one user's review state inside an aggregated record.
type UserState struct {
	User          string
	SyncTime      *time.Time
	Vote          *domain.UserVote
	Comment       *string
	Investigating *bool
	Starred       *bool
}

// MetadataRecord aggregates everything known about one changelist in one
// project. Users and Badges are never nil so empty groups encode as empty
// lists on the wire.
type MetadataRecord struct {
	Project string
	Change  int64
	Users   []UserState
	Badges  []BadgeState
}

// QueryResult carries the aggregated records plus the resume cursor: the
// highest sequence among the rows that produced the records, or 0 when
// nothing matched. A client that polls again with AfterSequence set to
// SequenceNumber sees exactly the writes accepted after this result.
type QueryResult struct {
	SequenceNumber int64
	Items          []MetadataRecord
}

// Query aggregates badges and user events for the requested stream into
// per-changelist records. It runs in the read-shared section, so it observes
// a consistent snapshot relative to submissions.
func (e *Engine) Query(ctx context.Context, req QueryRequest) (QueryResult, error) {
	stream := strings.ToLower(strings.TrimSpace(req.Stream))
	if stream == "" {
		return QueryResult{}, fmt.Errorf("stream is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var projects []domain.Project
	if name := strings.ToLower(strings.TrimSpace(req.Project)); name != "" {
		project, err := e.store.LookupProject(ctx, stream, name)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return QueryResult{Items: []MetadataRecord{}}, nil
			}
			return QueryResult{}, fmt.Errorf("lookup project: %w", err)
		}
		projects = []domain.Project{project}
	} else {
		var err error
		projects, err = e.store.ListProjectsByStream(ctx, stream)
		if err != nil {
			return QueryResult{}, fmt.Errorf("list projects: %w", err)
		}
	}

	filter := storage.RowFilter{
		MinChange:     req.MinChange,
		MaxChange:     req.MaxChange,
		AfterSequence: req.AfterSequence,
	}
	result := QueryResult{Items: []MetadataRecord{}}
	for _, project := range projects {
		badges, err := e.store.ListBadges(ctx, project.ID, filter)
		if err != nil {
			return QueryResult{}, fmt.Errorf("list badges for %s: %w", project.FullPath(), err)
		}
		events, err := e.store.ListUserEvents(ctx, project.ID, filter)
		if err != nil {
			return QueryResult{}, fmt.Errorf("list user events for %s: %w", project.FullPath(), err)
		}
		records, maxSeq := foldProject(project, badges, events)
		result.Items = append(result.Items, records...)
		if maxSeq > result.SequenceNumber {
			result.SequenceNumber = maxSeq
		}
	}
	return result, nil
}

// foldProject groups one project's badges and user events by changelist.
// Records appear in order of first contribution, badges before events, both
// already sequence-sorted by the store.
func foldProject(project domain.Project, badges []domain.Badge, events []domain.UserEvent) ([]MetadataRecord, int64) {
	path := project.FullPath()
	index := make(map[int64]int)
	var records []MetadataRecord
	var maxSeq int64

	recordAt := func(change int64) int {
		if i, ok := index[change]; ok {
			return i
		}
		records = append(records, MetadataRecord{
			Project: path,
			Change:  change,
			Users:   []UserState{},
			Badges:  []BadgeState{},
		})
		index[change] = len(records) - 1
		return len(records) - 1
	}

	for _, badge := range badges {
		i := recordAt(badge.Change)
		records[i].Badges = append(records[i].Badges, BadgeState{
			Name:  badge.BuildType,
			URL:   badge.URL,
			State: badge.Result,
		})
		if badge.Sequence > maxSeq {
			maxSeq = badge.Sequence
		}
	}
	for _, event := range events {
		i := recordAt(event.Change)
		records[i].Users = append(records[i].Users, UserState{
			User:          event.User,
			SyncTime:      event.SyncTime,
			Vote:          event.Vote,
			Comment:       event.Comment,
			Investigating: event.Investigating,
			Starred:       event.Starred,
		})
		if event.Sequence > maxSeq {
			maxSeq = event.Sequence
		}
	}
	return records, maxSeq
}
