package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/ugs-metadata/internal/services/metadata/domain"
	"github.com/louisbranch/ugs-metadata/internal/services/metadata/storage"
)

// GetUserEvent returns the stored review state for one
// (project, user, changelist) identity, or ErrNotFound.
func (s *Store) GetUserEvent(ctx context.Context, projectID int64, user string, change int64) (domain.UserEvent, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserEvent{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.UserEvent{}, fmt.Errorf("storage is not configured")
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return domain.UserEvent{}, fmt.Errorf("user name is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT event_id, project_id, change_number, user_name, sequence, updated_at,
		        sync_time, vote, starred, investigating, comment
		   FROM user_events
		  WHERE project_id = ? AND user_name = ? AND change_number = ?`,
		projectID, user, change,
	)
	event, err := scanUserEvent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UserEvent{}, storage.ErrNotFound
		}
		return domain.UserEvent{}, fmt.Errorf("get user event: %w", err)
	}
	return event, nil
}

// UpsertUserEvent inserts or replaces the row for the event's
// (project, user, changelist) identity in one statement. The row id is
// stable across updates; sequence, timestamps, and review fields are
// replaced with the merged values the caller supplies.
func (s *Store) UpsertUserEvent(ctx context.Context, event domain.UserEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if event.ProjectID <= 0 {
		return fmt.Errorf("user event project id is required")
	}
	if strings.TrimSpace(event.User) == "" {
		return fmt.Errorf("user name is required")
	}
	if event.Sequence <= 0 {
		return fmt.Errorf("user event sequence is required")
	}
	if event.Vote != nil && !event.Vote.Valid() {
		return fmt.Errorf("user vote %d out of range", *event.Vote)
	}

	var syncTime sql.NullInt64
	if event.SyncTime != nil {
		syncTime = sql.NullInt64{Int64: toMillis(*event.SyncTime), Valid: true}
	}
	var vote sql.NullInt64
	if event.Vote != nil {
		vote = sql.NullInt64{Int64: int64(*event.Vote), Valid: true}
	}
	var starred, investigating sql.NullBool
	if event.Starred != nil {
		starred = sql.NullBool{Bool: *event.Starred, Valid: true}
	}
	if event.Investigating != nil {
		investigating = sql.NullBool{Bool: *event.Investigating, Valid: true}
	}
	var comment sql.NullString
	if event.Comment != nil {
		comment = sql.NullString{String: *event.Comment, Valid: true}
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO user_events (
		   project_id, change_number, user_name, sequence, updated_at,
		   sync_time, vote, starred, investigating, comment
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, user_name, change_number) DO UPDATE SET
		   sequence = excluded.sequence,
		   updated_at = excluded.updated_at,
		   sync_time = excluded.sync_time,
		   vote = excluded.vote,
		   starred = excluded.starred,
		   investigating = excluded.investigating,
		   comment = excluded.comment`,
		event.ProjectID,
		event.Change,
		strings.TrimSpace(event.User),
		event.Sequence,
		toMillis(event.UpdatedAt),
		syncTime,
		vote,
		starred,
		investigating,
		comment,
	)
	if err != nil {
		return fmt.Errorf("upsert user event: %w", err)
	}
	return nil
}

// ListUserEvents returns matching events ordered ascending by sequence.
func (s *Store) ListUserEvents(ctx context.Context, projectID int64, filter storage.RowFilter) ([]domain.UserEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := `SELECT event_id, project_id, change_number, user_name, sequence, updated_at,
		         sync_time, vote, starred, investigating, comment
		  FROM user_events WHERE project_id = ? AND change_number >= ?`
	args := []any{projectID, filter.MinChange}
	if filter.MaxChange > 0 {
		query += " AND change_number <= ?"
		args = append(args, filter.MaxChange)
	}
	if filter.AfterSequence > 0 {
		query += " AND sequence > ?"
		args = append(args, filter.AfterSequence)
	}
	query += " ORDER BY sequence ASC"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list user events: %w", err)
	}
	defer rows.Close()

	var events []domain.UserEvent
	for rows.Next() {
		event, err := scanUserEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan user event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user events: %w", err)
	}
	return events, nil
}

func scanUserEvent(scan func(dest ...any) error) (domain.UserEvent, error) {
	var event domain.UserEvent
	var updatedAt int64
	var syncTime, vote sql.NullInt64
	var starred, investigating sql.NullBool
	var comment sql.NullString
	if err := scan(
		&event.ID,
		&event.ProjectID,
		&event.Change,
		&event.User,
		&event.Sequence,
		&updatedAt,
		&syncTime,
		&vote,
		&starred,
		&investigating,
		&comment,
	); err != nil {
		return domain.UserEvent{}, err
	}
	event.UpdatedAt = fromMillis(updatedAt)
	if syncTime.Valid {
		value := fromMillis(syncTime.Int64)
		event.SyncTime = &value
	}
	if vote.Valid {
		value := domain.UserVote(vote.Int64)
		if !value.Valid() {
			return domain.UserEvent{}, fmt.Errorf("user event %d: vote %d out of range: %w",
				event.ID, vote.Int64, storage.ErrCorruptRecord)
		}
		event.Vote = &value
	}
	if starred.Valid {
		value := starred.Bool
		event.Starred = &value
	}
	if investigating.Valid {
		value := investigating.Bool
		event.Investigating = &value
	}
	if comment.Valid {
		value := comment.String
		event.Comment = &value
	}
	return event, nil
}
