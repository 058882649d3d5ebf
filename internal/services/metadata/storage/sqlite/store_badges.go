package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/ugs-metadata/internal/services/metadata/domain"
	"github.com/louisbranch/ugs-metadata/internal/services/metadata/storage"
)

// InsertBadge appends one immutable badge row.
func (s *Store) InsertBadge(ctx context.Context, badge domain.Badge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if badge.Sequence <= 0 {
		return fmt.Errorf("badge sequence is required")
	}
	if badge.ProjectID <= 0 {
		return fmt.Errorf("badge project id is required")
	}
	if strings.TrimSpace(badge.BuildType) == "" {
		return fmt.Errorf("badge build type is required")
	}
	if !badge.Result.Valid() {
		return fmt.Errorf("badge result %d out of range", badge.Result)
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO badges (sequence, change_number, added_at, build_type, result, url, project_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		badge.Sequence,
		badge.Change,
		toMillis(badge.AddedAt),
		badge.BuildType,
		int64(badge.Result),
		badge.URL,
		badge.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("insert badge: %w", err)
	}
	return nil
}

// ListBadges returns matching badges ordered ascending by sequence.
func (s *Store) ListBadges(ctx context.Context, projectID int64, filter storage.RowFilter) ([]domain.Badge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := `SELECT sequence, change_number, added_at, build_type, result, url, project_id
		  FROM badges WHERE project_id = ? AND change_number >= ?`
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
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var badges []domain.Badge
	for rows.Next() {
		var badge domain.Badge
		var addedAt int64
		var result int64
		if err := rows.Scan(
			&badge.Sequence,
			&badge.Change,
			&addedAt,
			&badge.BuildType,
			&result,
			&badge.URL,
			&badge.ProjectID,
		); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		badge.AddedAt = fromMillis(addedAt)
		badge.Result = domain.BadgeResult(result)
		if !badge.Result.Valid() {
			return nil, fmt.Errorf("badge sequence %d: result %d out of range: %w",
				badge.Sequence, result, storage.ErrCorruptRecord)
		}
		badges = append(badges, badge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate badges: %w", err)
	}
	return badges, nil
}

// MaxBadgeSequence returns the highest badge sequence for the project, or 0
// when it has none.
func (s *Store) MaxBadgeSequence(ctx context.Context, projectID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var max int64
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(sequence), 0) FROM badges WHERE project_id = ?",
		projectID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max badge sequence: %w", err)
	}
	return max, nil
}
