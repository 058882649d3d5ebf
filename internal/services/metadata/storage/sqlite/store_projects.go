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

// ResolveOrCreateProject returns the id for the (stream, name) identity,
// inserting the row on first use. Creation is protected by the UNIQUE
// constraint on (stream, name): when a concurrent caller wins the insert,
// the constraint failure is resolved by re-reading the winner's row.
func (s *Store) ResolveOrCreateProject(ctx context.Context, stream, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	stream = strings.ToLower(strings.TrimSpace(stream))
	name = strings.ToLower(strings.TrimSpace(name))
	if stream == "" {
		return 0, fmt.Errorf("stream is required")
	}
	if name == "" {
		return 0, fmt.Errorf("project name is required")
	}

	id, err := s.lookupProjectID(ctx, stream, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, err
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO projects (stream, name) VALUES (?, ?)`,
		stream, name,
	)
	if err != nil {
		if isConstraintError(err) {
			return s.lookupProjectID(ctx, stream, name)
		}
		return 0, fmt.Errorf("create project: %w", err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create project: %w", err)
	}
	return id, nil
}

func (s *Store) lookupProjectID(ctx context.Context, stream, name string) (int64, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT project_id FROM projects WHERE stream = ? AND name = ?`,
		stream, name,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("resolve project: %w", err)
	}
	return id, nil
}

// LookupProject returns an existing project without creating it.
func (s *Store) LookupProject(ctx context.Context, stream, name string) (domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return domain.Project{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Project{}, fmt.Errorf("storage is not configured")
	}
	stream = strings.ToLower(strings.TrimSpace(stream))
	name = strings.ToLower(strings.TrimSpace(name))

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT project_id, stream, name FROM projects WHERE stream = ? AND name = ?`,
		stream, name,
	)
	var project domain.Project
	if err := row.Scan(&project.ID, &project.Stream, &project.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Project{}, storage.ErrNotFound
		}
		return domain.Project{}, fmt.Errorf("lookup project: %w", err)
	}
	return project, nil
}

// ListProjectsByStream returns every project in a stream, ordered by id.
func (s *Store) ListProjectsByStream(ctx context.Context, stream string) ([]domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	stream = strings.ToLower(strings.TrimSpace(stream))

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT project_id, stream, name FROM projects WHERE stream = ? ORDER BY project_id ASC`,
		stream,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var project domain.Project
		if err := rows.Scan(&project.ID, &project.Stream, &project.Name); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}
