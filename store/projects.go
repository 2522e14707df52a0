package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// MaxListLimit caps ListProjects page size
const MaxListLimit = 1000

const projectColumns = `id, name, description, graph_id, created_at, updated_at`

// ListProjects returns projects most recently updated first. A non-empty
// Search keeps only projects whose name contains it, ignoring ASCII case.
func (s *Store) ListProjects(ctx context.Context, filter ProjectFilter) ([]*Project, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	skip := max(filter.Skip, 0)

	query := `SELECT ` + projectColumns + ` FROM projects`
	var args []any
	if filter.Search != "" {
		query += ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, likePattern(filter.Search))
	}
	query += ` ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []*Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetProject loads a project together with its graph
func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	p, err := s.projectRow(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	if p.GraphID != nil {
		g, err := s.GetGraph(ctx, *p.GraphID)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return nil, err
		default:
			p.Graph = g
		}
	}
	return p, nil
}

// CreateProject creates a project and an empty graph named "Graph for <name>"
func (s *Store) CreateProject(ctx context.Context, in ProjectInput) (*Project, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO graphs (name, created_at, updated_at) VALUES (?, ?, ?)`,
			"Graph for "+in.Name, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert project graph: %w", err)
		}
		graphID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx,
			`INSERT INTO projects (name, description, graph_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			in.Name, in.Description, graphID, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert project: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, id)
}

// UpdateProject applies the set fields of in
func (s *Store) UpdateProject(ctx context.Context, id int64, in ProjectUpdate) (*Project, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.projectRow(ctx, tx, id)
		if err != nil {
			return err
		}
		name, description := current.Name, current.Description
		if in.Name != nil {
			name = *in.Name
		}
		if in.Description != nil {
			description = in.Description
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE projects SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
			name, description, s.timestamp(), id)
		if err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project and its graph
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := s.projectRow(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.GraphID != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, *p.GraphID); err != nil {
				return fmt.Errorf("failed to delete project graph: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		return nil
	})
}

// ProjectMetadata returns the project fields plus node and edge counts
func (s *Store) ProjectMetadata(ctx context.Context, id int64) (*ProjectMetadata, error) {
	p, err := s.projectRow(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	meta := &ProjectMetadata{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.GraphID == nil {
		return meta, nil
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM nodes WHERE graph_id = ?), (SELECT COUNT(*) FROM edges WHERE graph_id = ?)`,
		*p.GraphID, *p.GraphID).Scan(&meta.NodeCount, &meta.EdgeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count graph contents: %w", err)
	}
	meta.GraphID = p.GraphID
	return meta, nil
}

func (s *Store) projectRow(ctx context.Context, q queryer, id int64) (*Project, error) {
	row := q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*Project, error) {
	var (
		p                Project
		description      sql.NullString
		graphID          sql.NullInt64
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.Name, &description, &graphID, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	if description.Valid {
		p.Description = &description.String
	}
	if graphID.Valid {
		p.GraphID = &graphID.Int64
	}
	p.CreatedAt = parseTimestamp(created)
	p.UpdatedAt = parseTimestamp(updated)
	return &p, nil
}
