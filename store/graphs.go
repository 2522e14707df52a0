package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// DefaultListLimit applies when a list call passes a non-positive limit
const DefaultListLimit = 100

// CreateGraph inserts a graph with its nodes and edges in one transaction
func (s *Store) CreateGraph(ctx context.Context, in GraphInput) (*Graph, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO graphs (name, created_at, updated_at) VALUES (?, ?, ?)`, in.Name, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert graph: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertContents(ctx, tx, id, in)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("graph created", zap.Int64("graph_id", id), zap.Int("nodes", len(in.Nodes)))
	return s.GetGraph(ctx, id)
}

// ReplaceGraph swaps all nodes and edges of graph id for those of in.
// An empty in.Name keeps the current name.
func (s *Store) ReplaceGraph(ctx context.Context, id int64, in GraphInput) (*Graph, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE graphs SET name = COALESCE(NULLIF(?, ''), name), updated_at = ? WHERE id = ?`,
			in.Name, s.timestamp(), id)
		if err != nil {
			return fmt.Errorf("failed to update graph: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE graph_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear edges: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE graph_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear nodes: %w", err)
		}
		return insertContents(ctx, tx, id, in)
	})
	if err != nil {
		return nil, err
	}

	return s.GetGraph(ctx, id)
}

func insertContents(ctx context.Context, tx *sql.Tx, graphID int64, in GraphInput) error {
	refs := make(map[int64]int64, len(in.Nodes))
	for _, n := range in.Nodes {
		id, err := insertNode(ctx, tx, graphID, n)
		if err != nil {
			return err
		}
		if n.Ref != nil {
			refs[*n.Ref] = id
		}
	}

	for _, e := range in.Edges {
		source, okSource := refs[e.SourceID]
		target, okTarget := refs[e.TargetID]
		if !okSource || !okTarget {
			continue
		}
		e.SourceID, e.TargetID = source, target
		if _, err := insertEdge(ctx, tx, graphID, e); err != nil {
			return err
		}
	}
	return nil
}

func insertNode(ctx context.Context, q queryer, graphID int64, n NodeInput) (int64, error) {
	extra, err := encodeExtra(n.Extra)
	if err != nil {
		return 0, fmt.Errorf("failed to encode node extra_data: %w", err)
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO nodes (graph_id, label, x, y, z, color, size, extra_data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		graphID, n.Label, n.X, n.Y, n.Z, n.Color, n.Size, extra)
	if err != nil {
		return 0, fmt.Errorf("failed to insert node: %w", err)
	}
	return res.LastInsertId()
}

func insertEdge(ctx context.Context, q queryer, graphID int64, e EdgeInput) (int64, error) {
	extra, err := encodeExtra(e.Extra)
	if err != nil {
		return 0, fmt.Errorf("failed to encode edge extra_data: %w", err)
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO edges (graph_id, source_id, target_id, weight, directed, color, extra_data) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		graphID, e.SourceID, e.TargetID, e.Weight, e.Directed, e.Color, extra)
	if err != nil {
		return 0, fmt.Errorf("failed to insert edge: %w", err)
	}
	return res.LastInsertId()
}

// GetGraph loads a graph with its nodes and edges in insertion order
func (s *Store) GetGraph(ctx context.Context, id int64) (*Graph, error) {
	return loadGraph(ctx, s.db, id)
}

func loadGraph(ctx context.Context, q queryer, id int64) (*Graph, error) {
	var (
		g                Graph
		created, updated string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM graphs WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	g.CreatedAt = parseTimestamp(created)
	g.UpdatedAt = parseTimestamp(updated)

	if g.Nodes, err = queryNodes(ctx, q, `WHERE graph_id = ? ORDER BY id`, id); err != nil {
		return nil, err
	}
	if g.Edges, err = queryEdges(ctx, q, `WHERE graph_id = ? ORDER BY id`, id); err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGraphs pages through graphs in creation order
func (s *Store) ListGraphs(ctx context.Context, skip, limit int) ([]*Graph, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if skip < 0 {
		skip = 0
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM graphs ORDER BY id LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	graphs := make([]*Graph, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGraph(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue // deleted since the id scan
		}
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// DeleteGraph removes a graph and, by cascade, its nodes and edges
func (s *Store) DeleteGraph(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete graph: %w", err)
	}
	return expectAffected(res)
}

// AddNode appends a node to an existing graph
func (s *Store) AddNode(ctx context.Context, graphID int64, in NodeInput) (*Node, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := touchGraph(ctx, tx, graphID, s.timestamp()); err != nil {
			return err
		}
		var err error
		id, err = insertNode(ctx, tx, graphID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.getNode(ctx, id)
}

// UpdateNode overwrites every field of a node
func (s *Store) UpdateNode(ctx context.Context, nodeID int64, in NodeInput) (*Node, error) {
	extra, err := encodeExtra(in.Extra)
	if err != nil {
		return nil, fmt.Errorf("failed to encode node extra_data: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		graphID, err := nodeGraph(ctx, tx, nodeID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE nodes SET label = ?, x = ?, y = ?, z = ?, color = ?, size = ?, extra_data = ? WHERE id = ?`,
			in.Label, in.X, in.Y, in.Z, in.Color, in.Size, extra, nodeID); err != nil {
			return fmt.Errorf("failed to update node: %w", err)
		}
		return touchGraph(ctx, tx, graphID, s.timestamp())
	})
	if err != nil {
		return nil, err
	}
	return s.getNode(ctx, nodeID)
}

// MoveNode updates only the position of a node
func (s *Store) MoveNode(ctx context.Context, nodeID int64, x, y, z float64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		graphID, err := nodeGraph(ctx, tx, nodeID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE nodes SET x = ?, y = ?, z = ? WHERE id = ?`, x, y, z, nodeID); err != nil {
			return fmt.Errorf("failed to move node: %w", err)
		}
		return touchGraph(ctx, tx, graphID, s.timestamp())
	})
}

// DeleteNode removes a node and every edge touching it
func (s *Store) DeleteNode(ctx context.Context, nodeID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		graphID, err := nodeGraph(ctx, tx, nodeID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, nodeID); err != nil {
			return fmt.Errorf("failed to delete node: %w", err)
		}
		return touchGraph(ctx, tx, graphID, s.timestamp())
	})
}

// AddEdge connects two existing nodes of graphID
func (s *Store) AddEdge(ctx context.Context, graphID int64, in EdgeInput) (*Edge, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := touchGraph(ctx, tx, graphID, s.timestamp()); err != nil {
			return err
		}

		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(DISTINCT id) FROM nodes WHERE graph_id = ? AND id IN (?, ?)`,
			graphID, in.SourceID, in.TargetID).Scan(&count); err != nil {
			return fmt.Errorf("failed to check edge endpoints: %w", err)
		}
		want := 2
		if in.SourceID == in.TargetID {
			want = 1
		}
		if count != want {
			return ErrInvalidEdge
		}

		var err error
		id, err = insertEdge(ctx, tx, graphID, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	edges, err := queryEdges(ctx, s.db, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, ErrNotFound
	}
	return &edges[0], nil
}

// DeleteEdge removes a single edge
func (s *Store) DeleteEdge(ctx context.Context, edgeID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var graphID int64
		err := tx.QueryRowContext(ctx, `SELECT graph_id FROM edges WHERE id = ?`, edgeID).Scan(&graphID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load edge: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, edgeID); err != nil {
			return fmt.Errorf("failed to delete edge: %w", err)
		}
		return touchGraph(ctx, tx, graphID, s.timestamp())
	})
}

func (s *Store) getNode(ctx context.Context, id int64) (*Node, error) {
	nodes, err := queryNodes(ctx, s.db, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrNotFound
	}
	return &nodes[0], nil
}

func nodeGraph(ctx context.Context, q queryer, nodeID int64) (int64, error) {
	var graphID int64
	err := q.QueryRowContext(ctx, `SELECT graph_id FROM nodes WHERE id = ?`, nodeID).Scan(&graphID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load node: %w", err)
	}
	return graphID, nil
}

func touchGraph(ctx context.Context, q queryer, graphID int64, now string) error {
	res, err := q.ExecContext(ctx, `UPDATE graphs SET updated_at = ? WHERE id = ?`, now, graphID)
	if err != nil {
		return fmt.Errorf("failed to touch graph: %w", err)
	}
	return expectAffected(res)
}

func queryNodes(ctx context.Context, q queryer, where string, args ...any) ([]Node, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, graph_id, label, x, y, z, color, size, extra_data FROM nodes `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []Node{}
	for rows.Next() {
		var (
			n     Node
			extra *string
		)
		if err := rows.Scan(&n.ID, &n.GraphID, &n.Label, &n.X, &n.Y, &n.Z, &n.Color, &n.Size, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n.Extra = decodeExtra(extra)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func queryEdges(ctx context.Context, q queryer, where string, args ...any) ([]Edge, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, graph_id, source_id, target_id, weight, directed, color, extra_data FROM edges `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	edges := []Edge{}
	for rows.Next() {
		var (
			e     Edge
			extra *string
		)
		if err := rows.Scan(&e.ID, &e.GraphID, &e.SourceID, &e.TargetID, &e.Weight, &e.Directed, &e.Color, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		e.Extra = decodeExtra(extra)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
