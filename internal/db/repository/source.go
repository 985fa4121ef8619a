package repository

import (
	"context"
	"database/sql"
	"fmt"

	"synthlab/internal/domain"
)

// SourceGraphRepository implements domain.SourceGraphRepository over SQLite.
// The graph is always replaced wholesale; there is no per-node patching.
type SourceGraphRepository struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

var _ domain.SourceGraphRepository = (*SourceGraphRepository)(nil)

// NewSourceGraphRepository creates a SourceGraphRepository with separate
// write and read pools.
func NewSourceGraphRepository(writeDB, readDB *sql.DB) *SourceGraphRepository {
	return &SourceGraphRepository{writeDB: writeDB, readDB: readDB}
}

// Get returns the stored source DAG for a dataset. A dataset with no stored
// graph yields an empty snapshot, not an error.
func (r *SourceGraphRepository) Get(ctx context.Context, datasetID string) (*domain.StructureSnapshot, error) {
	snap := &domain.StructureSnapshot{}

	rows, err := r.readDB.QueryContext(ctx,
		`SELECT id, kind, label, num_inputs, config FROM source_nodes WHERE dataset_id = ? ORDER BY id`, datasetID)
	if err != nil {
		return nil, mapDBError(err, "source nodes")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			n      domain.SourceNode
			config string
		)
		if err := rows.Scan(&n.ID, &n.Kind, &n.Label, &n.NumInputs, &config); err != nil {
			return nil, mapDBError(err, "source nodes")
		}
		n.Config = decodeParams(config)
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err, "source nodes")
	}

	edgeRows, err := r.readDB.QueryContext(ctx,
		`SELECT from_node_id, to_node_id, input_index FROM source_edges WHERE dataset_id = ? ORDER BY to_node_id, input_index`, datasetID)
	if err != nil {
		return nil, mapDBError(err, "source edges")
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var e domain.SourceEdge
		if err := edgeRows.Scan(&e.FromNodeID, &e.ToNodeID, &e.InputIndex); err != nil {
			return nil, mapDBError(err, "source edges")
		}
		snap.Edges = append(snap.Edges, e)
	}
	return snap, edgeRows.Err()
}

// Replace swaps the stored source DAG for the given snapshot in one
// transaction.
func (r *SourceGraphRepository) Replace(ctx context.Context, datasetID string, snap *domain.StructureSnapshot) error {
	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM source_edges WHERE dataset_id = ?`, datasetID); err != nil {
		return mapDBError(err, "source edges")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM source_nodes WHERE dataset_id = ?`, datasetID); err != nil {
		return mapDBError(err, "source nodes")
	}

	for _, n := range snap.Nodes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO source_nodes (dataset_id, id, kind, label, num_inputs, config)
			VALUES (?, ?, ?, ?, ?, ?)`,
			datasetID, n.ID, n.Kind, n.Label, n.NumInputs, encodeParams(n.Config)); err != nil {
			return mapDBError(err, "source node")
		}
	}
	for _, e := range snap.Edges {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO source_edges (dataset_id, from_node_id, to_node_id, input_index)
			VALUES (?, ?, ?, ?)`,
			datasetID, e.FromNodeID, e.ToNodeID, e.InputIndex); err != nil {
			return mapDBError(err, "source edge")
		}
	}

	return tx.Commit()
}
