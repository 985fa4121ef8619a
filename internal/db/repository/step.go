package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"synthlab/internal/domain"
)

// StepRepository implements domain.StepRepository over SQLite. Every
// mutation runs in a single transaction that checks the dataset's stored
// pipeline version against the caller's expectation before touching rows.
type StepRepository struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

var _ domain.StepRepository = (*StepRepository)(nil)

// NewStepRepository creates a StepRepository with separate write and read
// pools.
func NewStepRepository(writeDB, readDB *sql.DB) *StepRepository {
	return &StepRepository{writeDB: writeDB, readDB: readDB}
}

// Snapshot returns the ordered step list, full lineage, and current version
// for a dataset.
func (r *StepRepository) Snapshot(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
	var version string
	err := r.readDB.QueryRowContext(ctx,
		`SELECT pipeline_version FROM datasets WHERE id = ?`, datasetID).Scan(&version)
	if err != nil {
		return nil, mapDBError(err, "dataset")
	}

	rows, err := r.readDB.QueryContext(ctx, `
		SELECT id, dataset_id, kind, output_column, expression, params, step_order, created_at
		FROM pipeline_steps WHERE dataset_id = ? ORDER BY step_order`, datasetID)
	if err != nil {
		return nil, mapDBError(err, "pipeline steps")
	}
	defer rows.Close()

	snap := &domain.StepSnapshot{Version: version}
	for rows.Next() {
		var (
			s         domain.Step
			params    string
			createdAt string
		)
		if err := rows.Scan(&s.ID, &s.DatasetID, &s.Kind, &s.OutputColumn, &s.Expression, &params, &s.Order, &createdAt); err != nil {
			return nil, mapDBError(err, "pipeline steps")
		}
		s.Params = decodeParams(params)
		s.CreatedAt = parseTime(createdAt)
		snap.Steps = append(snap.Steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err, "pipeline steps")
	}

	lineage, err := r.lineageFor(ctx, snap.Steps)
	if err != nil {
		return nil, err
	}
	snap.Lineage = lineage
	return snap, nil
}

func (r *StepRepository) lineageFor(ctx context.Context, steps []domain.Step) ([]domain.LineageEntry, error) {
	if len(steps) == 0 {
		return nil, nil
	}

	ids := make([]any, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	rows, err := r.readDB.QueryContext(ctx,
		`SELECT step_id, input_column FROM step_lineage WHERE step_id IN (`+placeholders(len(ids))+`) ORDER BY input_column`,
		ids...)
	if err != nil {
		return nil, mapDBError(err, "step lineage")
	}
	defer rows.Close()

	inputs := make(map[string][]string, len(steps))
	for rows.Next() {
		var stepID, col string
		if err := rows.Scan(&stepID, &col); err != nil {
			return nil, mapDBError(err, "step lineage")
		}
		inputs[stepID] = append(inputs[stepID], col)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err, "step lineage")
	}

	// One entry per step, in pipeline order, even when a step reads nothing.
	out := make([]domain.LineageEntry, 0, len(steps))
	for _, s := range steps {
		out = append(out, domain.LineageEntry{
			StepID:       s.ID,
			OutputColumn: s.OutputColumn,
			Inputs:       inputs[s.ID],
		})
	}
	return out, nil
}

// AddStep appends a step at the end of the pipeline with its lineage inputs
// and installs newVersion.
func (r *StepRepository) AddStep(ctx context.Context, datasetID string, step *domain.Step, inputs []string, newVersion string) (*domain.Step, error) {
	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockVersion(ctx, tx, datasetID, ""); err != nil {
		return nil, err
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(step_order) + 1, 0) FROM pipeline_steps WHERE dataset_id = ?`,
		datasetID).Scan(&next); err != nil {
		return nil, mapDBError(err, "pipeline steps")
	}

	now := formatTime(time.Now())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO pipeline_steps (id, dataset_id, kind, output_column, expression, params, step_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID, datasetID, step.Kind, step.OutputColumn, step.Expression, encodeParams(step.Params), next, now)
	if err != nil {
		return nil, mapDBError(err, "pipeline step")
	}

	for _, col := range inputs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO step_lineage (step_id, input_column) VALUES (?, ?)`, step.ID, col); err != nil {
			return nil, mapDBError(err, "step lineage")
		}
	}

	if err := installVersion(ctx, tx, datasetID, newVersion); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	out := *step
	out.DatasetID = datasetID
	out.Order = next
	out.CreatedAt = parseTime(now)
	return &out, nil
}

// Reorder rewrites step_order to the dense zero-based sequence given by
// orderedIDs and installs newVersion. The id set must exactly match the
// dataset's current steps.
func (r *StepRepository) Reorder(ctx context.Context, datasetID, expectVersion string, orderedIDs []string, newVersion string) error {
	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockVersion(ctx, tx, datasetID, expectVersion); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pipeline_steps WHERE dataset_id = ?`, datasetID).Scan(&count); err != nil {
		return mapDBError(err, "pipeline steps")
	}
	if count != len(orderedIDs) {
		return domain.ErrValidation("reorder must list all %d steps, got %d", count, len(orderedIDs))
	}

	// Two passes to avoid tripping the (dataset_id, step_order) uniqueness
	// constraint mid-rewrite.
	for i, id := range orderedIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE pipeline_steps SET step_order = ? WHERE id = ? AND dataset_id = ?`,
			-(i + 1), id, datasetID)
		if err != nil {
			return mapDBError(err, "pipeline step")
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return domain.ErrValidation("unknown step id %s", id)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE pipeline_steps SET step_order = -step_order - 1 WHERE dataset_id = ?`, datasetID); err != nil {
		return mapDBError(err, "pipeline steps")
	}

	if err := installVersion(ctx, tx, datasetID, newVersion); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteSteps removes the given steps and their lineage, compacts the
// remaining order, and installs newVersion.
func (r *StepRepository) DeleteSteps(ctx context.Context, datasetID, expectVersion string, stepIDs []string, newVersion string) error {
	if len(stepIDs) == 0 {
		return domain.ErrValidation("no step ids given")
	}

	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockVersion(ctx, tx, datasetID, expectVersion); err != nil {
		return err
	}

	args := make([]any, 0, len(stepIDs)+1)
	for _, id := range stepIDs {
		args = append(args, id)
	}
	args = append(args, datasetID)

	res, err := tx.ExecContext(ctx,
		`DELETE FROM pipeline_steps WHERE id IN (`+placeholders(len(stepIDs))+`) AND dataset_id = ?`, args...)
	if err != nil {
		return mapDBError(err, "pipeline steps")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapDBError(err, "pipeline steps")
	}
	if int(n) != len(stepIDs) {
		return domain.ErrNotFound("one or more steps not found")
	}

	// Compact the surviving steps back to a dense zero-based order.
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM pipeline_steps WHERE dataset_id = ? ORDER BY step_order`, datasetID)
	if err != nil {
		return mapDBError(err, "pipeline steps")
	}
	var survivors []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return mapDBError(err, "pipeline steps")
		}
		survivors = append(survivors, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return mapDBError(err, "pipeline steps")
	}

	for i, id := range survivors {
		if _, err := tx.ExecContext(ctx,
			`UPDATE pipeline_steps SET step_order = ? WHERE id = ?`, -(i + 1), id); err != nil {
			return mapDBError(err, "pipeline step")
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE pipeline_steps SET step_order = -step_order - 1 WHERE dataset_id = ?`, datasetID); err != nil {
		return mapDBError(err, "pipeline steps")
	}

	if err := installVersion(ctx, tx, datasetID, newVersion); err != nil {
		return err
	}
	return tx.Commit()
}

// lockVersion reads the dataset's current pipeline version inside the
// transaction. With a non-empty expect it enforces the optimistic guard:
// a mismatch returns a ConflictError and the transaction rolls back.
func lockVersion(ctx context.Context, tx *sql.Tx, datasetID, expect string) (string, error) {
	var current string
	err := tx.QueryRowContext(ctx,
		`SELECT pipeline_version FROM datasets WHERE id = ?`, datasetID).Scan(&current)
	if err != nil {
		return "", mapDBError(err, "dataset")
	}
	if expect != "" && current != expect {
		return "", domain.ErrConflict("pipeline version mismatch: have %s, want %s", expect, current)
	}
	return current, nil
}

func installVersion(ctx context.Context, tx *sql.Tx, datasetID, version string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE datasets SET pipeline_version = ?, updated_at = ? WHERE id = ?`,
		version, formatTime(time.Now()), datasetID)
	return mapDBError(err, "dataset")
}
