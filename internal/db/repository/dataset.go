package repository

import (
	"context"
	"database/sql"
	"time"

	"synthlab/internal/domain"
)

// DatasetRepository implements domain.DatasetRepository over SQLite.
type DatasetRepository struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

var _ domain.DatasetRepository = (*DatasetRepository)(nil)

// NewDatasetRepository creates a DatasetRepository with separate write and
// read pools.
func NewDatasetRepository(writeDB, readDB *sql.DB) *DatasetRepository {
	return &DatasetRepository{writeDB: writeDB, readDB: readDB}
}

const datasetColumns = `id, name, description, source_table, refresh_cron, created_at, updated_at, last_preview_at`

func scanDataset(row interface{ Scan(...any) error }) (*domain.Dataset, error) {
	var (
		d             domain.Dataset
		refreshCron   sql.NullString
		createdAt     string
		updatedAt     string
		lastPreviewAt sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Description, &d.SourceTable, &refreshCron, &createdAt, &updatedAt, &lastPreviewAt); err != nil {
		return nil, err
	}
	d.RefreshCron = stringPtr(refreshCron)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	d.LastPreviewAt = timePtr(lastPreviewAt)
	return &d, nil
}

// Create inserts a new dataset with a fresh pipeline version.
func (r *DatasetRepository) Create(ctx context.Context, d *domain.Dataset) (*domain.Dataset, error) {
	now := formatTime(time.Now())
	_, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO datasets (id, name, description, source_table, refresh_cron, pipeline_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Description, d.SourceTable, nullString(d.RefreshCron), domain.NewID(), now, now,
	)
	if err != nil {
		return nil, mapDBError(err, "dataset")
	}
	return r.GetByID(ctx, d.ID)
}

// GetByID fetches a dataset by its id.
func (r *DatasetRepository) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	row := r.readDB.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id)
	d, err := scanDataset(row)
	if err != nil {
		return nil, mapDBError(err, "dataset")
	}
	return d, nil
}

// GetByName fetches a dataset by its unique name.
func (r *DatasetRepository) GetByName(ctx context.Context, name string) (*domain.Dataset, error) {
	row := r.readDB.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE name = ?`, name)
	d, err := scanDataset(row)
	if err != nil {
		return nil, mapDBError(err, "dataset")
	}
	return d, nil
}

// List returns a page of datasets ordered by name, plus the total count.
func (r *DatasetRepository) List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	var total int64
	if err := r.readDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets`).Scan(&total); err != nil {
		return nil, 0, mapDBError(err, "datasets")
	}

	rows, err := r.readDB.QueryContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets ORDER BY name LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset(),
	)
	if err != nil {
		return nil, 0, mapDBError(err, "datasets")
	}
	defer rows.Close()

	var out []domain.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, 0, mapDBError(err, "datasets")
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapDBError(err, "datasets")
	}
	return out, total, nil
}

// Delete removes a dataset. Steps, lineage, and the source graph cascade via
// foreign keys.
func (r *DatasetRepository) Delete(ctx context.Context, id string) error {
	res, err := r.writeDB.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err, "dataset")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapDBError(err, "dataset")
	}
	if n == 0 {
		return domain.ErrNotFound("dataset not found")
	}
	return nil
}

// ListScheduled returns all datasets that carry a refresh schedule.
func (r *DatasetRepository) ListScheduled(ctx context.Context) ([]domain.Dataset, error) {
	rows, err := r.readDB.QueryContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE refresh_cron IS NOT NULL ORDER BY name`)
	if err != nil {
		return nil, mapDBError(err, "datasets")
	}
	defer rows.Close()

	var out []domain.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, mapDBError(err, "datasets")
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// TouchPreview records the time of the most recent preview materialization.
func (r *DatasetRepository) TouchPreview(ctx context.Context, id string, at time.Time) error {
	_, err := r.writeDB.ExecContext(ctx,
		`UPDATE datasets SET last_preview_at = ? WHERE id = ?`, formatTime(at), id)
	return mapDBError(err, "dataset")
}
