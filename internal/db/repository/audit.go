package repository

import (
	"context"
	"database/sql"
	"time"

	"synthlab/internal/domain"
)

// AuditRepository implements domain.AuditRepository over SQLite.
type AuditRepository struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

var _ domain.AuditRepository = (*AuditRepository)(nil)

// NewAuditRepository creates an AuditRepository with separate write and read
// pools.
func NewAuditRepository(writeDB, readDB *sql.DB) *AuditRepository {
	return &AuditRepository{writeDB: writeDB, readDB: readDB}
}

// Insert records one audit entry.
func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO audit_log (id, principal, action, dataset_id, detail, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Principal, e.Action, e.DatasetID, e.Detail, e.Status, formatTime(e.CreatedAt))
	return mapDBError(err, "audit entry")
}

// List returns a page of audit entries, newest first, filtered by dataset
// and action when given.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	where := ` WHERE 1=1`
	var args []any
	if filter.DatasetID != nil {
		where += ` AND dataset_id = ?`
		args = append(args, *filter.DatasetID)
	}
	if filter.Action != nil {
		where += ` AND action = ?`
		args = append(args, *filter.Action)
	}

	var total int64
	if err := r.readDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, mapDBError(err, "audit log")
	}

	query := `SELECT id, principal, action, dataset_id, detail, status, created_at FROM audit_log` +
		where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Page.Limit(), filter.Page.Offset())

	rows, err := r.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, mapDBError(err, "audit log")
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e         domain.AuditEntry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Principal, &e.Action, &e.DatasetID, &e.Detail, &e.Status, &createdAt); err != nil {
			return nil, 0, mapDBError(err, "audit log")
		}
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, total, rows.Err()
}
