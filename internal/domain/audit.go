package domain

import "time"

// AuditEntry records one mutation or notable action against the workspace.
type AuditEntry struct {
	ID        string
	Principal string
	Action    string // e.g. "step.add", "step.reorder", "step.delete"
	DatasetID string
	Detail    string
	Status    string // "success" or "error"
	CreatedAt time.Time
}

// AuditFilter holds filter parameters for querying audit entries.
type AuditFilter struct {
	DatasetID *string
	Action    *string
	Page      PageRequest
}
