package domain

import (
	"context"
	"time"
)

// DatasetRepository persists datasets.
type DatasetRepository interface {
	Create(ctx context.Context, d *Dataset) (*Dataset, error)
	GetByID(ctx context.Context, id string) (*Dataset, error)
	GetByName(ctx context.Context, name string) (*Dataset, error)
	List(ctx context.Context, page PageRequest) ([]Dataset, int64, error)
	Delete(ctx context.Context, id string) error
	ListScheduled(ctx context.Context) ([]Dataset, error)
	TouchPreview(ctx context.Context, id string, at time.Time) error
}

// StepRepository persists pipeline steps and their lineage. All mutations
// are transactional and guarded by the dataset's pipeline version token:
// a mismatch between expectVersion and the stored version yields a
// ConflictError and no change.
type StepRepository interface {
	// Snapshot returns the full step list (in order), lineage, and current
	// version for a dataset.
	Snapshot(ctx context.Context, datasetID string) (*StepSnapshot, error)

	// AddStep appends a step at the end of the order with its lineage inputs
	// and installs newVersion.
	AddStep(ctx context.Context, datasetID string, step *Step, inputs []string, newVersion string) (*Step, error)

	// Reorder rewrites step_order to the dense zero-based sequence given by
	// orderedIDs and installs newVersion.
	Reorder(ctx context.Context, datasetID, expectVersion string, orderedIDs []string, newVersion string) error

	// DeleteSteps removes the given steps and their lineage, compacts the
	// remaining order, and installs newVersion.
	DeleteSteps(ctx context.Context, datasetID, expectVersion string, stepIDs []string, newVersion string) error
}

// SourceGraphRepository persists the source DAG snapshot per dataset.
type SourceGraphRepository interface {
	Get(ctx context.Context, datasetID string) (*StructureSnapshot, error)
	Replace(ctx context.Context, datasetID string, snap *StructureSnapshot) error
}

// AuditRepository records workspace actions.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, int64, error)
}
