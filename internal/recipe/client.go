package recipe

import (
	"context"

	"synthlab/internal/domain"
)

// PipelineClient is the external pipeline-mutation collaborator. Mutations
// return the refreshed authoritative snapshot so callers can rebuild the
// Model; the core never assumes a local edit succeeded until then.
type PipelineClient interface {
	ListSteps(ctx context.Context, datasetID string) (*domain.StepSnapshot, error)
	ReorderSteps(ctx context.Context, datasetID string, req domain.ReorderRequest) (*domain.StepSnapshot, error)
	DeleteStep(ctx context.Context, datasetID, version, stepID string, cascade bool) (*domain.StepSnapshot, error)
}

// StructureValidator validates a source-DAG shape server-side.
type StructureValidator interface {
	ValidateStructure(ctx context.Context, snap *domain.StructureSnapshot) (*domain.StructureValidation, error)
}

// PreviewMaterializer recomputes preview rows for a dataset.
type PreviewMaterializer interface {
	Materialize(ctx context.Context, datasetID string, rowLimit int, columns []string) (*domain.PreviewResult, error)
}
