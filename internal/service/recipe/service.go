// Package recipe implements the server-side business logic for dataset
// recipe pipelines: step mutations guarded by the pipeline version token,
// cascade-aware deletes, source-structure validation, and preview
// materialization.
package recipe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"synthlab/internal/domain"
	"synthlab/internal/recipe"
)

// Previewer materializes a pipeline against the dataset's source table.
// rowLimit and columns are advisory; the implementation enforces its own cap
// and falls back to all columns when none are named.
type Previewer interface {
	Materialize(ctx context.Context, dataset *domain.Dataset, steps []domain.Step, rowLimit int, columns []string) (*domain.PreviewResult, error)
}

// ScheduleReloader allows the service to notify the scheduler to reload.
type ScheduleReloader interface {
	Reload(ctx context.Context) error
}

// Service provides business logic for datasets and their recipe pipelines.
type Service struct {
	datasets  domain.DatasetRepository
	steps     domain.StepRepository
	graphs    domain.SourceGraphRepository
	audit     domain.AuditRepository
	previewer Previewer
	logger    *slog.Logger
	reloader  ScheduleReloader
}

// NewService creates a new Service.
func NewService(
	datasets domain.DatasetRepository,
	steps domain.StepRepository,
	graphs domain.SourceGraphRepository,
	audit domain.AuditRepository,
	previewer Previewer,
	logger *slog.Logger,
) *Service {
	return &Service{
		datasets:  datasets,
		steps:     steps,
		graphs:    graphs,
		audit:     audit,
		previewer: previewer,
		logger:    logger.With("component", "recipe_service"),
	}
}

// SetScheduleReloader sets the schedule reloader (breaks circular dep).
func (s *Service) SetScheduleReloader(r ScheduleReloader) {
	s.reloader = r
}

// === Dataset CRUD ===

// CreateDataset creates a new dataset project.
func (s *Service) CreateDataset(ctx context.Context, principal string, req domain.CreateDatasetRequest) (*domain.Dataset, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d := &domain.Dataset{
		ID:          domain.NewID(),
		Name:        req.Name,
		Description: req.Description,
		SourceTable: req.SourceTable,
		RefreshCron: req.RefreshCron,
	}
	result, err := s.datasets.Create(ctx, d)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, principal, "dataset.create", result.ID, result.Name)
	s.reloadSchedules(ctx)
	return result, nil
}

// GetDataset fetches a dataset by name.
func (s *Service) GetDataset(ctx context.Context, name string) (*domain.Dataset, error) {
	return s.datasets.GetByName(ctx, name)
}

// ListDatasets returns a page of datasets.
func (s *Service) ListDatasets(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	return s.datasets.List(ctx, page)
}

// DeleteDataset removes a dataset and everything hanging off it.
func (s *Service) DeleteDataset(ctx context.Context, principal, name string) error {
	d, err := s.datasets.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if err := s.datasets.Delete(ctx, d.ID); err != nil {
		return err
	}
	s.recordAudit(ctx, principal, "dataset.delete", d.ID, d.Name)
	s.reloadSchedules(ctx)
	return nil
}

// === Pipeline steps ===

// ListSteps returns the current server-confirmed pipeline snapshot.
func (s *Service) ListSteps(ctx context.Context, datasetName string) (*domain.StepSnapshot, error) {
	d, err := s.datasets.GetByName(ctx, datasetName)
	if err != nil {
		return nil, err
	}
	return s.steps.Snapshot(ctx, d.ID)
}

// AddStep appends a step to the end of the pipeline and returns the fresh
// snapshot.
func (s *Service) AddStep(ctx context.Context, principal, datasetName string, req domain.CreateStepRequest) (*domain.StepSnapshot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	d, err := s.datasets.GetByName(ctx, datasetName)
	if err != nil {
		return nil, err
	}

	step := &domain.Step{
		ID:           domain.NewID(),
		Kind:         req.Kind,
		OutputColumn: req.OutputColumn,
		Expression:   req.Expression,
		Params:       req.Params,
	}
	if _, err := s.steps.AddStep(ctx, d.ID, step, req.Inputs, domain.NewID()); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, principal, "step.add", d.ID, step.OutputColumn)
	return s.steps.Snapshot(ctx, d.ID)
}

// ReorderSteps applies a full candidate ordering. The order is validated
// against the stored lineage before anything is written; a violation means
// no change and a ValidationError naming the first offending step.
func (s *Service) ReorderSteps(ctx context.Context, principal, datasetName string, req domain.ReorderRequest) (*domain.StepSnapshot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	d, err := s.datasets.GetByName(ctx, datasetName)
	if err != nil {
		return nil, err
	}

	snap, err := s.steps.Snapshot(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if snap.Version != req.Version {
		return nil, domain.ErrConflict("pipeline version mismatch: have %s, want %s", req.Version, snap.Version)
	}

	model := recipe.NewModel()
	model.Refresh(snap)
	if out := recipe.ValidateOrder(req.StepIDs, model); !out.OK {
		return nil, domain.ErrValidation("%s", out.Reason)
	}

	if err := s.steps.Reorder(ctx, d.ID, req.Version, req.StepIDs, domain.NewID()); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, principal, "step.reorder", d.ID, fmt.Sprintf("%d steps", len(req.StepIDs)))
	return s.steps.Snapshot(ctx, d.ID)
}

// DeleteStep removes a step. Without cascade, a step whose output feeds
// later steps is refused with a DependencyConflictError carrying the full
// downstream impact; with cascade, the step and every transitive dependent
// are removed together. Either way the returned snapshot is the new
// server-confirmed state.
func (s *Service) DeleteStep(ctx context.Context, principal, datasetName, version, stepID string, cascade bool) (*domain.StepSnapshot, error) {
	d, err := s.datasets.GetByName(ctx, datasetName)
	if err != nil {
		return nil, err
	}

	snap, err := s.steps.Snapshot(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if snap.Version != version {
		return nil, domain.ErrConflict("pipeline version mismatch: have %s, want %s", version, snap.Version)
	}

	found := false
	for _, st := range snap.Steps {
		if st.ID == stepID {
			found = true
			break
		}
	}
	if !found {
		return nil, domain.ErrNotFound("step %s not found", stepID)
	}

	dependents, columns := dependentClosure(snap, stepID)
	if len(dependents) > 0 && !cascade {
		return nil, domain.ErrDependencyConflict(
			fmt.Sprintf("deleting this step would break %d downstream step(s) reading %s",
				len(dependents), strings.Join(columns, ", ")),
			dependents, columns)
	}

	doomed := append([]string{stepID}, dependents...)
	if err := s.steps.DeleteSteps(ctx, d.ID, version, doomed, domain.NewID()); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, principal, "step.delete", d.ID, fmt.Sprintf("%d step(s)", len(doomed)))
	return s.steps.Snapshot(ctx, d.ID)
}

// dependentClosure returns the transitive downstream dependents of a step
// (excluding the step itself) in pipeline order, plus the columns those
// dependents produce. A later step depends on the doomed set when one of its
// input columns has producers and every producer earlier in the pipeline is
// itself doomed.
func dependentClosure(snap *domain.StepSnapshot, stepID string) (stepIDs, columns []string) {
	inputs := make(map[string][]string, len(snap.Lineage))
	for _, e := range snap.Lineage {
		inputs[e.StepID] = e.Inputs
	}

	doomed := map[string]bool{stepID: true}
	for {
		grew := false
		// Track, per column, which producers precede the step under
		// consideration.
		producersBefore := make(map[string][]string)
		for _, st := range snap.Steps {
			if !doomed[st.ID] {
				for _, col := range inputs[st.ID] {
					before := producersBefore[col]
					if len(before) == 0 {
						continue // base column
					}
					alive := false
					for _, p := range before {
						if !doomed[p] {
							alive = true
							break
						}
					}
					if !alive {
						doomed[st.ID] = true
						grew = true
						break
					}
				}
			}
			if st.OutputColumn != "" {
				producersBefore[st.OutputColumn] = append(producersBefore[st.OutputColumn], st.ID)
			}
		}
		if !grew {
			break
		}
	}

	for _, st := range snap.Steps {
		if st.ID != stepID && doomed[st.ID] {
			stepIDs = append(stepIDs, st.ID)
			columns = append(columns, st.OutputColumn)
		}
	}
	return stepIDs, columns
}

// === Source structure ===

// ValidateStructure validates the submitted source DAG and, when it is
// well-formed, persists it as the dataset's stored graph. An invalid graph
// is reported, not persisted, and is not an error at this level.
func (s *Service) ValidateStructure(ctx context.Context, datasetName string, snap *domain.StructureSnapshot) (*domain.StructureValidation, error) {
	d, err := s.datasets.GetByName(ctx, datasetName)
	if err != nil {
		return nil, err
	}

	result := CheckStructure(snap)
	if result.Valid {
		if err := s.graphs.Replace(ctx, d.ID, snap); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// GetStructure returns the stored source DAG for a dataset.
func (s *Service) GetStructure(ctx context.Context, datasetName string) (*domain.StructureSnapshot, error) {
	d, err := s.datasets.GetByName(ctx, datasetName)
	if err != nil {
		return nil, err
	}
	return s.graphs.Get(ctx, d.ID)
}

// === Preview ===

// Materialize runs the dataset's current pipeline through the preview
// engine and records the preview time. rowLimit and columns are passed
// through to the engine, which caps the limit at its configured maximum.
func (s *Service) Materialize(ctx context.Context, principal, datasetName string, rowLimit int, columns []string) (*domain.PreviewResult, error) {
	d, err := s.datasets.GetByName(ctx, datasetName)
	if err != nil {
		return nil, err
	}
	snap, err := s.steps.Snapshot(ctx, d.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.previewer.Materialize(ctx, d, snap.Steps, rowLimit, columns)
	if err != nil {
		s.recordAuditStatus(ctx, principal, "preview", d.ID, err.Error(), "error")
		return nil, err
	}

	if err := s.datasets.TouchPreview(ctx, d.ID, time.Now()); err != nil {
		s.logger.Warn("failed to record preview time", "dataset", d.Name, "error", err)
	}
	s.recordAudit(ctx, principal, "preview", d.ID, fmt.Sprintf("%d rows", len(result.Rows)))
	return result, nil
}

// === Audit ===

// ListAudit returns a page of audit entries.
func (s *Service) ListAudit(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	return s.audit.List(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, principal, action, datasetID, detail string) {
	s.recordAuditStatus(ctx, principal, action, datasetID, detail, "success")
}

// recordAuditStatus is best-effort: a failed audit write never fails the
// operation it describes.
func (s *Service) recordAuditStatus(ctx context.Context, principal, action, datasetID, detail, status string) {
	err := s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: principal,
		Action:    action,
		DatasetID: datasetID,
		Detail:    detail,
		Status:    status,
	})
	if err != nil {
		s.logger.Warn("audit write failed", "action", action, "error", err)
	}
}

func (s *Service) reloadSchedules(ctx context.Context) {
	if s.reloader == nil {
		return
	}
	if err := s.reloader.Reload(ctx); err != nil {
		s.logger.Warn("schedule reload failed", "error", err)
	}
}
