// Package workspace binds the consistency core into one interactive editing
// session per dataset: the lineage model, the reorder and delete engines,
// and the debounced revalidation and preview coordinators, all sharing one
// server-confirmed snapshot.
package workspace

import (
	"context"
	"log/slog"
	"time"

	"synthlab/internal/domain"
	"synthlab/internal/recipe"
)

// Collaborators groups the server-side interfaces a session needs.
type Collaborators struct {
	Pipeline  recipe.PipelineClient
	Validator recipe.StructureValidator
	Previewer recipe.PreviewMaterializer
}

// Config holds per-session knobs.
type Config struct {
	Dataset  string
	Quiet    time.Duration // debounce window; <= 0 selects the default
	RowLimit int           // preview row cap; <= 0 leaves it to the server
}

// Session is one user's editing session against one dataset. It owns the
// timers of its coordinators; Close releases them.
type Session struct {
	dataset string
	logger  *slog.Logger

	Model        *recipe.Model
	Reorderer    *recipe.Reorderer
	Deleter      *recipe.Deleter
	Revalidator  *recipe.Revalidator
	Materializer *recipe.Materializer

	pipeline recipe.PipelineClient
}

// NewSession creates a session. Call Open to load the initial snapshot.
func NewSession(c Collaborators, cfg Config, logger *slog.Logger) *Session {
	logger = logger.With("component", "workspace", "dataset", cfg.Dataset)
	model := recipe.NewModel()
	return &Session{
		dataset:      cfg.Dataset,
		logger:       logger,
		Model:        model,
		Reorderer:    recipe.NewReorderer(model, c.Pipeline, cfg.Dataset, logger),
		Deleter:      recipe.NewDeleter(model, c.Pipeline, cfg.Dataset, logger),
		Revalidator:  recipe.NewRevalidator(c.Validator, cfg.Quiet, logger),
		Materializer: recipe.NewMaterializer(c.Previewer, cfg.Dataset, cfg.RowLimit, cfg.Quiet, logger),
		pipeline:     c.Pipeline,
	}
}

// Open loads the authoritative snapshot and kicks off the first preview
// recompute.
func (s *Session) Open(ctx context.Context) error {
	snap, err := s.pipeline.ListSteps(ctx, s.dataset)
	if err != nil {
		return err
	}
	s.Model.Refresh(snap)
	s.Materializer.PipelineChanged(ctx, snap.Steps)
	return nil
}

// Refresh re-fetches the snapshot, replacing local state wholesale.
func (s *Session) Refresh(ctx context.Context) error {
	snap, err := s.pipeline.ListSteps(ctx, s.dataset)
	if err != nil {
		return err
	}
	s.Model.Refresh(snap)
	s.Materializer.PipelineChanged(ctx, snap.Steps)
	return nil
}

// MoveStep moves a step one position and, on success, schedules a preview
// recompute for the new order.
func (s *Session) MoveStep(ctx context.Context, stepID string, dir recipe.Direction) error {
	before := s.Model.Version()
	if err := s.Reorderer.MoveStep(ctx, stepID, dir); err != nil {
		return err
	}
	if s.Model.Version() != before {
		s.Materializer.PipelineChanged(ctx, s.Model.Steps())
	}
	return nil
}

// DropStep drags a step onto another step's position, scheduling a preview
// recompute when the order actually changed.
func (s *Session) DropStep(ctx context.Context, fromStepID, toStepID string) error {
	before := s.Model.Version()
	if err := s.Reorderer.DropStep(ctx, fromStepID, toStepID); err != nil {
		return err
	}
	if s.Model.Version() != before {
		s.Materializer.PipelineChanged(ctx, s.Model.Steps())
	}
	return nil
}

// ConfirmDelete confirms the pending delete without cascade. On success the
// preview recompute is scheduled for the surviving pipeline.
func (s *Session) ConfirmDelete(ctx context.Context) error {
	return s.confirmDelete(ctx, s.Deleter.Confirm)
}

// ConfirmDeleteCascade confirms the pending delete together with its
// transitive dependents.
func (s *Session) ConfirmDeleteCascade(ctx context.Context) error {
	return s.confirmDelete(ctx, s.Deleter.ConfirmCascade)
}

func (s *Session) confirmDelete(ctx context.Context, confirm func(context.Context) error) error {
	before := s.Model.Version()
	if err := confirm(ctx); err != nil {
		return err
	}
	if s.Model.Version() != before {
		s.Materializer.PipelineChanged(ctx, s.Model.Steps())
	}
	return nil
}

// StructureChanged forwards a source-DAG edit to the debounced revalidator.
func (s *Session) StructureChanged(ctx context.Context, snap *domain.StructureSnapshot) {
	s.Revalidator.StructureChanged(ctx, snap)
}

// Close releases the session's coordinator timers. The session must not be
// used afterwards.
func (s *Session) Close() {
	s.Revalidator.Close()
	s.Materializer.Close()
	s.logger.Debug("session closed")
}
