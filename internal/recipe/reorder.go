package recipe

import (
	"context"
	"log/slog"
	"sync"

	"synthlab/internal/domain"
)

// Direction of a single-position move.
type Direction string

const (
	MoveUp   Direction = "up"
	MoveDown Direction = "down"
)

// Reorderer turns move/drop gestures into candidate orderings, validates
// them against the Model, and either submits the full gap-free sequence to
// the server or rejects locally with an explanation. It holds no state of
// its own beyond the last local (unsubmitted) error text.
type Reorderer struct {
	model   *Model
	client  PipelineClient
	dataset string
	logger  *slog.Logger

	mu       sync.Mutex
	localErr string
}

// NewReorderer creates a Reorderer bound to one dataset's model.
func NewReorderer(model *Model, client PipelineClient, datasetID string, logger *slog.Logger) *Reorderer {
	return &Reorderer{model: model, client: client, dataset: datasetID, logger: logger}
}

// LocalError returns the last local dependency-violation message, or empty.
// It is cleared by the next successful or no-op gesture.
func (r *Reorderer) LocalError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.localErr
}

func (r *Reorderer) setLocalErr(msg string) {
	r.mu.Lock()
	r.localErr = msg
	r.mu.Unlock()
}

// MoveStep computes the adjacent-swap candidate for moving stepID one
// position up or down. Moves at the boundary are silent no-ops and issue no
// network call.
func (r *Reorderer) MoveStep(ctx context.Context, stepID string, dir Direction) error {
	ids := r.model.OrderedIDs()
	i, ok := r.model.IndexOf(stepID)
	if !ok {
		return domain.ErrNotFound("step %s not found", stepID)
	}

	j := i + 1
	if dir == MoveUp {
		j = i - 1
	}
	if j < 0 || j >= len(ids) {
		r.setLocalErr("")
		return nil // boundary no-op
	}

	candidate := make([]string, len(ids))
	copy(candidate, ids)
	candidate[i], candidate[j] = candidate[j], candidate[i]
	return r.submit(ctx, candidate)
}

// DropStep computes the candidate produced by removing fromStepID and
// reinserting it at toStepID's position. Dropping a step onto itself is a
// no-op.
func (r *Reorderer) DropStep(ctx context.Context, fromStepID, toStepID string) error {
	if fromStepID == toStepID {
		r.setLocalErr("")
		return nil
	}
	from, ok := r.model.IndexOf(fromStepID)
	if !ok {
		return domain.ErrNotFound("step %s not found", fromStepID)
	}
	to, ok := r.model.IndexOf(toStepID)
	if !ok {
		return domain.ErrNotFound("step %s not found", toStepID)
	}

	ids := r.model.OrderedIDs()
	candidate := make([]string, 0, len(ids))
	candidate = append(candidate, ids[:from]...)
	candidate = append(candidate, ids[from+1:]...)
	// Reinsert so the moved step lands at the target's display position.
	candidate = append(candidate[:to], append([]string{fromStepID}, candidate[to:]...)...)
	return r.submit(ctx, candidate)
}

// submit validates the candidate order and, when consistent, sends the full
// sequence to the mutation collaborator. A dependency violation is rejected
// locally with no network call; any collaborator failure leaves local state
// untouched.
func (r *Reorderer) submit(ctx context.Context, candidate []string) error {
	if out := ValidateOrder(candidate, r.model); !out.OK {
		msg := "Reorder blocked: " + out.Reason
		r.setLocalErr(msg)
		return domain.ErrValidation("%s", msg)
	}

	snap, err := r.client.ReorderSteps(ctx, r.dataset, domain.ReorderRequest{
		Version: r.model.Version(),
		StepIDs: candidate,
	})
	if err != nil {
		r.logger.Warn("reorder failed", "dataset", r.dataset, "error", err)
		return err
	}

	r.setLocalErr("")
	r.model.Refresh(snap)
	return nil
}
