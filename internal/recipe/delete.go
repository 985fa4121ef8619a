package recipe

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"synthlab/internal/domain"
)

// DeleteState is the phase of an in-progress delete attempt.
type DeleteState string

const (
	// DeleteIdle means no delete is requested.
	DeleteIdle DeleteState = "idle"
	// DeleteConfirmPending means the user has picked a step but not confirmed.
	DeleteConfirmPending DeleteState = "confirm_pending"
	// Deleting means a delete call is in flight.
	Deleting DeleteState = "deleting"
	// DeleteImpactShown means the server rejected a non-cascading delete and
	// reported downstream impact; the user may retry or force a cascade.
	DeleteImpactShown DeleteState = "impact_shown"
)

// Deleter drives cascade-aware step deletion. It never predicts cascade
// impact itself — only the server lineage is authoritative across concurrent
// edits — it just interprets the structured conflict the server returns.
type Deleter struct {
	model   *Model
	client  PipelineClient
	dataset string
	logger  *slog.Logger

	mu      sync.Mutex
	state   DeleteState
	stepID  string
	impact  *domain.DependencyImpact
	lastErr string
}

// NewDeleter creates a Deleter bound to one dataset's model.
func NewDeleter(model *Model, client PipelineClient, datasetID string, logger *slog.Logger) *Deleter {
	return &Deleter{model: model, client: client, dataset: datasetID, logger: logger, state: DeleteIdle}
}

// State returns the current delete phase.
func (d *Deleter) State() DeleteState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Impact returns the server-reported impact while in DeleteImpactShown.
func (d *Deleter) Impact() *domain.DependencyImpact {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.impact
}

// LastError returns the last generic (non-conflict) failure message.
func (d *Deleter) LastError() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// Request marks intent to delete a step. No network call is made yet.
func (d *Deleter) Request(stepID string) error {
	if _, ok := d.model.IndexOf(stepID); !ok {
		return domain.ErrNotFound("step %s not found", stepID)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = DeleteConfirmPending
	d.stepID = stepID
	d.impact = nil
	d.lastErr = ""
	return nil
}

// Cancel abandons the pending delete and discards any impact.
func (d *Deleter) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = DeleteIdle
	d.stepID = ""
	d.impact = nil
}

// Confirm issues the delete with cascade=false. From DeleteImpactShown this
// is a plain retry, for conflicts that turn out to be transient.
func (d *Deleter) Confirm(ctx context.Context) error {
	return d.run(ctx, false)
}

// ConfirmCascade issues the delete with cascade=true, removing the step
// together with every dependent the server identifies.
func (d *Deleter) ConfirmCascade(ctx context.Context) error {
	return d.run(ctx, true)
}

func (d *Deleter) run(ctx context.Context, cascade bool) error {
	d.mu.Lock()
	if d.state != DeleteConfirmPending && d.state != DeleteImpactShown {
		d.mu.Unlock()
		return domain.ErrValidation("no delete is pending")
	}
	stepID := d.stepID
	d.state = Deleting
	d.mu.Unlock()

	snap, err := d.client.DeleteStep(ctx, d.dataset, d.model.Version(), stepID, cascade)

	d.mu.Lock()
	defer d.mu.Unlock()

	var conflict *domain.DependencyConflictError
	switch {
	case err == nil:
		d.state = DeleteIdle
		d.stepID = ""
		d.impact = nil
		d.lastErr = ""
		d.model.Refresh(snap)
		return nil
	case errors.As(err, &conflict):
		d.state = DeleteImpactShown
		d.impact = &domain.DependencyImpact{
			Message:         conflict.Message,
			AffectedStepIDs: conflict.AffectedStepIDs,
			AffectedColumns: conflict.AffectedColumns,
		}
		return nil
	default:
		d.logger.Warn("delete failed", "dataset", d.dataset, "step", stepID, "error", err)
		d.state = DeleteIdle
		d.stepID = ""
		d.impact = nil
		d.lastErr = "Delete failed: " + err.Error()
		return err
	}
}
