package recipe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"synthlab/internal/domain"
)

// DefaultQuietPeriod is the debounce window applied to structural changes
// before a validation or materialize call is issued.
const DefaultQuietPeriod = 800 * time.Millisecond

// debouncer coalesces bursts of structural changes into one call and stamps
// each scheduled call with a monotonic epoch. A response is only applied
// when its epoch is still current, which discards out-of-order completions
// without needing transport-level cancellation.
type debouncer struct {
	mu     sync.Mutex
	epoch  uint64
	timer  *time.Timer
	quiet  time.Duration
	closed bool
}

func newDebouncer(quiet time.Duration) *debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &debouncer{quiet: quiet}
}

// schedule increments the epoch and (re)arms the timer. The previous
// un-fired timer, if any, is cancelled — standard debounce. fire runs on
// the timer goroutine with the epoch captured at schedule time.
func (d *debouncer) schedule(fire func(epoch uint64)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.epoch++
	myEpoch := d.epoch
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, func() { fire(myEpoch) })
}

// invalidate bumps the epoch and cancels any pending timer without
// scheduling anything, so in-flight responses are discarded on arrival.
func (d *debouncer) invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.epoch++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// current reports whether the given epoch is still the latest.
func (d *debouncer) current(epoch uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed && epoch == d.epoch
}

// close permanently stops the debouncer.
func (d *debouncer) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// ValidationState is the presentation state of the revalidation coordinator.
type ValidationState string

const (
	// ValidationIdle means the structure has not been evaluated yet.
	ValidationIdle ValidationState = "idle"
	// ValidationPending means a validation call is scheduled or in flight.
	ValidationPending ValidationState = "pending"
	// ValidationValid means the last applied result was valid.
	ValidationValid ValidationState = "valid"
	// ValidationInvalid means the last applied result carried errors.
	ValidationInvalid ValidationState = "invalid"
)

// Revalidator debounces rapid source-DAG edits into a single server
// validation call and discards stale responses via the epoch guard. One
// instance belongs to one editing session; Close releases its timer.
type Revalidator struct {
	deb    *debouncer
	client StructureValidator
	logger *slog.Logger

	mu     sync.Mutex
	state  ValidationState
	result *domain.StructureValidation
}

// NewRevalidator creates a Revalidator. quiet <= 0 selects the default
// 800ms window.
func NewRevalidator(client StructureValidator, quiet time.Duration, logger *slog.Logger) *Revalidator {
	return &Revalidator{deb: newDebouncer(quiet), client: client, logger: logger, state: ValidationIdle}
}

// StructureChanged notes a structural edit. An empty structure resets state
// synchronously and issues no call; otherwise a debounced validation is
// scheduled, superseding any pending one.
func (r *Revalidator) StructureChanged(ctx context.Context, snap *domain.StructureSnapshot) {
	if snap == nil || len(snap.Nodes) == 0 {
		r.deb.invalidate()
		r.mu.Lock()
		r.state = ValidationIdle
		r.result = nil
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	r.state = ValidationPending
	r.mu.Unlock()

	r.deb.schedule(func(epoch uint64) {
		res, err := r.client.ValidateStructure(ctx, snap)
		if !r.deb.current(epoch) {
			return // stale: a newer structural change superseded this call
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.logger.Warn("structure validation failed", "error", err)
			r.state = ValidationIdle
			r.result = nil
			return
		}
		r.result = res
		if res.Valid {
			r.state = ValidationValid
		} else {
			r.state = ValidationInvalid
		}
	})
}

// State returns the current presentation state.
func (r *Revalidator) State() ValidationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the last applied validation result, or nil.
func (r *Revalidator) Result() *domain.StructureValidation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Close stops the coordinator; no further state writes occur.
func (r *Revalidator) Close() {
	r.deb.close()
}

// MaterializeState is the presentation state of the materialize coordinator.
type MaterializeState string

const (
	// MaterializeIdle means no preview has been computed yet.
	MaterializeIdle MaterializeState = "idle"
	// Materializing means a recompute is scheduled or in flight.
	Materializing MaterializeState = "materializing"
	// MaterializeDone means preview rows are available.
	MaterializeDone MaterializeState = "done"
)

// Materializer is the preview analogue of Revalidator: it debounces step
// list changes and recomputes preview rows, keeping only the most recent
// request's result.
type Materializer struct {
	deb      *debouncer
	client   PreviewMaterializer
	dataset  string
	rowLimit int
	logger   *slog.Logger

	mu     sync.Mutex
	state  MaterializeState
	result *domain.PreviewResult
}

// NewMaterializer creates a Materializer for one dataset. quiet <= 0
// selects the default 800ms window.
func NewMaterializer(client PreviewMaterializer, datasetID string, rowLimit int, quiet time.Duration, logger *slog.Logger) *Materializer {
	return &Materializer{
		deb:      newDebouncer(quiet),
		client:   client,
		dataset:  datasetID,
		rowLimit: rowLimit,
		logger:   logger,
		state:    MaterializeIdle,
	}
}

// PipelineChanged notes that the step list changed. An empty pipeline
// resets state synchronously with no network call.
func (m *Materializer) PipelineChanged(ctx context.Context, steps []domain.Step) {
	if len(steps) == 0 {
		m.deb.invalidate()
		m.mu.Lock()
		m.state = MaterializeIdle
		m.result = nil
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.state = Materializing
	m.mu.Unlock()

	m.deb.schedule(func(epoch uint64) {
		res, err := m.client.Materialize(ctx, m.dataset, m.rowLimit, nil)
		if !m.deb.current(epoch) {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if err != nil {
			m.logger.Warn("materialize failed", "dataset", m.dataset, "error", err)
			m.state = MaterializeIdle
			m.result = nil
			return
		}
		m.state = MaterializeDone
		m.result = res
	})
}

// State returns the current presentation state.
func (m *Materializer) State() MaterializeState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Rows returns the last applied preview result, or nil.
func (m *Materializer) Rows() *domain.PreviewResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// Close stops the coordinator; no further state writes occur.
func (m *Materializer) Close() {
	m.deb.close()
}
