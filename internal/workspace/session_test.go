package workspace

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthlab/internal/domain"
	"synthlab/internal/recipe"
)

type sessionClient struct {
	snapshots map[string]*domain.StepSnapshot // version -> next snapshot
	current   atomic.Pointer[domain.StepSnapshot]

	previewCalls atomic.Int64
	deleteErr    error
}

func (c *sessionClient) ListSteps(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
	return c.current.Load(), nil
}

func (c *sessionClient) ReorderSteps(ctx context.Context, datasetID string, req domain.ReorderRequest) (*domain.StepSnapshot, error) {
	next := c.snapshots[req.Version]
	c.current.Store(next)
	return next, nil
}

func (c *sessionClient) DeleteStep(ctx context.Context, datasetID, version, stepID string, cascade bool) (*domain.StepSnapshot, error) {
	if c.deleteErr != nil {
		return nil, c.deleteErr
	}
	next := c.snapshots[version]
	c.current.Store(next)
	return next, nil
}

func (c *sessionClient) ValidateStructure(ctx context.Context, snap *domain.StructureSnapshot) (*domain.StructureValidation, error) {
	return &domain.StructureValidation{Valid: true}, nil
}

func (c *sessionClient) Materialize(ctx context.Context, datasetID string, rowLimit int, columns []string) (*domain.PreviewResult, error) {
	c.previewCalls.Add(1)
	return &domain.PreviewResult{Columns: []string{"id"}}, nil
}

func twoSteps(version string, ids ...string) *domain.StepSnapshot {
	snap := &domain.StepSnapshot{Version: version}
	for i, id := range ids {
		snap.Steps = append(snap.Steps, domain.Step{ID: id, Kind: "formula", OutputColumn: "col_" + id, Order: i})
		snap.Lineage = append(snap.Lineage, domain.LineageEntry{StepID: id, OutputColumn: "col_" + id})
	}
	return snap
}

func newSession(t *testing.T, c *sessionClient) *Session {
	t.Helper()
	s := NewSession(Collaborators{Pipeline: c, Validator: c, Previewer: c}, Config{
		Dataset: "orders",
		Quiet:   5 * time.Millisecond,
	}, slog.New(slog.DiscardHandler))
	t.Cleanup(s.Close)
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSession_OpenLoadsSnapshotAndSchedulesPreview(t *testing.T) {
	c := &sessionClient{}
	c.current.Store(twoSteps("v1", "A", "B"))
	s := newSession(t, c)

	require.NoError(t, s.Open(context.Background()))
	assert.Equal(t, "v1", s.Model.Version())
	assert.Equal(t, []string{"A", "B"}, s.Model.OrderedIDs())

	waitFor(t, func() bool { return c.previewCalls.Load() == 1 })
	waitFor(t, func() bool { return s.Materializer.State() == recipe.MaterializeDone })
}

func TestSession_MoveStepRefreshesModelAndPreview(t *testing.T) {
	c := &sessionClient{snapshots: map[string]*domain.StepSnapshot{
		"v1": twoSteps("v2", "B", "A"),
	}}
	c.current.Store(twoSteps("v1", "A", "B"))
	s := newSession(t, c)
	require.NoError(t, s.Open(context.Background()))
	waitFor(t, func() bool { return c.previewCalls.Load() == 1 })

	require.NoError(t, s.MoveStep(context.Background(), "A", recipe.MoveDown))
	assert.Equal(t, "v2", s.Model.Version())
	assert.Equal(t, []string{"B", "A"}, s.Model.OrderedIDs())
	waitFor(t, func() bool { return c.previewCalls.Load() == 2 })
}

func TestSession_BoundaryMoveSkipsPreview(t *testing.T) {
	c := &sessionClient{}
	c.current.Store(twoSteps("v1", "A", "B"))
	s := newSession(t, c)
	require.NoError(t, s.Open(context.Background()))
	waitFor(t, func() bool { return c.previewCalls.Load() == 1 })

	require.NoError(t, s.MoveStep(context.Background(), "A", recipe.MoveUp))
	assert.Equal(t, "v1", s.Model.Version())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), c.previewCalls.Load())
}

func TestSession_DeleteFlow(t *testing.T) {
	c := &sessionClient{snapshots: map[string]*domain.StepSnapshot{
		"v1": twoSteps("v2", "A"),
	}}
	c.current.Store(twoSteps("v1", "A", "B"))
	s := newSession(t, c)
	require.NoError(t, s.Open(context.Background()))

	require.NoError(t, s.Deleter.Request("B"))
	require.NoError(t, s.ConfirmDelete(context.Background()))
	assert.Equal(t, "v2", s.Model.Version())
	assert.Equal(t, []string{"A"}, s.Model.OrderedIDs())
	assert.Equal(t, recipe.DeleteIdle, s.Deleter.State())
}

func TestSession_StructureChangedFlowsToRevalidator(t *testing.T) {
	c := &sessionClient{}
	c.current.Store(twoSteps("v1", "A"))
	s := newSession(t, c)

	s.StructureChanged(context.Background(), &domain.StructureSnapshot{
		Nodes: []domain.SourceNode{{ID: "src"}},
	})
	assert.Equal(t, recipe.ValidationPending, s.Revalidator.State())
	waitFor(t, func() bool { return s.Revalidator.State() == recipe.ValidationValid })
}
