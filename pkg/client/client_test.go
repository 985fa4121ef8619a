package client

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthlab/internal/api"
	"synthlab/internal/domain"
	recipesvc "synthlab/internal/service/recipe"
	"synthlab/internal/testutil"
)

type noopPreviewer struct {
	gotRowLimit int
	gotColumns  []string
}

func (p *noopPreviewer) Materialize(ctx context.Context, dataset *domain.Dataset, steps []domain.Step, rowLimit int, columns []string) (*domain.PreviewResult, error) {
	p.gotRowLimit = rowLimit
	p.gotColumns = columns
	return &domain.PreviewResult{Columns: []string{"id"}}, nil
}

// newTestServer wires the real router and service over repository mocks, so
// the client tests exercise the full wire round trip.
func newTestServer(t *testing.T, steps *testutil.MockStepRepo) (*Client, *noopPreviewer) {
	t.Helper()
	datasets := &testutil.MockDatasetRepo{
		GetByNameFunc: func(ctx context.Context, name string) (*domain.Dataset, error) {
			if name != "orders" {
				return nil, domain.ErrNotFound("dataset not found")
			}
			return &domain.Dataset{ID: "ds1", Name: "orders", SourceTable: "raw_orders"}, nil
		},
		TouchPreviewFunc: func(ctx context.Context, id string, at time.Time) error {
			return nil
		},
	}
	previewer := &noopPreviewer{}
	svc := recipesvc.NewService(datasets, steps, &testutil.MockSourceGraphRepo{},
		&testutil.MockAuditRepo{}, previewer, slog.New(slog.DiscardHandler))
	h := api.NewHandler(svc, slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(api.NewRouter(h, api.RouterConfig{CORSAllowedOrigins: []string{"*"}}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	c.Principal = "tester"
	return c, previewer
}

func pipelineFixture() *domain.StepSnapshot {
	return &domain.StepSnapshot{
		Version: "v1",
		Steps: []domain.Step{
			{ID: "A", Kind: "formula", OutputColumn: "col_a", Expression: "1"},
			{ID: "B", Kind: "formula", OutputColumn: "col_b", Expression: "col_a + 1"},
		},
		Lineage: []domain.LineageEntry{
			{StepID: "A", OutputColumn: "col_a"},
			{StepID: "B", OutputColumn: "col_b", Inputs: []string{"col_a"}},
		},
	}
}

func TestClient_ListSteps(t *testing.T) {
	steps := &testutil.MockStepRepo{
		SnapshotFunc: func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
			return pipelineFixture(), nil
		},
	}
	c, _ := newTestServer(t, steps)

	snap, err := c.ListSteps(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "v1", snap.Version)
	require.Len(t, snap.Steps, 2)
	assert.Equal(t, []string{"col_a"}, snap.Lineage[1].Inputs)
}

func TestClient_NotFoundMapsToDomainError(t *testing.T) {
	c, _ := newTestServer(t, &testutil.MockStepRepo{})

	_, err := c.ListSteps(context.Background(), "ghost")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestClient_ReorderConflict(t *testing.T) {
	steps := &testutil.MockStepRepo{
		SnapshotFunc: func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
			return pipelineFixture(), nil
		},
	}
	c, _ := newTestServer(t, steps)

	_, err := c.ReorderSteps(context.Background(), "orders", domain.ReorderRequest{
		Version: "stale",
		StepIDs: []string{"B", "A"},
	})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestClient_DeleteStepConflictCarriesImpact(t *testing.T) {
	steps := &testutil.MockStepRepo{
		SnapshotFunc: func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
			return pipelineFixture(), nil
		},
	}
	c, _ := newTestServer(t, steps)

	_, err := c.DeleteStep(context.Background(), "orders", "v1", "A", false)
	var dependency *domain.DependencyConflictError
	require.ErrorAs(t, err, &dependency)
	assert.Equal(t, []string{"B"}, dependency.AffectedStepIDs)
	assert.Equal(t, []string{"col_b"}, dependency.AffectedColumns)
}

func TestClient_DeleteStepCascade(t *testing.T) {
	var deleted []string
	steps := &testutil.MockStepRepo{
		SnapshotFunc: func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
			return pipelineFixture(), nil
		},
		DeleteStepsFunc: func(ctx context.Context, datasetID, expectVersion string, stepIDs []string, newVersion string) error {
			deleted = stepIDs
			return nil
		},
	}
	c, _ := newTestServer(t, steps)

	snap, err := c.DeleteStep(context.Background(), "orders", "v1", "A", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, deleted)
	assert.NotNil(t, snap)
}

func TestClient_ValidateStructure(t *testing.T) {
	c, _ := newTestServer(t, &testutil.MockStepRepo{})

	result, err := c.ValidateStructure(context.Background(), "orders", &domain.StructureSnapshot{
		Edges: []domain.SourceEdge{{FromNodeID: "ghost", ToNodeID: "ghost2"}},
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.StructuredErrors)
}

func TestClient_Materialize(t *testing.T) {
	steps := &testutil.MockStepRepo{
		SnapshotFunc: func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
			return pipelineFixture(), nil
		},
	}
	c, _ := newTestServer(t, steps)

	res, err := c.Materialize(context.Background(), "orders", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, res.Columns)
}

func TestClient_MaterializeSendsRowLimitAndColumns(t *testing.T) {
	steps := &testutil.MockStepRepo{
		SnapshotFunc: func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
			return pipelineFixture(), nil
		},
	}
	c, previewer := newTestServer(t, steps)

	_, err := c.Materialize(context.Background(), "orders", 5, []string{"col_a"})
	require.NoError(t, err)
	assert.Equal(t, 5, previewer.gotRowLimit)
	assert.Equal(t, []string{"col_a"}, previewer.gotColumns)
}
