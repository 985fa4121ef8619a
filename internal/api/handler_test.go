package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthlab/internal/domain"
	recipesvc "synthlab/internal/service/recipe"
	"synthlab/internal/testutil"
)

type apiFixture struct {
	router   http.Handler
	datasets *testutil.MockDatasetRepo
	steps    *testutil.MockStepRepo
	graphs   *testutil.MockSourceGraphRepo
	audit    *testutil.MockAuditRepo
}

type fixedPreviewer struct {
	result      *domain.PreviewResult
	err         error
	gotRowLimit int
	gotColumns  []string
}

func (p *fixedPreviewer) Materialize(ctx context.Context, dataset *domain.Dataset, steps []domain.Step, rowLimit int, columns []string) (*domain.PreviewResult, error) {
	p.gotRowLimit = rowLimit
	p.gotColumns = columns
	return p.result, p.err
}

func newAPIFixture(t *testing.T, previewer recipesvc.Previewer) *apiFixture {
	t.Helper()
	f := &apiFixture{
		datasets: &testutil.MockDatasetRepo{},
		steps:    &testutil.MockStepRepo{},
		graphs:   &testutil.MockSourceGraphRepo{},
		audit:    &testutil.MockAuditRepo{},
	}
	f.datasets.GetByNameFunc = func(ctx context.Context, name string) (*domain.Dataset, error) {
		if name != "orders" {
			return nil, domain.ErrNotFound("dataset not found")
		}
		return &domain.Dataset{ID: "ds1", Name: "orders", SourceTable: "raw_orders"}, nil
	}
	if previewer == nil {
		previewer = &fixedPreviewer{result: &domain.PreviewResult{Columns: []string{"id"}}}
	}
	svc := recipesvc.NewService(f.datasets, f.steps, f.graphs, f.audit, previewer, slog.New(slog.DiscardHandler))
	h := NewHandler(svc, slog.New(slog.DiscardHandler))
	f.router = NewRouter(h, RouterConfig{CORSAllowedOrigins: []string{"*"}})
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func stepsSnapshot() *domain.StepSnapshot {
	return &domain.StepSnapshot{
		Version: "v1",
		Steps: []domain.Step{
			{ID: "A", Kind: "formula", OutputColumn: "col_a", Expression: "amount * 2", Order: 0},
			{ID: "B", Kind: "formula", OutputColumn: "col_b", Expression: "col_a + 1", Order: 1},
		},
		Lineage: []domain.LineageEntry{
			{StepID: "A", OutputColumn: "col_a", Inputs: nil},
			{StepID: "B", OutputColumn: "col_b", Inputs: []string{"col_a"}},
		},
	}
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListSteps(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.steps.SnapshotFunc = func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
		return stepsSnapshot(), nil
	}

	rec := f.do(t, http.MethodGet, "/v1/datasets/orders/steps", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got snapshotJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "v1", got.Version)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "col_a", got.Steps[0].OutputColumn)
	require.Len(t, got.Lineage, 2)
	assert.Equal(t, []string{"col_a"}, got.Lineage[1].Inputs)
}

func TestListSteps_UnknownDataset(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/v1/datasets/ghost/steps", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddStep_BadRequest(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/v1/datasets/orders/steps", `{"kind":"formula"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReorderSteps_StaleVersionIs409(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.steps.SnapshotFunc = func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
		return stepsSnapshot(), nil
	}

	rec := f.do(t, http.MethodPut, "/v1/datasets/orders/steps/order",
		`{"version":"stale","step_ids":["B","A"]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReorderSteps_ViolationIs400(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.steps.SnapshotFunc = func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
		return stepsSnapshot(), nil
	}

	rec := f.do(t, http.MethodPut, "/v1/datasets/orders/steps/order",
		`{"version":"v1","step_ids":["B","A"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Message, "col_a")
}

func TestDeleteStep_RequiresVersion(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(t, http.MethodDelete, "/v1/datasets/orders/steps/A", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteStep_ConflictCarriesImpact(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.steps.SnapshotFunc = func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
		return stepsSnapshot(), nil
	}

	rec := f.do(t, http.MethodDelete, "/v1/datasets/orders/steps/A?version=v1", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	var body errorJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Impact)
	assert.Equal(t, []string{"B"}, body.Impact.AffectedStepIDs)
	assert.Equal(t, []string{"col_b"}, body.Impact.AffectedColumns)
}

func TestDeleteStep_Cascade(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.steps.SnapshotFunc = func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
		return stepsSnapshot(), nil
	}
	var deleted []string
	f.steps.DeleteStepsFunc = func(ctx context.Context, datasetID, expectVersion string, stepIDs []string, newVersion string) error {
		deleted = stepIDs
		return nil
	}

	rec := f.do(t, http.MethodDelete, "/v1/datasets/orders/steps/A?version=v1&cascade=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"A", "B"}, deleted)
}

func TestValidateStructure(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.graphs.ReplaceFunc = func(ctx context.Context, datasetID string, snap *domain.StructureSnapshot) error {
		return nil
	}

	rec := f.do(t, http.MethodPost, "/v1/datasets/orders/structure/validate",
		`{"nodes":[{"id":"src"}],"edges":[{"from_node_id":"src","to_node_id":"ghost"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got structureValidationJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Valid)
	require.Len(t, got.StructuredErrors, 1)
	assert.Equal(t, "UNKNOWN_NODE", got.StructuredErrors[0].Code)
}

func TestPreview(t *testing.T) {
	previewer := &fixedPreviewer{result: &domain.PreviewResult{
		Columns: []string{"id", "col_a"},
		Rows:    []map[string]any{{"id": 1.0, "col_a": 2.0}},
	}}
	f := newAPIFixture(t, previewer)
	f.steps.SnapshotFunc = func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
		return stepsSnapshot(), nil
	}
	f.datasets.TouchPreviewFunc = func(ctx context.Context, id string, at time.Time) error {
		return nil
	}

	rec := f.do(t, http.MethodPost, "/v1/datasets/orders/preview", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got previewJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"id", "col_a"}, got.Columns)
	require.Len(t, got.Rows, 1)
}

func TestPreview_ForwardsRowLimitAndColumns(t *testing.T) {
	previewer := &fixedPreviewer{result: &domain.PreviewResult{Columns: []string{"col_a"}}}
	f := newAPIFixture(t, previewer)
	f.steps.SnapshotFunc = func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
		return stepsSnapshot(), nil
	}
	f.datasets.TouchPreviewFunc = func(ctx context.Context, id string, at time.Time) error {
		return nil
	}

	rec := f.do(t, http.MethodPost, "/v1/datasets/orders/preview",
		`{"row_limit":5,"columns":["col_a"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, previewer.gotRowLimit)
	assert.Equal(t, []string{"col_a"}, previewer.gotColumns)
}

func TestCreateDataset(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.datasets.CreateFunc = func(ctx context.Context, d *domain.Dataset) (*domain.Dataset, error) {
		return d, nil
	}

	rec := f.do(t, http.MethodPost, "/v1/datasets",
		`{"name":"churn","source_table":"raw_churn"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got datasetJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "churn", got.Name)
	assert.NotEmpty(t, got.ID)
}
