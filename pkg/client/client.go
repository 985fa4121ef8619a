// Package client is the Go client for the SynthLab workspace API. It
// implements the collaborator interfaces the consistency core depends on, so
// a workspace session can talk to a real server or anything mimicking one.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"synthlab/internal/domain"
	"synthlab/internal/recipe"
)

// Client talks to the workspace HTTP API.
type Client struct {
	BaseURL    string
	Principal  string
	HTTPClient *http.Client
}

// Compile-time checks against the consistency-core collaborator interfaces.
var (
	_ recipe.PipelineClient      = (*Client)(nil)
	_ recipe.PreviewMaterializer = (*Client)(nil)
)

// New creates a Client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Impact  *struct {
		AffectedStepIDs []string `json:"affected_step_ids"`
		AffectedColumns []string `json:"affected_columns"`
	} `json:"impact"`
}

// decodeError turns a non-2xx response into the matching domain error so
// callers can errors.As on the same types the server raised.
func decodeError(status int, body []byte) error {
	var e errorBody
	msg := fmt.Sprintf("http %d", status)
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		msg = e.Message
	}

	switch status {
	case http.StatusNotFound:
		return domain.ErrNotFound("%s", msg)
	case http.StatusBadRequest:
		return domain.ErrValidation("%s", msg)
	case http.StatusConflict:
		if e.Impact != nil {
			return domain.ErrDependencyConflict(msg, e.Impact.AffectedStepIDs, e.Impact.AffectedColumns)
		}
		return domain.ErrConflict("%s", msg)
	default:
		return fmt.Errorf("%s", msg)
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Principal != "" {
		req.Header.Set("X-Principal", c.Principal)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func datasetPath(dataset, suffix string) string {
	return "/v1/datasets/" + url.PathEscape(dataset) + suffix
}

// === Datasets ===

// Dataset is the wire representation of a dataset project.
type Dataset struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	SourceTable   string     `json:"source_table"`
	RefreshCron   *string    `json:"refresh_cron,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastPreviewAt *time.Time `json:"last_preview_at,omitempty"`
}

// CreateDataset creates a new dataset project.
func (c *Client) CreateDataset(ctx context.Context, req domain.CreateDatasetRequest) (*Dataset, error) {
	in := map[string]any{
		"name":         req.Name,
		"description":  req.Description,
		"source_table": req.SourceTable,
	}
	if req.RefreshCron != nil {
		in["refresh_cron"] = *req.RefreshCron
	}
	var out Dataset
	if err := c.do(ctx, http.MethodPost, "/v1/datasets", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDataset fetches a dataset by name.
func (c *Client) GetDataset(ctx context.Context, name string) (*Dataset, error) {
	var out Dataset
	if err := c.do(ctx, http.MethodGet, datasetPath(name, "/"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDatasets returns all datasets on one page.
func (c *Client) ListDatasets(ctx context.Context) ([]Dataset, error) {
	var out struct {
		Datasets []Dataset `json:"datasets"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/datasets", nil, &out); err != nil {
		return nil, err
	}
	return out.Datasets, nil
}

// DeleteDataset removes a dataset by name.
func (c *Client) DeleteDataset(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, datasetPath(name, "/"), nil, nil)
}

// === Steps ===

type stepWire struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind"`
	OutputColumn string            `json:"output_column"`
	Expression   string            `json:"expression"`
	Params       map[string]string `json:"params"`
	Order        int               `json:"order"`
	CreatedAt    time.Time         `json:"created_at"`
}

type snapshotWire struct {
	Version string     `json:"version"`
	Steps   []stepWire `json:"steps"`
	Lineage []struct {
		StepID       string   `json:"step_id"`
		OutputColumn string   `json:"output_column"`
		Inputs       []string `json:"inputs"`
	} `json:"lineage"`
}

func (s *snapshotWire) toDomain() *domain.StepSnapshot {
	snap := &domain.StepSnapshot{Version: s.Version}
	for _, st := range s.Steps {
		snap.Steps = append(snap.Steps, domain.Step{
			ID:           st.ID,
			Kind:         st.Kind,
			OutputColumn: st.OutputColumn,
			Expression:   st.Expression,
			Params:       st.Params,
			Order:        st.Order,
			CreatedAt:    st.CreatedAt,
		})
	}
	for _, e := range s.Lineage {
		snap.Lineage = append(snap.Lineage, domain.LineageEntry{
			StepID:       e.StepID,
			OutputColumn: e.OutputColumn,
			Inputs:       e.Inputs,
		})
	}
	return snap
}

// ListSteps returns the server-confirmed pipeline snapshot for a dataset.
func (c *Client) ListSteps(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
	var out snapshotWire
	if err := c.do(ctx, http.MethodGet, datasetPath(datasetID, "/steps"), nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// AddStep appends a step and returns the refreshed snapshot.
func (c *Client) AddStep(ctx context.Context, datasetID string, req domain.CreateStepRequest) (*domain.StepSnapshot, error) {
	in := map[string]any{
		"kind":          req.Kind,
		"output_column": req.OutputColumn,
		"expression":    req.Expression,
		"inputs":        req.Inputs,
		"params":        req.Params,
	}
	var out snapshotWire
	if err := c.do(ctx, http.MethodPost, datasetPath(datasetID, "/steps"), in, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// ReorderSteps submits a full candidate ordering and returns the refreshed
// snapshot.
func (c *Client) ReorderSteps(ctx context.Context, datasetID string, req domain.ReorderRequest) (*domain.StepSnapshot, error) {
	in := map[string]any{"version": req.Version, "step_ids": req.StepIDs}
	var out snapshotWire
	if err := c.do(ctx, http.MethodPut, datasetPath(datasetID, "/steps/order"), in, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// DeleteStep removes a step, optionally cascading to its transitive
// dependents, and returns the refreshed snapshot. A refused delete comes
// back as a *domain.DependencyConflictError.
func (c *Client) DeleteStep(ctx context.Context, datasetID, version, stepID string, cascade bool) (*domain.StepSnapshot, error) {
	q := url.Values{"version": {version}}
	if cascade {
		q.Set("cascade", "true")
	}
	path := datasetPath(datasetID, "/steps/"+url.PathEscape(stepID)) + "?" + q.Encode()
	var out snapshotWire
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// === Structure ===

// ValidateStructure submits a source DAG for validation against the given
// dataset.
func (c *Client) ValidateStructure(ctx context.Context, datasetID string, snap *domain.StructureSnapshot) (*domain.StructureValidation, error) {
	in := map[string]any{"nodes": snap.Nodes, "edges": snap.Edges}
	var out struct {
		Valid            bool                    `json:"valid"`
		Errors           []string                `json:"errors"`
		StructuredErrors []domain.StructureIssue `json:"structured_errors"`
		EdgeStatuses     []domain.EdgeStatus     `json:"edge_statuses"`
		MissingEdges     []domain.MissingEdge    `json:"missing_edges"`
	}
	if err := c.do(ctx, http.MethodPost, datasetPath(datasetID, "/structure/validate"), in, &out); err != nil {
		return nil, err
	}
	return &domain.StructureValidation{
		Valid:            out.Valid,
		Errors:           out.Errors,
		StructuredErrors: out.StructuredErrors,
		EdgeStatuses:     out.EdgeStatuses,
		MissingEdges:     out.MissingEdges,
	}, nil
}

// StructureClient binds ValidateStructure to one dataset so it satisfies the
// core's validator interface.
type StructureClient struct {
	Client  *Client
	Dataset string
}

var _ recipe.StructureValidator = (*StructureClient)(nil)

// ValidateStructure validates a source DAG for the bound dataset.
func (s *StructureClient) ValidateStructure(ctx context.Context, snap *domain.StructureSnapshot) (*domain.StructureValidation, error) {
	return s.Client.ValidateStructure(ctx, s.Dataset, snap)
}

// === Preview ===

// Materialize triggers a preview materialization for a dataset. rowLimit and
// columns are advisory; the server enforces its own cap.
func (c *Client) Materialize(ctx context.Context, datasetID string, rowLimit int, columns []string) (*domain.PreviewResult, error) {
	in := map[string]any{}
	if rowLimit > 0 {
		in["row_limit"] = rowLimit
	}
	if len(columns) > 0 {
		in["columns"] = columns
	}
	var out struct {
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	if err := c.do(ctx, http.MethodPost, datasetPath(datasetID, "/preview"), in, &out); err != nil {
		return nil, err
	}
	return &domain.PreviewResult{Columns: out.Columns, Rows: out.Rows}, nil
}
