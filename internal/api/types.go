package api

import (
	"time"

	"synthlab/internal/domain"
)

// === Wire types ===

type datasetJSON struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	SourceTable   string     `json:"source_table"`
	RefreshCron   *string    `json:"refresh_cron,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastPreviewAt *time.Time `json:"last_preview_at,omitempty"`
}

type createDatasetJSON struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	SourceTable string  `json:"source_table"`
	RefreshCron *string `json:"refresh_cron"`
}

type datasetListJSON struct {
	Datasets      []datasetJSON `json:"datasets"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

type stepJSON struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind"`
	OutputColumn string            `json:"output_column"`
	Expression   string            `json:"expression"`
	Params       map[string]string `json:"params,omitempty"`
	Order        int               `json:"order"`
	CreatedAt    time.Time         `json:"created_at"`
}

type lineageJSON struct {
	StepID       string   `json:"step_id"`
	OutputColumn string   `json:"output_column"`
	Inputs       []string `json:"inputs"`
}

type snapshotJSON struct {
	Version string        `json:"version"`
	Steps   []stepJSON    `json:"steps"`
	Lineage []lineageJSON `json:"lineage"`
}

type createStepJSON struct {
	Kind         string            `json:"kind"`
	OutputColumn string            `json:"output_column"`
	Expression   string            `json:"expression"`
	Inputs       []string          `json:"inputs"`
	Params       map[string]string `json:"params"`
}

type reorderJSON struct {
	Version string   `json:"version"`
	StepIDs []string `json:"step_ids"`
}

type sourceNodeJSON struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Label     string            `json:"label,omitempty"`
	NumInputs int               `json:"num_inputs"`
	Config    map[string]string `json:"config,omitempty"`
}

type sourceEdgeJSON struct {
	FromNodeID string `json:"from_node_id"`
	ToNodeID   string `json:"to_node_id"`
	InputIndex int    `json:"input_index"`
}

type structureJSON struct {
	Nodes []sourceNodeJSON `json:"nodes"`
	Edges []sourceEdgeJSON `json:"edges"`
}

type structureValidationJSON struct {
	Valid            bool                    `json:"valid"`
	Errors           []string                `json:"errors,omitempty"`
	StructuredErrors []domain.StructureIssue `json:"structured_errors,omitempty"`
	EdgeStatuses     []domain.EdgeStatus     `json:"edge_statuses,omitempty"`
	MissingEdges     []domain.MissingEdge    `json:"missing_edges,omitempty"`
}

type previewRequestJSON struct {
	RowLimit int      `json:"row_limit,omitempty"`
	Columns  []string `json:"columns,omitempty"`
}

type previewJSON struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

type auditEntryJSON struct {
	ID        string    `json:"id"`
	Principal string    `json:"principal"`
	Action    string    `json:"action"`
	DatasetID string    `json:"dataset_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type auditListJSON struct {
	Entries       []auditEntryJSON `json:"entries"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

// === Mapping helpers ===

func datasetToAPI(d *domain.Dataset) datasetJSON {
	return datasetJSON{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		SourceTable:   d.SourceTable,
		RefreshCron:   d.RefreshCron,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		LastPreviewAt: d.LastPreviewAt,
	}
}

func snapshotToAPI(snap *domain.StepSnapshot) snapshotJSON {
	out := snapshotJSON{
		Version: snap.Version,
		Steps:   make([]stepJSON, 0, len(snap.Steps)),
		Lineage: make([]lineageJSON, 0, len(snap.Lineage)),
	}
	for _, s := range snap.Steps {
		out.Steps = append(out.Steps, stepJSON{
			ID:           s.ID,
			Kind:         s.Kind,
			OutputColumn: s.OutputColumn,
			Expression:   s.Expression,
			Params:       s.Params,
			Order:        s.Order,
			CreatedAt:    s.CreatedAt,
		})
	}
	for _, e := range snap.Lineage {
		inputs := e.Inputs
		if inputs == nil {
			inputs = []string{}
		}
		out.Lineage = append(out.Lineage, lineageJSON{
			StepID:       e.StepID,
			OutputColumn: e.OutputColumn,
			Inputs:       inputs,
		})
	}
	return out
}

func structureFromAPI(in structureJSON) *domain.StructureSnapshot {
	snap := &domain.StructureSnapshot{}
	for _, n := range in.Nodes {
		snap.Nodes = append(snap.Nodes, domain.SourceNode{
			ID:        n.ID,
			Kind:      n.Kind,
			Label:     n.Label,
			NumInputs: n.NumInputs,
			Config:    n.Config,
		})
	}
	for _, e := range in.Edges {
		snap.Edges = append(snap.Edges, domain.SourceEdge{
			FromNodeID: e.FromNodeID,
			ToNodeID:   e.ToNodeID,
			InputIndex: e.InputIndex,
		})
	}
	return snap
}

func structureToAPI(snap *domain.StructureSnapshot) structureJSON {
	out := structureJSON{Nodes: []sourceNodeJSON{}, Edges: []sourceEdgeJSON{}}
	for _, n := range snap.Nodes {
		out.Nodes = append(out.Nodes, sourceNodeJSON{
			ID:        n.ID,
			Kind:      n.Kind,
			Label:     n.Label,
			NumInputs: n.NumInputs,
			Config:    n.Config,
		})
	}
	for _, e := range snap.Edges {
		out.Edges = append(out.Edges, sourceEdgeJSON{
			FromNodeID: e.FromNodeID,
			ToNodeID:   e.ToNodeID,
			InputIndex: e.InputIndex,
		})
	}
	return out
}

func validationToAPI(v *domain.StructureValidation) structureValidationJSON {
	return structureValidationJSON{
		Valid:            v.Valid,
		Errors:           v.Errors,
		StructuredErrors: v.StructuredErrors,
		EdgeStatuses:     v.EdgeStatuses,
		MissingEdges:     v.MissingEdges,
	}
}
