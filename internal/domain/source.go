package domain

// SourceNode is one node in a dataset's source DAG (the stage upstream of
// the recipe pipeline). Kind and Config are opaque to validation except for
// the declared input count.
type SourceNode struct {
	ID        string
	Kind      string
	Label     string
	NumInputs int // required incoming edges
	Config    map[string]string
}

// SourceEdge connects an upstream node's output to a downstream node's input.
type SourceEdge struct {
	FromNodeID string
	ToNodeID   string
	InputIndex int
}

// StructureSnapshot is the client's current source-DAG shape submitted for
// validation.
type StructureSnapshot struct {
	Nodes []SourceNode
	Edges []SourceEdge
}

// EdgeStatus reports per-edge validity after structure validation.
type EdgeStatus struct {
	FromNodeID string `json:"from_node_id"`
	ToNodeID   string `json:"to_node_id"`
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
}

// MissingEdge identifies a node input slot with no incoming edge.
type MissingEdge struct {
	NodeID     string `json:"node_id"`
	InputIndex int    `json:"input_index"`
}

// StructureIssue is a machine-readable validation finding.
type StructureIssue struct {
	Code    string `json:"code"` // UNKNOWN_NODE, CYCLE, MISSING_INPUT, DUPLICATE_INPUT
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
}

// StructureValidation is the full result of validating a source DAG.
type StructureValidation struct {
	Valid            bool
	Errors           []string
	StructuredErrors []StructureIssue
	EdgeStatuses     []EdgeStatus
	MissingEdges     []MissingEdge
}
