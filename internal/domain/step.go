package domain

import "time"

// Step is one transformation in a dataset's recipe pipeline. Steps execute
// in a single total order; a step reads columns and produces exactly one
// output column.
type Step struct {
	ID           string
	DatasetID    string
	Kind         string // transform type tag: formula, log, sqrt, bin, ...
	OutputColumn string
	Expression   string            // opaque SQL fragment evaluated by the preview engine
	Params       map[string]string // opaque configuration, not interpreted here
	Order        int               // dense, zero-based, unique among siblings
	CreatedAt    time.Time
}

// LineageEntry describes the input columns consumed by one step. The full
// lineage list is always replaced wholesale after a mutation; entries are
// never patched individually.
type LineageEntry struct {
	StepID       string
	OutputColumn string
	Inputs       []string
}

// StepSnapshot is the server-confirmed view of a dataset's pipeline: the
// step list in display order, the lineage for every step, and the version
// token that mutations must present.
type StepSnapshot struct {
	Version string
	Steps   []Step
	Lineage []LineageEntry
}

// DependencyImpact describes the downstream damage a non-cascading delete
// would cause. Transient: held only until the user confirms or cancels.
type DependencyImpact struct {
	Message         string
	AffectedStepIDs []string
	AffectedColumns []string
}

// CreateStepRequest holds parameters for adding a step.
type CreateStepRequest struct {
	Kind         string
	OutputColumn string
	Expression   string
	Inputs       []string
	Params       map[string]string
}

// Validate checks that the request is well-formed.
func (r *CreateStepRequest) Validate() error {
	if r.Kind == "" {
		return ErrValidation("kind is required")
	}
	if r.OutputColumn == "" {
		return ErrValidation("output_column is required")
	}
	if r.Expression == "" {
		return ErrValidation("expression is required")
	}
	for _, in := range r.Inputs {
		if in == "" {
			return ErrValidation("input column names must be non-empty")
		}
	}
	return nil
}

// ReorderRequest carries a full, gap-free candidate ordering for a dataset's
// steps together with the version the client last observed.
type ReorderRequest struct {
	Version string
	StepIDs []string
}

// Validate checks that the request is well-formed.
func (r *ReorderRequest) Validate() error {
	if r.Version == "" {
		return ErrValidation("version is required")
	}
	if len(r.StepIDs) == 0 {
		return ErrValidation("step_ids must not be empty")
	}
	seen := make(map[string]struct{}, len(r.StepIDs))
	for _, id := range r.StepIDs {
		if id == "" {
			return ErrValidation("step ids must be non-empty")
		}
		if _, dup := seen[id]; dup {
			return ErrValidation("duplicate step id %s", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// PreviewResult holds materialized preview rows for a dataset.
type PreviewResult struct {
	Columns []string
	Rows    []map[string]any
}
