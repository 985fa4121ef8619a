package domain

import "time"

// Dataset is one synthetic-dataset project in the workspace. SourceTable
// names the DuckDB relation the recipe pipeline reads from.
type Dataset struct {
	ID            string
	Name          string
	Description   string
	SourceTable   string
	RefreshCron   *string // optional schedule for preview refresh
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastPreviewAt *time.Time
}

// CreateDatasetRequest holds parameters for creating a dataset.
type CreateDatasetRequest struct {
	Name        string
	Description string
	SourceTable string
	RefreshCron *string
}

// Validate checks that the request is well-formed.
func (r *CreateDatasetRequest) Validate() error {
	if r.Name == "" {
		return ErrValidation("name is required")
	}
	if r.SourceTable == "" {
		return ErrValidation("source_table is required")
	}
	return nil
}
