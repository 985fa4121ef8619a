// Package testutil provides mock implementations of the repository
// interfaces for service-level tests.
package testutil

import (
	"context"
	"time"

	"synthlab/internal/domain"
)

// MockDatasetRepo is a function-field mock of domain.DatasetRepository.
type MockDatasetRepo struct {
	CreateFunc        func(ctx context.Context, d *domain.Dataset) (*domain.Dataset, error)
	GetByIDFunc       func(ctx context.Context, id string) (*domain.Dataset, error)
	GetByNameFunc     func(ctx context.Context, name string) (*domain.Dataset, error)
	ListFunc          func(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error)
	DeleteFunc        func(ctx context.Context, id string) error
	ListScheduledFunc func(ctx context.Context) ([]domain.Dataset, error)
	TouchPreviewFunc  func(ctx context.Context, id string, at time.Time) error
}

var _ domain.DatasetRepository = (*MockDatasetRepo)(nil)

func (m *MockDatasetRepo) Create(ctx context.Context, d *domain.Dataset) (*domain.Dataset, error) {
	return m.CreateFunc(ctx, d)
}

func (m *MockDatasetRepo) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockDatasetRepo) GetByName(ctx context.Context, name string) (*domain.Dataset, error) {
	return m.GetByNameFunc(ctx, name)
}

func (m *MockDatasetRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	return m.ListFunc(ctx, page)
}

func (m *MockDatasetRepo) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

func (m *MockDatasetRepo) ListScheduled(ctx context.Context) ([]domain.Dataset, error) {
	return m.ListScheduledFunc(ctx)
}

func (m *MockDatasetRepo) TouchPreview(ctx context.Context, id string, at time.Time) error {
	return m.TouchPreviewFunc(ctx, id, at)
}

// MockStepRepo is a function-field mock of domain.StepRepository.
type MockStepRepo struct {
	SnapshotFunc    func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error)
	AddStepFunc     func(ctx context.Context, datasetID string, step *domain.Step, inputs []string, newVersion string) (*domain.Step, error)
	ReorderFunc     func(ctx context.Context, datasetID, expectVersion string, orderedIDs []string, newVersion string) error
	DeleteStepsFunc func(ctx context.Context, datasetID, expectVersion string, stepIDs []string, newVersion string) error
}

var _ domain.StepRepository = (*MockStepRepo)(nil)

func (m *MockStepRepo) Snapshot(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
	return m.SnapshotFunc(ctx, datasetID)
}

func (m *MockStepRepo) AddStep(ctx context.Context, datasetID string, step *domain.Step, inputs []string, newVersion string) (*domain.Step, error) {
	return m.AddStepFunc(ctx, datasetID, step, inputs, newVersion)
}

func (m *MockStepRepo) Reorder(ctx context.Context, datasetID, expectVersion string, orderedIDs []string, newVersion string) error {
	return m.ReorderFunc(ctx, datasetID, expectVersion, orderedIDs, newVersion)
}

func (m *MockStepRepo) DeleteSteps(ctx context.Context, datasetID, expectVersion string, stepIDs []string, newVersion string) error {
	return m.DeleteStepsFunc(ctx, datasetID, expectVersion, stepIDs, newVersion)
}

// MockSourceGraphRepo is a function-field mock of domain.SourceGraphRepository.
type MockSourceGraphRepo struct {
	GetFunc     func(ctx context.Context, datasetID string) (*domain.StructureSnapshot, error)
	ReplaceFunc func(ctx context.Context, datasetID string, snap *domain.StructureSnapshot) error
}

var _ domain.SourceGraphRepository = (*MockSourceGraphRepo)(nil)

func (m *MockSourceGraphRepo) Get(ctx context.Context, datasetID string) (*domain.StructureSnapshot, error) {
	return m.GetFunc(ctx, datasetID)
}

func (m *MockSourceGraphRepo) Replace(ctx context.Context, datasetID string, snap *domain.StructureSnapshot) error {
	return m.ReplaceFunc(ctx, datasetID, snap)
}

// MockAuditRepo is a function-field mock of domain.AuditRepository. A nil
// InsertFunc accepts and discards entries, which keeps service tests quiet
// about auditing unless they care.
type MockAuditRepo struct {
	InsertFunc func(ctx context.Context, e *domain.AuditEntry) error
	ListFunc   func(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error)

	Entries []domain.AuditEntry
}

var _ domain.AuditRepository = (*MockAuditRepo)(nil)

func (m *MockAuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, e)
	}
	m.Entries = append(m.Entries, *e)
	return nil
}

func (m *MockAuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return m.Entries, int64(len(m.Entries)), nil
}
