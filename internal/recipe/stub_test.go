package recipe

import (
	"context"

	"synthlab/internal/domain"
)

// stubClient implements PipelineClient for engine tests.
type stubClient struct {
	ListStepsFn    func(ctx context.Context, datasetID string) (*domain.StepSnapshot, error)
	ReorderStepsFn func(ctx context.Context, datasetID string, req domain.ReorderRequest) (*domain.StepSnapshot, error)
	DeleteStepFn   func(ctx context.Context, datasetID, version, stepID string, cascade bool) (*domain.StepSnapshot, error)

	reorderCalls int
	deleteCalls  int
	lastReorder  domain.ReorderRequest
	lastCascade  bool
	lastStepID   string
}

func (s *stubClient) ListSteps(ctx context.Context, datasetID string) (*domain.StepSnapshot, error) {
	if s.ListStepsFn != nil {
		return s.ListStepsFn(ctx, datasetID)
	}
	panic("unexpected call to ListSteps")
}

func (s *stubClient) ReorderSteps(ctx context.Context, datasetID string, req domain.ReorderRequest) (*domain.StepSnapshot, error) {
	s.reorderCalls++
	s.lastReorder = req
	if s.ReorderStepsFn != nil {
		return s.ReorderStepsFn(ctx, datasetID, req)
	}
	panic("unexpected call to ReorderSteps")
}

func (s *stubClient) DeleteStep(ctx context.Context, datasetID, version, stepID string, cascade bool) (*domain.StepSnapshot, error) {
	s.deleteCalls++
	s.lastStepID = stepID
	s.lastCascade = cascade
	if s.DeleteStepFn != nil {
		return s.DeleteStepFn(ctx, datasetID, version, stepID, cascade)
	}
	panic("unexpected call to DeleteStep")
}
