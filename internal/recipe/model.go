// Package recipe implements the client-side consistency core for a
// dataset's transform pipeline: the lineage model, order validation, the
// reorder and cascade-delete engines, and the debounced coordinators that
// keep derived state in sync with server-authoritative snapshots.
package recipe

import (
	"sync"

	"synthlab/internal/domain"
)

// Model holds the authoritative, server-confirmed snapshot of steps and
// their lineage, plus derived lookup indexes. It is rebuilt wholesale on
// every refresh — never patched incrementally — so local state can never
// drift from what the server confirmed.
type Model struct {
	mu        sync.RWMutex
	version   string
	steps     []domain.Step
	lineage   map[string]domain.LineageEntry
	producers map[string][]string // column -> producing step ids, in pipeline order
	pos       map[string]int      // step id -> index in steps
}

// NewModel creates an empty Model.
func NewModel() *Model {
	m := &Model{}
	m.rebuild(nil)
	return m
}

// Refresh replaces the model contents with a new server snapshot and
// rebuilds the producer index.
func (m *Model) Refresh(snap *domain.StepSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuild(snap)
}

func (m *Model) rebuild(snap *domain.StepSnapshot) {
	m.steps = nil
	m.version = ""
	m.lineage = make(map[string]domain.LineageEntry)
	m.producers = make(map[string][]string)
	m.pos = make(map[string]int)

	if snap == nil {
		return
	}
	m.version = snap.Version
	m.steps = make([]domain.Step, len(snap.Steps))
	copy(m.steps, snap.Steps)

	for i, s := range m.steps {
		m.pos[s.ID] = i
	}
	for _, e := range snap.Lineage {
		m.lineage[e.StepID] = e
	}
	// Producers are recorded in pipeline order so the most recent producer
	// of a redefined column is last.
	for _, s := range m.steps {
		if s.OutputColumn != "" {
			m.producers[s.OutputColumn] = append(m.producers[s.OutputColumn], s.ID)
		}
	}
}

// Version returns the last server-confirmed pipeline version token.
func (m *Model) Version() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Len returns the number of steps.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.steps)
}

// Steps returns a copy of the step list in display order.
func (m *Model) Steps() []domain.Step {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Step, len(m.steps))
	copy(out, m.steps)
	return out
}

// OrderedIDs returns the step ids in display order.
func (m *Model) OrderedIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(m.steps))
	for i, s := range m.steps {
		ids[i] = s.ID
	}
	return ids
}

// IndexOf returns the display position of a step.
func (m *Model) IndexOf(stepID string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.pos[stepID]
	return i, ok
}

// InputsOf returns the input columns the given step reads. Nil when the
// step has no lineage entry.
func (m *Model) InputsOf(stepID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.lineage[stepID]
	if !ok {
		return nil
	}
	out := make([]string, len(e.Inputs))
	copy(out, e.Inputs)
	return out
}

// ProducersOf returns the ids of steps producing the given column, in
// pipeline order. An empty result means the column is a base column with no
// step producer.
func (m *Model) ProducersOf(column string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.producers[column]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// EffectiveProducer returns the authoritative producer of a column: the
// most recent producing step by pipeline order. ok is false for base
// columns.
func (m *Model) EffectiveProducer(column string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.producers[column]
	if len(ids) == 0 {
		return "", false
	}
	return ids[len(ids)-1], true
}
