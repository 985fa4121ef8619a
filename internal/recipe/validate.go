package recipe

import "fmt"

// Outcome is the result of validating a candidate step ordering.
type Outcome struct {
	OK bool
	// StepID and Column identify the first violation: the step that would
	// run before any producer of Column. Empty when OK.
	StepID string
	Column string
	Reason string
}

// ValidateOrder checks whether the candidate ordering is consistent with
// the model's lineage: every input column that is produced by some step
// must have at least one producer earlier in the order. Columns with no
// producers at all are externally available (base columns) and never block.
//
// A single left-to-right scan is enough here — the only mutation the UI
// allows is moving one step — and it yields the first actionable violation
// instead of a full graph diagnosis.
func ValidateOrder(orderedIDs []string, m *Model) Outcome {
	seen := make(map[string]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		for _, col := range m.InputsOf(id) {
			producers := m.ProducersOf(col)
			if len(producers) == 0 {
				continue // base column
			}
			satisfied := false
			for _, p := range producers {
				if _, ok := seen[p]; ok {
					satisfied = true
					break
				}
			}
			if !satisfied {
				return Outcome{
					StepID: id,
					Column: col,
					Reason: fmt.Sprintf("step %s requires %q before it can run", id, col),
				}
			}
		}
		seen[id] = struct{}{}
	}
	return Outcome{OK: true}
}
