package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthlab/internal/domain"
)

// snapshot builds a StepSnapshot from (id, output, inputs...) tuples in
// display order.
func snapshot(version string, rows ...[]string) *domain.StepSnapshot {
	snap := &domain.StepSnapshot{Version: version}
	for i, row := range rows {
		id, out := row[0], row[1]
		snap.Steps = append(snap.Steps, domain.Step{ID: id, OutputColumn: out, Order: i})
		snap.Lineage = append(snap.Lineage, domain.LineageEntry{
			StepID:       id,
			OutputColumn: out,
			Inputs:       row[2:],
		})
	}
	return snap
}

func modelOf(t *testing.T, snap *domain.StepSnapshot) *Model {
	t.Helper()
	m := NewModel()
	m.Refresh(snap)
	return m
}

func TestValidateOrder(t *testing.T) {
	// A -> col_x; B reads col_x -> col_y; C reads col_y -> col_z.
	chain := snapshot("v1",
		[]string{"A", "col_x"},
		[]string{"B", "col_y", "col_x"},
		[]string{"C", "col_z", "col_y"},
	)

	tests := []struct {
		name       string
		snap       *domain.StepSnapshot
		order      []string
		wantOK     bool
		wantStep   string
		wantColumn string
	}{
		{
			name:   "committed_order_is_valid",
			snap:   chain,
			order:  []string{"A", "B", "C"},
			wantOK: true,
		},
		{
			name:       "producer_after_consumer",
			snap:       chain,
			order:      []string{"B", "A", "C"},
			wantStep:   "B",
			wantColumn: "col_x",
		},
		{
			name:       "transitive_violation_reports_first",
			snap:       chain,
			order:      []string{"C", "A", "B"},
			wantStep:   "C",
			wantColumn: "col_y",
		},
		{
			name: "base_columns_never_block",
			snap: snapshot("v1",
				[]string{"A", "col_x", "col_raw"},
				[]string{"B", "col_y", "col_raw"},
			),
			order:  []string{"B", "A"},
			wantOK: true,
		},
		{
			name: "redefined_column_any_producer_satisfies",
			snap: snapshot("v1",
				[]string{"A", "col_x"},
				[]string{"B", "col_x"},
				[]string{"C", "col_y", "col_x"},
			),
			order:  []string{"B", "C", "A"},
			wantOK: true,
		},
		{
			name:   "empty_order_is_valid",
			snap:   chain,
			order:  nil,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := modelOf(t, tt.snap)
			out := ValidateOrder(tt.order, m)

			if tt.wantOK {
				assert.True(t, out.OK, "reason: %s", out.Reason)
				return
			}
			require.False(t, out.OK)
			assert.Equal(t, tt.wantStep, out.StepID)
			assert.Equal(t, tt.wantColumn, out.Column)
			assert.Contains(t, out.Reason, tt.wantColumn)
			assert.Contains(t, out.Reason, tt.wantStep)
		})
	}
}

// Any single producer-after-consumer move from a valid order must be caught
// citing that consumer/column pair.
func TestValidateOrder_MoveProducerAfterConsumer(t *testing.T) {
	snap := snapshot("v1",
		[]string{"A", "col_x"},
		[]string{"B", "col_y", "col_x"},
	)
	m := modelOf(t, snap)

	require.True(t, ValidateOrder([]string{"A", "B"}, m).OK)

	out := ValidateOrder([]string{"B", "A"}, m)
	require.False(t, out.OK)
	assert.Equal(t, "B", out.StepID)
	assert.Equal(t, "col_x", out.Column)
}
