package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_Rebuild(t *testing.T) {
	m := NewModel()
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Version())
	assert.Empty(t, m.ProducersOf("col_x"))

	m.Refresh(snapshot("v1",
		[]string{"A", "col_x"},
		[]string{"B", "col_y", "col_x", "col_raw"},
	))

	assert.Equal(t, "v1", m.Version())
	assert.Equal(t, []string{"A", "B"}, m.OrderedIDs())
	assert.Equal(t, []string{"col_x", "col_raw"}, m.InputsOf("B"))
	assert.Equal(t, []string{"A"}, m.ProducersOf("col_x"))
	assert.Empty(t, m.ProducersOf("col_raw"), "base column has no producers")

	i, ok := m.IndexOf("B")
	require.True(t, ok)
	assert.Equal(t, 1, i)

	// Refresh replaces wholesale: the old snapshot leaves no residue.
	m.Refresh(snapshot("v2", []string{"C", "col_z"}))
	assert.Equal(t, "v2", m.Version())
	assert.Equal(t, []string{"C"}, m.OrderedIDs())
	assert.Empty(t, m.ProducersOf("col_x"))
	assert.Nil(t, m.InputsOf("B"))
}

func TestModel_EffectiveProducer(t *testing.T) {
	m := modelOf(t, snapshot("v1",
		[]string{"A", "col_x"},
		[]string{"B", "col_x"},
		[]string{"C", "col_y", "col_x"},
	))

	// Redefinition: the most recent producer by pipeline order wins.
	id, ok := m.EffectiveProducer("col_x")
	require.True(t, ok)
	assert.Equal(t, "B", id)
	assert.Equal(t, []string{"A", "B"}, m.ProducersOf("col_x"))

	_, ok = m.EffectiveProducer("col_raw")
	assert.False(t, ok)
}
