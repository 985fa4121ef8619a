package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthlab/internal/domain"
)

func TestCheckStructure_EmptyGraphIsValid(t *testing.T) {
	assert.True(t, CheckStructure(nil).Valid)
	assert.True(t, CheckStructure(&domain.StructureSnapshot{}).Valid)
}

func TestCheckStructure_ValidChain(t *testing.T) {
	result := CheckStructure(&domain.StructureSnapshot{
		Nodes: []domain.SourceNode{
			{ID: "a", Kind: "table"},
			{ID: "b", Kind: "filter", NumInputs: 1},
			{ID: "c", Kind: "join", NumInputs: 2},
		},
		Edges: []domain.SourceEdge{
			{FromNodeID: "a", ToNodeID: "b", InputIndex: 0},
			{FromNodeID: "a", ToNodeID: "c", InputIndex: 0},
			{FromNodeID: "b", ToNodeID: "c", InputIndex: 1},
		},
	})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.MissingEdges)
	require.Len(t, result.EdgeStatuses, 3)
	for _, st := range result.EdgeStatuses {
		assert.True(t, st.Valid)
	}
}

func TestCheckStructure_UnknownNode(t *testing.T) {
	result := CheckStructure(&domain.StructureSnapshot{
		Nodes: []domain.SourceNode{{ID: "a"}},
		Edges: []domain.SourceEdge{{FromNodeID: "a", ToNodeID: "ghost"}},
	})
	assert.False(t, result.Valid)
	require.Len(t, result.StructuredErrors, 1)
	assert.Equal(t, IssueUnknownNode, result.StructuredErrors[0].Code)
	assert.Equal(t, "ghost", result.StructuredErrors[0].NodeID)
	require.Len(t, result.EdgeStatuses, 1)
	assert.False(t, result.EdgeStatuses[0].Valid)
}

func TestCheckStructure_DuplicateInput(t *testing.T) {
	result := CheckStructure(&domain.StructureSnapshot{
		Nodes: []domain.SourceNode{
			{ID: "a"},
			{ID: "b"},
			{ID: "c", NumInputs: 1},
		},
		Edges: []domain.SourceEdge{
			{FromNodeID: "a", ToNodeID: "c", InputIndex: 0},
			{FromNodeID: "b", ToNodeID: "c", InputIndex: 0},
		},
	})
	assert.False(t, result.Valid)
	require.Len(t, result.StructuredErrors, 1)
	assert.Equal(t, IssueDuplicateInput, result.StructuredErrors[0].Code)
	assert.True(t, result.EdgeStatuses[0].Valid)
	assert.False(t, result.EdgeStatuses[1].Valid)
}

func TestCheckStructure_MissingInput(t *testing.T) {
	result := CheckStructure(&domain.StructureSnapshot{
		Nodes: []domain.SourceNode{{ID: "join", NumInputs: 2}},
	})
	assert.False(t, result.Valid)
	require.Len(t, result.MissingEdges, 2)
	assert.Equal(t, domain.MissingEdge{NodeID: "join", InputIndex: 0}, result.MissingEdges[0])
	assert.Equal(t, domain.MissingEdge{NodeID: "join", InputIndex: 1}, result.MissingEdges[1])
}

func TestCheckStructure_Cycle(t *testing.T) {
	result := CheckStructure(&domain.StructureSnapshot{
		Nodes: []domain.SourceNode{
			{ID: "a", NumInputs: 1},
			{ID: "b", NumInputs: 1},
		},
		Edges: []domain.SourceEdge{
			{FromNodeID: "a", ToNodeID: "b", InputIndex: 0},
			{FromNodeID: "b", ToNodeID: "a", InputIndex: 0},
		},
	})
	assert.False(t, result.Valid)
	found := false
	for _, issue := range result.StructuredErrors {
		if issue.Code == IssueCycle {
			found = true
		}
	}
	assert.True(t, found)
}
