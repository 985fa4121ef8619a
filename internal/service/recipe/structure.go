package recipe

import (
	"fmt"

	"synthlab/internal/domain"
)

// Structure issue codes.
const (
	IssueUnknownNode    = "UNKNOWN_NODE"
	IssueCycle          = "CYCLE"
	IssueMissingInput   = "MISSING_INPUT"
	IssueDuplicateInput = "DUPLICATE_INPUT"
)

// CheckStructure validates a source DAG snapshot: every edge must connect
// known nodes, no node input slot may be wired twice, every declared input
// slot must be wired, and the graph must be acyclic. The empty graph is
// trivially valid.
func CheckStructure(snap *domain.StructureSnapshot) *domain.StructureValidation {
	result := &domain.StructureValidation{Valid: true}
	if snap == nil || (len(snap.Nodes) == 0 && len(snap.Edges) == 0) {
		return result
	}

	nodes := make(map[string]domain.SourceNode, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes[n.ID] = n
	}

	// Per-edge checks: endpoints must exist and input slots must be unique.
	type slot struct {
		node  string
		index int
	}
	wired := make(map[slot]bool)
	for _, e := range snap.Edges {
		status := domain.EdgeStatus{FromNodeID: e.FromNodeID, ToNodeID: e.ToNodeID, Valid: true}

		if _, ok := nodes[e.FromNodeID]; !ok {
			status.Valid = false
			status.Reason = fmt.Sprintf("unknown source node %s", e.FromNodeID)
			addIssue(result, IssueUnknownNode, e.FromNodeID, status.Reason)
		} else if _, ok := nodes[e.ToNodeID]; !ok {
			status.Valid = false
			status.Reason = fmt.Sprintf("unknown target node %s", e.ToNodeID)
			addIssue(result, IssueUnknownNode, e.ToNodeID, status.Reason)
		} else if wired[slot{e.ToNodeID, e.InputIndex}] {
			status.Valid = false
			status.Reason = fmt.Sprintf("input %d of node %s is wired twice", e.InputIndex, e.ToNodeID)
			addIssue(result, IssueDuplicateInput, e.ToNodeID, status.Reason)
		} else {
			wired[slot{e.ToNodeID, e.InputIndex}] = true
		}
		result.EdgeStatuses = append(result.EdgeStatuses, status)
	}

	// Every declared input slot needs an incoming edge.
	for _, n := range snap.Nodes {
		for i := 0; i < n.NumInputs; i++ {
			if !wired[slot{n.ID, i}] {
				result.MissingEdges = append(result.MissingEdges, domain.MissingEdge{NodeID: n.ID, InputIndex: i})
				addIssue(result, IssueMissingInput, n.ID,
					fmt.Sprintf("input %d of node %s is not connected", i, n.ID))
			}
		}
	}

	// Cycle detection over the edges with known endpoints (Kahn).
	inDegree := make(map[string]int, len(nodes))
	adjacency := make(map[string][]string)
	for id := range nodes {
		inDegree[id] = 0
	}
	for _, e := range snap.Edges {
		if _, ok := nodes[e.FromNodeID]; !ok {
			continue
		}
		if _, ok := nodes[e.ToNodeID]; !ok {
			continue
		}
		adjacency[e.FromNodeID] = append(adjacency[e.FromNodeID], e.ToNodeID)
		inDegree[e.ToNodeID]++
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++
		for _, next := range adjacency[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if processed != len(nodes) {
		addIssue(result, IssueCycle, "", "cycle detected in source graph")
	}

	return result
}

func addIssue(result *domain.StructureValidation, code, nodeID, message string) {
	result.Valid = false
	result.Errors = append(result.Errors, message)
	result.StructuredErrors = append(result.StructuredErrors, domain.StructureIssue{
		Code:    code,
		NodeID:  nodeID,
		Message: message,
	})
}
