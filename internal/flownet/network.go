// Package flownet implements the FlowNetwork data structure: a directed
// graph with integer capacities and flows, plus adjacency indexes kept
// consistent with the edge set. It is a pure data structure with invariants
// — no I/O, no algorithm.
//
// Grounded on the teacher's services/solver-svc/internal/graph.ResidualGraph
// (parallel Edges/EdgesList/ReverseEdges maps keyed by vertex, avoiding a
// deep pointer graph), adapted from float64 capacities/costs to integer
// capacities/flows with no cost field — this domain has no min-cost
// requirement, only a feasibility/maximality one.
package flownet

import (
	"sort"

	"ratingxchange/pkg/apperror"
)

// VertexID identifies a vertex in a FlowNetwork.
type VertexID int64

// EdgeID identifies an edge by its endpoints. A FlowNetwork has at most one
// edge per ordered pair, matching AddEdge's "insert or overwrite" contract.
type EdgeID struct {
	From VertexID
	To   VertexID
}

// Network is a minimal, mutable flow-graph container. It is reused across
// residual/level graph construction by the solver to avoid allocation
// churn — Clear() resets it to empty without discarding the backing maps.
type Network struct {
	source, sink VertexID

	capacity map[EdgeID]int64
	flow     map[EdgeID]int64

	// out[v] and in[v] are adjacency indexes: the set of vertices v has an
	// edge to, and the set of vertices with an edge to v. Kept consistent
	// with capacity/flow by every mutating method.
	out map[VertexID]map[VertexID]struct{}
	in  map[VertexID]map[VertexID]struct{}
}

// Empty returns a Network with no edges and the given source/sink.
func Empty(source, sink VertexID) *Network {
	return &Network{
		source:   source,
		sink:     sink,
		capacity: make(map[EdgeID]int64),
		flow:     make(map[EdgeID]int64),
		out:      make(map[VertexID]map[VertexID]struct{}),
		in:       make(map[VertexID]map[VertexID]struct{}),
	}
}

// Source returns the network's distinguished source vertex.
func (n *Network) Source() VertexID { return n.source }

// Sink returns the network's distinguished sink vertex.
func (n *Network) Sink() VertexID { return n.sink }

// AddEdge inserts an edge start->end with the given capacity and flow, or
// overwrites it if one already exists between the same ordered pair.
func (n *Network) AddEdge(start, end VertexID, capacity, flow int64) {
	id := EdgeID{start, end}
	if _, exists := n.capacity[id]; !exists {
		n.index(start, end)
	}
	n.capacity[id] = capacity
	n.flow[id] = flow
}

// RemoveEdge removes the edge start->end, if any, and prunes now-empty
// adjacency index entries.
func (n *Network) RemoveEdge(start, end VertexID) {
	id := EdgeID{start, end}
	if _, exists := n.capacity[id]; !exists {
		return
	}
	delete(n.capacity, id)
	delete(n.flow, id)
	n.unindex(start, end)
}

// Clear removes all edges. Source and sink are retained.
func (n *Network) Clear() {
	clear(n.capacity)
	clear(n.flow)
	clear(n.out)
	clear(n.in)
}

func (n *Network) index(start, end VertexID) {
	if n.out[start] == nil {
		n.out[start] = make(map[VertexID]struct{})
	}
	n.out[start][end] = struct{}{}
	if n.in[end] == nil {
		n.in[end] = make(map[VertexID]struct{})
	}
	n.in[end][start] = struct{}{}
}

func (n *Network) unindex(start, end VertexID) {
	delete(n.out[start], end)
	if len(n.out[start]) == 0 {
		delete(n.out, start)
	}
	delete(n.in[end], start)
	if len(n.in[end]) == 0 {
		delete(n.in, end)
	}
}

// HasEdge reports whether an edge start->end exists.
func (n *Network) HasEdge(start, end VertexID) bool {
	_, ok := n.capacity[EdgeID{start, end}]
	return ok
}

// Capacity returns the capacity of edge e, or 0 if it does not exist.
func (n *Network) Capacity(e EdgeID) int64 {
	return n.capacity[e]
}

// Flow returns the flow on edge e, or 0 if it does not exist.
func (n *Network) Flow(e EdgeID) int64 {
	return n.flow[e]
}

// AvailableCapacity returns max(0, capacity(e) - flow(e)).
func (n *Network) AvailableCapacity(e EdgeID) int64 {
	avail := n.capacity[e] - n.flow[e]
	if avail < 0 {
		return 0
	}
	return avail
}

// SetFlow sets the flow on an existing edge. Panics if the edge does not
// exist or if f is out of [0, capacity] — these are programmer-error
// asserts, per the FlowNetwork contract (no I/O, no recoverable failure
// mode at this layer).
func (n *Network) SetFlow(e EdgeID, f int64) {
	cap, exists := n.capacity[e]
	if !exists {
		panic("flownet: SetFlow on nonexistent edge")
	}
	if f < 0 || f > cap {
		panic("flownet: SetFlow flow out of [0, capacity] range")
	}
	n.flow[e] = f
}

// OutgoingEdges returns the vertices with an edge from v, in deterministic
// (sorted) order.
func (n *Network) OutgoingEdges(v VertexID) []VertexID {
	return sortedKeys(n.out[v])
}

// IncomingEdges returns the vertices with an edge to v, in deterministic
// (sorted) order.
func (n *Network) IncomingEdges(v VertexID) []VertexID {
	return sortedKeys(n.in[v])
}

func sortedKeys(m map[VertexID]struct{}) []VertexID {
	if len(m) == 0 {
		return nil
	}
	out := make([]VertexID, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Edges returns every edge in the network, in deterministic (source vertex,
// then destination vertex) order.
func (n *Network) Edges() []EdgeID {
	edges := make([]EdgeID, 0, len(n.capacity))
	sources := make([]VertexID, 0, len(n.out))
	for v := range n.out {
		sources = append(sources, v)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	for _, from := range sources {
		for _, to := range sortedKeys(n.out[from]) {
			edges = append(edges, EdgeID{from, to})
		}
	}
	return edges
}

// Validate checks every FlowNetwork invariant: per-edge 0 <= flow <=
// capacity, per-non-terminal-vertex conservation (incoming flow = outgoing
// flow), and source-out-flow = sink-in-flow = total flow. If
// expectedTotal is non-nil, the reported total must also match it.
func (n *Network) Validate(expectedTotal *int64) error {
	vertices := make(map[VertexID]struct{})
	for e := range n.capacity {
		vertices[e.From] = struct{}{}
		vertices[e.To] = struct{}{}

		f, c := n.flow[e], n.capacity[e]
		if f < 0 {
			return apperror.New(apperror.CodeNegativeFlow, "negative flow on edge").
				WithDetails("edge", e)
		}
		if f > c {
			return apperror.New(apperror.CodeCapacityOverflow, "flow exceeds capacity on edge").
				WithDetails("edge", e)
		}
	}

	for v := range vertices {
		if v == n.source || v == n.sink {
			continue
		}
		var inFlow, outFlow int64
		for _, u := range n.IncomingEdges(v) {
			inFlow += n.flow[EdgeID{u, v}]
		}
		for _, w := range n.OutgoingEdges(v) {
			outFlow += n.flow[EdgeID{v, w}]
		}
		if inFlow != outFlow {
			return apperror.New(apperror.CodeConservationViolation, "flow conservation violated at vertex").
				WithDetails("vertex", v).
				WithDetails("in_flow", inFlow).
				WithDetails("out_flow", outFlow)
		}
	}

	total := n.TotalFlow()
	sinkIn := n.sinkInFlow()
	if total != sinkIn {
		return apperror.New(apperror.CodeConservationViolation, "source out-flow does not match sink in-flow").
			WithDetails("source_out", total).
			WithDetails("sink_in", sinkIn)
	}
	if expectedTotal != nil && total != *expectedTotal {
		return apperror.New(apperror.CodeFlowViolation, "total flow does not match expected value").
			WithDetails("total", total).
			WithDetails("expected", *expectedTotal)
	}
	return nil
}

// TotalFlow returns the flow leaving the source vertex.
func (n *Network) TotalFlow() int64 {
	var total int64
	for _, to := range n.OutgoingEdges(n.source) {
		total += n.flow[EdgeID{n.source, to}]
	}
	return total
}

func (n *Network) sinkInFlow() int64 {
	var total int64
	for _, from := range n.IncomingEdges(n.sink) {
		total += n.flow[EdgeID{from, n.sink}]
	}
	return total
}
