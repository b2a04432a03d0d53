// Package maxflow implements Dinic's algorithm: a pure function computing
// maximum integer flow from source to sink over a flownet.Network.
//
// Grounded on the teacher's services/solver-svc/internal/algorithms/dinic.go
// (DinicWithContext, bfsLevelDeterministic, findBlockingFlow,
// dfsBlockingPath with current-arc optimization via an explicit stack to
// avoid recursion-depth issues), adapted to integer flow/capacity
// arithmetic — "available capacity > 0" replaces the teacher's
// Epsilon-tolerant float comparison — and to operate on this repo's
// flownet.Network instead of graph.ResidualGraph. The residual-graph build
// step (spec.md §4.2 step a) is grounded on the teacher's UpdateFlow /
// GetNeighborsList residual-maintenance pattern, generalized so the solver
// builds and owns a scratch residual network reused across BFS phases,
// mirroring the teacher's GraphPool/Reset() reuse pattern in
// services/solver-svc/internal/graph/pool.go. Rather than reconstructing
// the original network's flow from the final residual state (step d), each
// augmenting path updates both graphs together as it is pushed, the same
// way the teacher's UpdateFlow keeps a single graph's forward/backward
// edges in sync in one call.
package maxflow

import (
	"context"

	"ratingxchange/internal/flownet"
)

// Result is the outcome of one Solve call.
type Result struct {
	// MaxFlow is the maximum flow value computed.
	MaxFlow int64
	// Iterations is the number of BFS phases executed.
	Iterations int
	// Canceled reports whether ctx was done before the algorithm converged.
	Canceled bool
}

const checkInterval = 100

// Solve computes maximum integer flow from n.Source() to n.Sink(), mutating
// n's edge flows in place to realize that flow, and returns the flow value.
//
// The spec does not mandate a specific tie-break among equally-valid
// assignments; this implementation's iteration order is deterministic
// (sorted-adjacency BFS and DFS, matching flownet.Network's own
// deterministic OutgoingEdges), so repeated Solve calls on the same input
// always produce the same flow assignment.
func Solve(ctx context.Context, n *flownet.Network) Result {
	source, sink := n.Source(), n.Sink()

	residual := flownet.Empty(source, sink)
	buildResidual(n, residual)

	var maxFlow int64
	iterations := 0

	for {
		if iterations%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return Result{MaxFlow: maxFlow, Iterations: iterations, Canceled: true}
			default:
			}
		}

		level := bfsLevel(residual, source)
		if _, reachable := level[sink]; !reachable {
			break
		}

		blocked := findBlockingFlow(residual, n, source, sink, level)
		if blocked <= 0 {
			break
		}
		maxFlow += blocked
		iterations++
	}

	return Result{MaxFlow: maxFlow, Iterations: iterations}
}

// buildResidual populates residual from n: for each edge (u,v) with
// capacity c and flow f, includes (u,v) with residual c-f if positive, and
// (v,u) with residual f if positive (spec.md §4.2 step a).
func buildResidual(n *flownet.Network, residual *flownet.Network) {
	residual.Clear()
	for _, e := range n.Edges() {
		if forward := n.AvailableCapacity(e); forward > 0 {
			addResidualCapacity(residual, e.From, e.To, forward)
		}
		if backward := n.Flow(e); backward > 0 {
			addResidualCapacity(residual, e.To, e.From, backward)
		}
	}
}

func addResidualCapacity(residual *flownet.Network, from, to flownet.VertexID, amount int64) {
	id := flownet.EdgeID{From: from, To: to}
	if residual.HasEdge(from, to) {
		residual.AddEdge(from, to, residual.Capacity(id)+amount, 0)
		return
	}
	residual.AddEdge(from, to, amount, 0)
}

// bfsLevel builds the level graph by BFS from source: level(source) = 0; an
// edge (u,v) is included iff level(v) is unknown, and then
// level(v) := level(u)+1.
func bfsLevel(residual *flownet.Network, source flownet.VertexID) map[flownet.VertexID]int {
	level := map[flownet.VertexID]int{source: 0}
	queue := []flownet.VertexID{source}

	for head := 0; head < len(queue); head++ {
		u := queue[head]
		for _, v := range residual.OutgoingEdges(u) {
			if _, seen := level[v]; seen {
				continue
			}
			if residual.AvailableCapacity(flownet.EdgeID{From: u, To: v}) <= 0 {
				continue
			}
			level[v] = level[u] + 1
			queue = append(queue, v)
		}
	}
	return level
}

// findBlockingFlow repeatedly finds augmenting paths in the level graph
// until none remain, returning their total flow. Each found path is
// augmented immediately in both the residual graph and the original
// network n.
func findBlockingFlow(residual, n *flownet.Network, source, sink flownet.VertexID, level map[flownet.VertexID]int) int64 {
	currentArc := make(map[flownet.VertexID]int)
	var total int64
	for {
		flow := augmentOnce(residual, n, source, sink, level, currentArc)
		if flow <= 0 {
			break
		}
		total += flow
	}
	return total
}

// augmentOnce finds one admissible source-to-sink path via iterative DFS
// with current-arc optimization and augments both graphs along it,
// returning the bottleneck flow pushed (0 if no path exists).
func augmentOnce(residual, n *flownet.Network, source, sink flownet.VertexID, level map[flownet.VertexID]int, currentArc map[flownet.VertexID]int) int64 {
	const noBottleneck = -1
	path := []flownet.VertexID{source}
	minCap := []int64{noBottleneck}

	for len(path) > 0 {
		u := path[len(path)-1]

		if u == sink {
			bottleneck := minCap[len(minCap)-1]
			for i := 0; i < len(path)-1; i++ {
				pushFlow(residual, n, path[i], path[i+1], bottleneck)
			}
			return bottleneck
		}

		neighbors := residual.OutgoingEdges(u)
		advanced := false
		for i := currentArc[u]; i < len(neighbors); i++ {
			v := neighbors[i]
			avail := residual.AvailableCapacity(flownet.EdgeID{From: u, To: v})
			if level[v] != level[u]+1 || avail <= 0 {
				continue
			}

			currentArc[u] = i

			bottleneck := avail
			if prev := minCap[len(minCap)-1]; prev != noBottleneck && prev < bottleneck {
				bottleneck = prev
			}

			path = append(path, v)
			minCap = append(minCap, bottleneck)
			advanced = true
			break
		}

		if !advanced {
			currentArc[u] = len(neighbors)
			delete(level, u) // dead end: exclude from further exploration this phase
			path = path[:len(path)-1]
			minCap = minCap[:len(minCap)-1]
		}
	}

	return 0
}

// pushFlow augments amount along u->v in both the residual graph (forward
// capacity decreases, reverse capacity increases) and the original network
// n: if n has a forward edge u->v, its flow increases by amount; if instead
// u->v is the reverse of an original edge v->u, that original edge's flow
// decreases by amount (flow cancellation).
func pushFlow(residual, n *flownet.Network, u, v flownet.VertexID, amount int64) {
	fwd := flownet.EdgeID{From: u, To: v}
	residual.AddEdge(u, v, residual.Capacity(fwd)-amount, 0)

	rev := flownet.EdgeID{From: v, To: u}
	if residual.HasEdge(v, u) {
		residual.AddEdge(v, u, residual.Capacity(rev)+amount, 0)
	} else {
		residual.AddEdge(v, u, amount, 0)
	}

	switch {
	case n.HasEdge(u, v):
		e := flownet.EdgeID{From: u, To: v}
		n.SetFlow(e, n.Flow(e)+amount)
	case n.HasEdge(v, u):
		e := flownet.EdgeID{From: v, To: u}
		n.SetFlow(e, n.Flow(e)-amount)
	}
}
