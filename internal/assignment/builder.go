// Package assignment translates an exchange's submissions and play-history
// into a bipartite flow network, solves it, and translates the solved
// network back into per-submitter assignment lists.
//
// Grounded on the teacher's services/solver-svc/internal/converter package
// — the same translate-in/translate-out shape (proto graph -> ResidualGraph
// -> flow results), here specialized to submitters/submissions instead of
// warehouses/routes and built directly against flownet.Network rather than
// a wire format, since this repo has no separate transport boundary for the
// assignment network.
package assignment

import (
	"context"
	"sort"
	"time"

	"ratingxchange/internal/domain"
	"ratingxchange/internal/flownet"
	"ratingxchange/internal/maxflow"
	"ratingxchange/pkg/metrics"
)

const (
	sourceVertex flownet.VertexID = 0
	sinkVertex   flownet.VertexID = 1
)

// vertexPair is the pair of vertices allocated for one submission: a
// submitter vertex u_i and a submission vertex v_i (spec.md §4.3).
type vertexPair struct {
	submitter flownet.VertexID
	submissionV flownet.VertexID
}

// Result is the outcome of building and solving one exchange's assignment
// network.
type Result struct {
	// Assignments maps each submission's submitter to the list of
	// submissions (by SubmissionID) they must review.
	Assignments map[uint64][]domain.SubmissionID
	// TotalFlow is the max-flow value (total number of pairings made).
	TotalFlow int64
}

// Build constructs the bipartite flow network for submissions under
// gamesPerMember, with playedLinks giving each submitter's set of links
// they must not be assigned (spec.md §4.3). submissions must all belong to
// the same exchange; empty input yields a network with no edges.
func Build(submissions []domain.Submission, playedLinks map[uint64]map[string]bool, gamesPerMember int) *flownet.Network {
	n := flownet.Empty(sourceVertex, sinkVertex)
	if len(submissions) == 0 {
		return n
	}

	pairs := make([]vertexPair, len(submissions))
	for i := range submissions {
		// Vertex 0 and 1 are reserved for source/sink; submitter/submission
		// vertices start at 2, two per submission, in input order.
		base := flownet.VertexID(2 + 2*i)
		pairs[i] = vertexPair{submitter: base, submissionV: base + 1}
	}

	cap := int64(gamesPerMember)
	for i, sub := range submissions {
		n.AddEdge(sourceVertex, pairs[i].submitter, cap, 0)
		n.AddEdge(pairs[i].submissionV, sinkVertex, cap, 0)
		_ = sub
	}

	for i, submission := range submissions {
		for j, candidate := range submissions {
			if i == j {
				continue // no self-review
			}
			if submission.Submitter == candidate.Submitter {
				continue // no self-review across a team's own multiple entries either
			}
			if playedLinks[submission.Submitter][candidate.Link] {
				continue // already played
			}
			n.AddEdge(pairs[i].submitter, pairs[j].submissionV, 1, 0)
		}
	}

	return n
}

// Solve runs Build then Dinic's algorithm on the resulting network and
// extracts the per-submitter assignment lists (spec.md §4.3 "Assignment
// extraction"). Order within each submitter's list is by SubmissionID,
// stable across runs per this implementation's deterministic iteration.
func Solve(ctx context.Context, submissions []domain.Submission, playedLinks map[uint64]map[string]bool, gamesPerMember int) Result {
	if len(submissions) == 0 {
		return Result{Assignments: map[uint64][]domain.SubmissionID{}}
	}

	start := time.Now()
	n := Build(submissions, playedLinks, gamesPerMember)
	metrics.Get().RecordNetworkSize("assignment", 2+2*len(submissions), len(n.Edges()))

	flowResult := maxflow.Solve(ctx, n)
	metrics.Get().RecordSolveOperation("dinic", true, time.Since(start), float64(flowResult.MaxFlow))

	assignments := make(map[uint64][]domain.SubmissionID, len(submissions))
	for i, sub := range submissions {
		assignments[sub.Submitter] = nil // every submitter appears, even with zero assignments
		submitterV := flownet.VertexID(2 + 2*i)

		for j, candidate := range submissions {
			if i == j {
				continue
			}
			submissionV := flownet.VertexID(2 + 2*j + 1)
			edge := flownet.EdgeID{From: submitterV, To: submissionV}
			if n.Flow(edge) >= 1 {
				assignments[sub.Submitter] = append(assignments[sub.Submitter], candidate.ID)
			}
		}
	}

	for submitter := range assignments {
		sort.Slice(assignments[submitter], func(i, j int) bool {
			return assignments[submitter][i] < assignments[submitter][j]
		})
	}

	return Result{Assignments: assignments, TotalFlow: flowResult.MaxFlow}
}

// PlayedLinksByMember indexes playedGames (already filtered to members who
// submitted to the exchange, per PlayedGameRepository.ListForExchange) into
// the shape Build expects.
func PlayedLinksByMember(playedGames []domain.PlayedGame) map[uint64]map[string]bool {
	index := make(map[uint64]map[string]bool)
	for _, pg := range playedGames {
		if index[pg.Member] == nil {
			index[pg.Member] = make(map[string]bool)
		}
		index[pg.Member][pg.Link] = true
	}
	return index
}
