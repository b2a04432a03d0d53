package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Standard attribute keys shared across spans.
const (
	// Flow network
	AttrNetworkVertices = "flownet.vertices"
	AttrNetworkEdges    = "flownet.edges"
	AttrNetworkSource   = "flownet.source_id"
	AttrNetworkSink     = "flownet.sink_id"

	// Algorithm
	AttrAlgorithm  = "algorithm.name"
	AttrIterations = "algorithm.iterations"
	AttrMaxFlow    = "algorithm.max_flow"
	AttrPathsFound = "algorithm.paths_found"

	// Validation
	AttrValidationLevel  = "validation.level"
	AttrValidationErrors = "validation.errors"
	AttrValidationPassed = "validation.passed"

	// Rating exchange
	AttrExchangeSlug  = "exchange.slug"
	AttrExchangeState = "exchange.state"
	AttrGuildID       = "exchange.guild_id"
	AttrUnmatched     = "exchange.unmatched_count"
)

// NetworkAttributes describes a built flow network.
func NetworkAttributes(vertices, edges int, sourceID, sinkID int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrNetworkVertices, vertices),
		attribute.Int(AttrNetworkEdges, edges),
		attribute.Int64(AttrNetworkSource, sourceID),
		attribute.Int64(AttrNetworkSink, sinkID),
	}
}

// AlgorithmAttributes describes a max-flow solve.
func AlgorithmAttributes(name string, iterations int, maxFlow float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrAlgorithm, name),
		attribute.Int(AttrIterations, iterations),
		attribute.Float64(AttrMaxFlow, maxFlow),
	}
}

// ValidationAttributes describes an input-validation pass.
func ValidationAttributes(level string, errorsCount int, passed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrValidationLevel, level),
		attribute.Int(AttrValidationErrors, errorsCount),
		attribute.Bool(AttrValidationPassed, passed),
	}
}

// ExchangeAttributes describes a rating exchange.
func ExchangeAttributes(slug, state string, guildID uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrExchangeSlug, slug),
		attribute.String(AttrExchangeState, state),
		attribute.Int64(AttrGuildID, int64(guildID)),
	}
}
