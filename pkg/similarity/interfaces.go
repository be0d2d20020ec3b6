// Package similarity defines the external semantic similarity collaborators
// consumed by the relevance scorer. Both are used opportunistically: a
// failure or timeout degrades the affected signal, never the request.
package similarity

import "context"

// Client computes semantic similarity between two texts.
// Implementations must honor ctx deadlines; the scorer treats a timeout the
// same as signal-unavailable.
type Client interface {
	// Similarity returns a score in [0,1] for how semantically close the
	// two texts are.
	Similarity(ctx context.Context, textA, textB string) (float64, error)
}

// PriorMapping is one previously successful query-to-table mapping.
type PriorMapping struct {
	Query      string  `json:"query"`
	TableName  string  `json:"table_name"`
	Confidence float64 `json:"confidence"` // [0,1]
}

// MappingSearch finds prior query-to-table mappings similar to a query.
// Optional collaborator: a nil MappingSearch disables the prior-mapping
// boost in the scorer.
type MappingSearch interface {
	// FindSimilar returns up to k prior mappings whose queries score at or
	// above threshold against the given query.
	FindSimilar(ctx context.Context, query string, k int, threshold float64) ([]PriorMapping, error)
}
