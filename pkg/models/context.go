package models

// SelectedTable is one table in an assembled result, with its selected
// columns ordered by score.
type SelectedTable struct {
	TableName   string          `json:"table_name"`
	Score       float64         `json:"score"`
	ReasonCodes []string        `json:"reason_codes,omitempty"`
	Columns     []ScoredElement `json:"columns,omitempty"`
}

// ContextualizedResult is the token-budgeted output handed to the SQL
// generation layer. Structured and ordered; prose formatting belongs to the
// caller.
type ContextualizedResult struct {
	Analysis        QueryAnalysis    `json:"analysis"`
	Tables          []SelectedTable  `json:"tables"`
	JoinPaths       []JoinPath       `json:"join_paths,omitempty"`
	UnresolvedPairs []UnresolvedPair `json:"unresolved_pairs,omitempty"`
	GlossaryTerms   []GlossaryTerm   `json:"glossary_terms,omitempty"`

	// EstimatedTokens is the coarse token estimate after budget trimming.
	EstimatedTokens int `json:"estimated_tokens"`

	// Truncated is true when the token budget forced dropping tables or
	// columns from the selection.
	Truncated bool `json:"truncated"`

	// FallbackSelection is true when no table cleared the relevance
	// threshold and the importance-ranked fallback was used instead.
	FallbackSelection bool `json:"fallback_selection"`
}
