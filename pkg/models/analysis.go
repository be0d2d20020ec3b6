package models

// Query category constants, in classification precedence order.
const (
	CategoryFinancial  = "Financial"
	CategoryDomain     = "Domain"
	CategoryGeographic = "Geographic"
	CategoryAnalytical = "Analytical"
	CategoryGeneral    = "General"
)

// IntentUnknown is the degraded intent label used when analysis fails.
const IntentUnknown = "Unknown"

// QueryAnalysis is the structured interpretation of one natural-language
// question. Ephemeral: created per request, never persisted.
type QueryAnalysis struct {
	OriginalQuery string   `json:"original_query"`
	BusinessTerms []string `json:"business_terms"`
	Category      string   `json:"category"`
	Intent        string   `json:"intent"`
	Complexity    float64  `json:"complexity"` // [0,1]
}

// HasTerm reports whether the analysis extracted the given term.
func (a *QueryAnalysis) HasTerm(term string) bool {
	for _, t := range a.BusinessTerms {
		if t == term {
			return true
		}
	}
	return false
}

// Reason codes attached to scored elements for explainability.
const (
	ReasonPurposeSimilarity  = "purpose_similarity"
	ReasonSemanticSimilarity = "semantic_similarity"
	ReasonGlossaryOverlap    = "glossary_overlap"
	ReasonKeywordSimilarity  = "keyword_similarity"
	ReasonImportanceUsage    = "importance_usage"
	ReasonIntentBoost        = "intent_boost"
	ReasonIntentPenalty      = "intent_penalty"
	ReasonPriorMapping       = "prior_mapping"
	ReasonKeyColumn          = "key_column"
	ReasonHighUsage          = "high_usage"
	ReasonAliasMatch         = "alias_match"
	ReasonMetricMatch        = "metric_match"
	ReasonImportanceFallback = "importance_fallback"
)

// ScoredElement is one ranked table or column. Ephemeral, per request.
type ScoredElement struct {
	TableName   string   `json:"table_name"`
	ColumnName  string   `json:"column_name,omitempty"` // empty for table scores
	Score       float64  `json:"score"`                 // [0,1]
	ReasonCodes []string `json:"reason_codes,omitempty"`
}
