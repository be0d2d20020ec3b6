package services

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/logging"
	"github.com/schemalens/schemalens-engine/pkg/models"
)

// Domain keyword families matched during term extraction. These are
// general analytical vocabulary, not deployment tuning; vertical-specific
// vocabulary belongs in the intent policy and the glossary.
var (
	financialKeywords = []string{
		"deposit", "withdrawal", "payment", "transaction", "revenue",
		"balance", "amount", "cost", "price", "fee", "bonus", "wager",
	}
	geographicKeywords = []string{
		"country", "region", "city", "state", "location", "territory",
	}
	temporalKeywords = []string{
		"yesterday", "today", "daily", "weekly", "monthly", "yearly",
		"last", "previous", "recent", "date", "month", "week", "year",
	}
	aggregationKeywords = []string{
		"total", "sum", "count", "average", "avg", "max", "min",
		"top", "highest", "lowest", "per",
	}
	identityKeywords = []string{
		"player", "user", "customer", "account", "member", "client",
	}
)

var (
	numericLiteralPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	wordPattern           = regexp.MustCompile(`[a-z][a-z_]*`)
)

// QueryAnalyzer turns free-text questions into a structured analysis.
type QueryAnalyzer interface {
	// Analyze never fails: on any internal problem it returns a degraded
	// analysis and the caller proceeds with reduced ranking power.
	Analyze(query string, snap *Snapshot) models.QueryAnalysis
}

type queryAnalyzer struct {
	logger *zap.Logger
}

// NewQueryAnalyzer creates a new QueryAnalyzer.
func NewQueryAnalyzer(logger *zap.Logger) QueryAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &queryAnalyzer{logger: logger}
}

var _ QueryAnalyzer = (*queryAnalyzer)(nil)

func (a *queryAnalyzer) Analyze(query string, snap *Snapshot) models.QueryAnalysis {
	if strings.TrimSpace(query) == "" {
		return degradedAnalysis(query)
	}

	lower := strings.ToLower(query)
	tokens := wordPattern.FindAllString(lower, -1)

	terms := a.extractTerms(lower, tokens, snap)
	category := classifyCategory(lower, tokens, terms, snap)
	intent := classifyIntent(lower, tokens)
	complexity := computeComplexity(lower, tokens, terms)

	analysis := models.QueryAnalysis{
		OriginalQuery: query,
		BusinessTerms: terms,
		Category:      category,
		Intent:        intent,
		Complexity:    complexity,
	}

	a.logger.Debug("Analyzed query",
		logging.Query(query),
		zap.String("category", category),
		zap.String("intent", intent),
		zap.Float64("complexity", complexity),
		zap.Int("terms", len(terms)))

	return analysis
}

func degradedAnalysis(query string) models.QueryAnalysis {
	return models.QueryAnalysis{
		OriginalQuery: query,
		BusinessTerms: []string{},
		Category:      models.CategoryGeneral,
		Intent:        models.IntentUnknown,
		Complexity:    0.5,
	}
}

// extractTerms collects glossary terms and synonyms present in the query,
// domain keyword family matches, and numeric literals as pseudo-terms.
// Tokens are singularized so "deposits" matches "deposit".
func (a *queryAnalyzer) extractTerms(lowerQuery string, tokens []string, snap *Snapshot) []string {
	seen := make(map[string]bool)
	var terms []string
	add := func(term string) {
		term = strings.ToLower(term)
		if term != "" && !seen[term] {
			seen[term] = true
			terms = append(terms, term)
		}
	}

	singulars := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		singulars = append(singulars, inflection.Singular(tok))
	}

	if snap != nil {
		for _, g := range snap.Glossary {
			if termInQuery(g.Term, lowerQuery, singulars) {
				add(g.Term)
				continue
			}
			for _, syn := range g.Synonyms {
				if termInQuery(syn, lowerQuery, singulars) {
					// The canonical term is recorded, not the synonym, so
					// downstream overlap checks hit tagged metadata.
					add(g.Term)
					break
				}
			}
		}
	}

	for _, family := range [][]string{
		financialKeywords, geographicKeywords, temporalKeywords,
		aggregationKeywords, identityKeywords,
	} {
		for _, kw := range family {
			if containsToken(singulars, kw) || strings.Contains(lowerQuery, kw) {
				add(kw)
			}
		}
	}

	for _, num := range numericLiteralPattern.FindAllString(lowerQuery, -1) {
		add(num)
	}

	return terms
}

// termInQuery matches a glossary term against the query. Multi-word terms
// are matched as substrings; single words are matched against singularized
// tokens to avoid accidental substring hits.
func termInQuery(term, lowerQuery string, singularTokens []string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	if strings.Contains(term, " ") {
		return strings.Contains(lowerQuery, term)
	}
	return containsToken(singularTokens, inflection.Singular(term))
}

func containsToken(tokens []string, want string) bool {
	for _, tok := range tokens {
		if tok == want {
			return true
		}
	}
	return false
}

// classifyCategory applies rule-based keyword matching with a fixed
// precedence: financial > domain-specific > geographic > analytical >
// general.
func classifyCategory(lowerQuery string, tokens []string, terms []string, snap *Snapshot) string {
	if matchesFamily(lowerQuery, tokens, financialKeywords) {
		return models.CategoryFinancial
	}
	if snap != nil && matchesGlossaryDomain(terms, snap) {
		return models.CategoryDomain
	}
	if matchesFamily(lowerQuery, tokens, geographicKeywords) {
		return models.CategoryGeographic
	}
	if matchesFamily(lowerQuery, tokens, aggregationKeywords) {
		return models.CategoryAnalytical
	}
	return models.CategoryGeneral
}

func matchesFamily(lowerQuery string, tokens []string, family []string) bool {
	for _, kw := range family {
		if strings.Contains(lowerQuery, kw) {
			return true
		}
		for _, tok := range tokens {
			if inflection.Singular(tok) == kw {
				return true
			}
		}
	}
	return false
}

// matchesGlossaryDomain reports whether an extracted term belongs to a
// glossary entry with a domain-specific classification.
func matchesGlossaryDomain(terms []string, snap *Snapshot) bool {
	for _, g := range snap.Glossary {
		if g.Domain == "" && g.Category == "" {
			continue
		}
		for _, term := range terms {
			if g.Matches(term) {
				return true
			}
		}
	}
	return false
}

// classifyIntent derives a coarse intent label from the dominant keyword
// families. The intent policy keys its adjustments off the category; the
// label adds human-readable nuance for callers and logs.
func classifyIntent(lowerQuery string, tokens []string) string {
	aggregation := matchesFamily(lowerQuery, tokens, aggregationKeywords)

	switch {
	case matchesFamily(lowerQuery, tokens, financialKeywords) && aggregation:
		return "FinancialAggregation"
	case matchesFamily(lowerQuery, tokens, financialKeywords):
		return "FinancialLookup"
	case matchesFamily(lowerQuery, tokens, geographicKeywords):
		return "GeographicAnalysis"
	case aggregation:
		return "Aggregation"
	default:
		return "Lookup"
	}
}

// computeComplexity is a bounded additive score: base 0.3, plus fixed
// increments for aggregation, temporal filters, geographic filters, and a
// large term set, clipped to [0,1].
func computeComplexity(lowerQuery string, tokens []string, terms []string) float64 {
	complexity := 0.3

	if matchesFamily(lowerQuery, tokens, aggregationKeywords) {
		complexity += 0.2
	}
	if matchesFamily(lowerQuery, tokens, temporalKeywords) {
		complexity += 0.15
	}
	if matchesFamily(lowerQuery, tokens, geographicKeywords) {
		complexity += 0.15
	}
	if len(terms) > 5 {
		complexity += 0.1
	}

	if complexity > 1 {
		complexity = 1
	}
	return complexity
}
