package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalens/schemalens-engine/pkg/models"
)

func analyzerSnapshot() *Snapshot {
	return &Snapshot{
		Glossary: []*models.GlossaryTerm{
			{
				Term:     "GGR",
				Synonyms: models.StringList{"gross gaming revenue", "gross revenue"},
				Category: "Financial",
				Domain:   "gaming",
			},
			{
				Term:     "Active Player",
				Synonyms: models.StringList{"active user"},
				Domain:   "gaming",
			},
			{Term: "Session", Synonyms: models.StringList{}},
		},
	}
}

func TestAnalyze_ExtractsGlossaryAndKeywordTerms(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	analysis := analyzer.Analyze("Total deposits by country for active players yesterday", analyzerSnapshot())

	assert.Contains(t, analysis.BusinessTerms, "deposit")
	assert.Contains(t, analysis.BusinessTerms, "country")
	assert.Contains(t, analysis.BusinessTerms, "yesterday")
	assert.Contains(t, analysis.BusinessTerms, "total")
	assert.Contains(t, analysis.BusinessTerms, "player")
}

func TestAnalyze_SynonymRecordsCanonicalTerm(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	analysis := analyzer.Analyze("show gross gaming revenue for March", analyzerSnapshot())

	assert.Contains(t, analysis.BusinessTerms, "ggr")
	assert.NotContains(t, analysis.BusinessTerms, "gross gaming revenue")
}

func TestAnalyze_SingularizesPluralTokens(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	analysis := analyzer.Analyze("list all sessions for these customers", analyzerSnapshot())

	assert.Contains(t, analysis.BusinessTerms, "session")
	assert.Contains(t, analysis.BusinessTerms, "customer")
}

func TestAnalyze_NumericLiteralsBecomeTerms(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	analysis := analyzer.Analyze("deposits over 100.50 in the last 7 days", analyzerSnapshot())

	assert.Contains(t, analysis.BusinessTerms, "100.50")
	assert.Contains(t, analysis.BusinessTerms, "7")
}

func TestAnalyze_CategoryPrecedence(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)
	snap := analyzerSnapshot()

	tests := []struct {
		name     string
		query    string
		category string
	}{
		{"financial wins over geographic", "total deposits by country", models.CategoryFinancial},
		{"glossary domain term", "active players this month", models.CategoryDomain},
		{"geographic", "which countries do our members come from", models.CategoryGeographic},
		{"analytical", "top 10 items", models.CategoryAnalytical},
		{"general", "show me the schema", models.CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := analyzer.Analyze(tt.query, snap)
			assert.Equal(t, tt.category, analysis.Category)
		})
	}
}

func TestAnalyze_IntentClassification(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	tests := []struct {
		query  string
		intent string
	}{
		{"total deposits per day", "FinancialAggregation"},
		{"show the deposit record for this id", "FinancialLookup"},
		{"which country has the office", "GeographicAnalysis"},
		{"how many rows are there in total", "Aggregation"},
		{"show me that record", "Lookup"},
	}

	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			analysis := analyzer.Analyze(tt.query, nil)
			assert.Equal(t, tt.intent, analysis.Intent)
		})
	}
}

func TestAnalyze_ComplexityBounds(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	simple := analyzer.Analyze("show me that record", nil)
	assert.InEpsilon(t, 0.3, simple.Complexity, 1e-9)

	loaded := analyzer.Analyze(
		"total sum of deposits and withdrawals by country and region per month last year for players",
		analyzerSnapshot())
	assert.LessOrEqual(t, loaded.Complexity, 1.0)
	assert.Greater(t, loaded.Complexity, 0.7)
}

func TestAnalyze_EmptyQueryDegrades(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	for _, q := range []string{"", "   "} {
		analysis := analyzer.Analyze(q, analyzerSnapshot())

		assert.Equal(t, models.CategoryGeneral, analysis.Category)
		assert.Equal(t, models.IntentUnknown, analysis.Intent)
		assert.InEpsilon(t, 0.5, analysis.Complexity, 1e-9)
		assert.Empty(t, analysis.BusinessTerms)
	}
}

func TestAnalyze_NilSnapshotStillExtractsKeywords(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	analysis := analyzer.Analyze("total deposits yesterday", nil)

	require.NotEmpty(t, analysis.BusinessTerms)
	assert.Contains(t, analysis.BusinessTerms, "deposit")
	assert.Equal(t, models.CategoryFinancial, analysis.Category)
}

func TestAnalyze_TermsDeduplicated(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	analysis := analyzer.Analyze("deposit deposits deposit", nil)

	count := 0
	for _, term := range analysis.BusinessTerms {
		if term == "deposit" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
