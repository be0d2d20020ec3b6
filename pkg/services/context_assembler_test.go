package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalens/schemalens-engine/pkg/config"
	"github.com/schemalens/schemalens-engine/pkg/models"
)

func assemblerConfig() config.AssemblerConfig {
	return config.AssemblerConfig{
		TokenBudget:       4000,
		TokensPerTable:    120,
		TokensPerColumn:   30,
		TokensPerJoinPath: 40,
		TokensPerGlossary: 50,
	}
}

func selectedTable(name string, score float64, columnScores ...float64) models.SelectedTable {
	st := models.SelectedTable{TableName: name, Score: score}
	for i, cs := range columnScores {
		st.Columns = append(st.Columns, models.ScoredElement{
			TableName:  name,
			ColumnName: fmt.Sprintf("col_%d", i),
			Score:      cs,
		})
	}
	return st
}

func TestAssemble_WithinBudget(t *testing.T) {
	assembler := NewContextAssembler(assemblerConfig(), nil)

	tables := []models.SelectedTable{
		selectedTable("finance.deposits", 0.9, 0.8, 0.7),
		selectedTable("core.players", 0.7, 0.6),
	}
	paths := []models.JoinPath{{FromTable: "finance.deposits", ToTable: "core.players", PathLength: 1}}

	result := assembler.Assemble(models.QueryAnalysis{}, tables, paths, nil, nil, false)

	assert.False(t, result.Truncated)
	assert.Len(t, result.Tables, 2)
	assert.Len(t, result.JoinPaths, 1)
	// 2 tables * 120 + 3 columns * 30 + 1 path * 40.
	assert.Equal(t, 2*120+3*30+40, result.EstimatedTokens)
}

func TestAssemble_TrimsLowestScoringColumnsFirst(t *testing.T) {
	cfg := assemblerConfig()
	// Budget fits two tables and three of the five columns.
	cfg.TokenBudget = 2*120 + 3*30
	assembler := NewContextAssembler(cfg, nil)

	tables := []models.SelectedTable{
		selectedTable("finance.deposits", 0.9, 0.9, 0.8, 0.2),
		selectedTable("core.players", 0.7, 0.7, 0.1),
	}

	result := assembler.Assemble(models.QueryAnalysis{}, tables, nil, nil, nil, false)

	assert.True(t, result.Truncated)
	assert.LessOrEqual(t, result.EstimatedTokens, cfg.TokenBudget)
	require.Len(t, result.Tables, 2)
	// The weakest columns went first; the strong ones survive.
	assert.Len(t, result.Tables[0].Columns, 2)
	assert.Len(t, result.Tables[1].Columns, 1)
	assert.Equal(t, 0.7, result.Tables[1].Columns[0].Score)
}

func TestAssemble_DropsTablesWhenColumnsAreNotEnough(t *testing.T) {
	cfg := assemblerConfig()
	cfg.TokenBudget = 150
	assembler := NewContextAssembler(cfg, nil)

	tables := []models.SelectedTable{
		selectedTable("finance.deposits", 0.9, 0.8),
		selectedTable("core.players", 0.7, 0.6),
		selectedTable("core.countries", 0.6),
	}
	paths := []models.JoinPath{
		{FromTable: "finance.deposits", ToTable: "core.players", PathLength: 1},
		{FromTable: "core.players", ToTable: "core.countries", PathLength: 1},
	}

	result := assembler.Assemble(models.QueryAnalysis{}, tables, paths, nil, nil, false)

	assert.True(t, result.Truncated)
	// Only the top-scoring table survives, and join paths touching the
	// dropped tables disappear with them.
	require.Len(t, result.Tables, 1)
	assert.Equal(t, "finance.deposits", result.Tables[0].TableName)
	assert.Empty(t, result.JoinPaths)
}

func TestAssemble_NeverDropsLastTable(t *testing.T) {
	cfg := assemblerConfig()
	cfg.TokenBudget = 10
	assembler := NewContextAssembler(cfg, nil)

	result := assembler.Assemble(models.QueryAnalysis{},
		[]models.SelectedTable{selectedTable("finance.deposits", 0.9)},
		nil, nil, nil, false)

	assert.True(t, result.Truncated)
	require.Len(t, result.Tables, 1)
}

func TestAssemble_GlossaryIntersection(t *testing.T) {
	assembler := NewContextAssembler(assemblerConfig(), nil)

	snap := BuildSnapshot(nil, nil, []*models.GlossaryTerm{
		{Term: "Deposit", Definition: "Money paid in by a player", MappedTables: models.StringList{"finance.deposits"}},
		{Term: "GGR", MappedColumns: models.StringList{"deposits.amount"}},
		{Term: "Churn", MappedTables: models.StringList{"analytics.churn_scores"}},
		{Term: "Session"},
	}, nil, nil)

	tables := []models.SelectedTable{
		{
			TableName: "finance.deposits",
			Score:     0.9,
			Columns: []models.ScoredElement{
				{TableName: "deposits", ColumnName: "amount", Score: 0.8},
			},
		},
	}
	analysis := models.QueryAnalysis{BusinessTerms: []string{"session"}}

	result := assembler.Assemble(analysis, tables, nil, nil, snap, false)

	terms := make([]string, 0, len(result.GlossaryTerms))
	for _, g := range result.GlossaryTerms {
		terms = append(terms, g.Term)
	}
	// Mapped to selection or matched in the query; unrelated terms are out.
	assert.ElementsMatch(t, []string{"Deposit", "GGR", "Session"}, terms)

	// Terms are copied into the result with their full record.
	require.Equal(t, "Deposit", result.GlossaryTerms[0].Term)
	assert.Equal(t, "Money paid in by a player", result.GlossaryTerms[0].Definition)
}

func TestAssemble_CarriesFallbackFlag(t *testing.T) {
	assembler := NewContextAssembler(assemblerConfig(), nil)

	result := assembler.Assemble(models.QueryAnalysis{},
		[]models.SelectedTable{selectedTable("finance.deposits", 0.3)},
		nil, nil, nil, true)

	assert.True(t, result.FallbackSelection)
}
