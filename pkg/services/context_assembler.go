package services

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/config"
	"github.com/schemalens/schemalens-engine/pkg/models"
)

// ContextAssembler packages scored tables, their columns, join paths and
// glossary terms into a single result that fits a token budget.
type ContextAssembler interface {
	Assemble(analysis models.QueryAnalysis, tables []models.SelectedTable, paths []models.JoinPath, unresolved []models.UnresolvedPair, snap *Snapshot, fallback bool) models.ContextualizedResult
}

type contextAssembler struct {
	cfg    config.AssemblerConfig
	logger *zap.Logger
}

func NewContextAssembler(cfg config.AssemblerConfig, logger *zap.Logger) ContextAssembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &contextAssembler{cfg: cfg, logger: logger}
}

var _ ContextAssembler = (*contextAssembler)(nil)

func (a *contextAssembler) Assemble(analysis models.QueryAnalysis, tables []models.SelectedTable, paths []models.JoinPath, unresolved []models.UnresolvedPair, snap *Snapshot, fallback bool) models.ContextualizedResult {
	result := models.ContextualizedResult{
		Analysis:          analysis,
		Tables:            tables,
		JoinPaths:         paths,
		UnresolvedPairs:   unresolved,
		FallbackSelection: fallback,
	}
	if snap != nil {
		result.GlossaryTerms = a.relevantGlossaryTerms(analysis, tables, snap)
	}

	result.EstimatedTokens = a.estimateTokens(&result)
	if result.EstimatedTokens <= a.cfg.TokenBudget {
		return result
	}

	a.trimToBudget(&result)
	return result
}

// estimateTokens is a coarse per-entity cost model. It deliberately avoids
// tokenizer round-trips: the budget exists to bound prompt size, not to hit
// it exactly.
func (a *contextAssembler) estimateTokens(result *models.ContextualizedResult) int {
	tokens := 0
	for _, t := range result.Tables {
		tokens += a.cfg.TokensPerTable
		tokens += len(t.Columns) * a.cfg.TokensPerColumn
	}
	tokens += len(result.JoinPaths) * a.cfg.TokensPerJoinPath
	tokens += len(result.GlossaryTerms) * a.cfg.TokensPerGlossary
	return tokens
}

// trimToBudget drops whole entities, lowest score first, until the estimate
// fits. Columns go before their tables, glossary terms before join paths,
// and the highest-scoring table always survives so the result is never
// empty. Entities are never partially emitted.
func (a *contextAssembler) trimToBudget(result *models.ContextualizedResult) {
	result.Truncated = true
	budget := a.cfg.TokenBudget

	// Pass 1: shed the lowest-scoring columns across all tables.
	type columnRef struct {
		tableIdx int
		score    float64
	}
	var refs []columnRef
	for ti, t := range result.Tables {
		for _, c := range t.Columns {
			refs = append(refs, columnRef{tableIdx: ti, score: c.Score})
		}
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].score < refs[j].score })

	for _, ref := range refs {
		if a.estimateTokens(result) <= budget {
			break
		}
		cols := result.Tables[ref.tableIdx].Columns
		if len(cols) == 0 {
			continue
		}
		// Columns within a table are sorted score-descending, so the
		// victim is always the tail.
		result.Tables[ref.tableIdx].Columns = cols[:len(cols)-1]
	}

	// Pass 2: glossary terms, then join paths touching dropped tables go
	// with their tables in pass 3.
	for a.estimateTokens(result) > budget && len(result.GlossaryTerms) > 0 {
		result.GlossaryTerms = result.GlossaryTerms[:len(result.GlossaryTerms)-1]
	}

	// Pass 3: drop whole tables from the bottom of the ranking, keeping
	// at least the top one.
	for a.estimateTokens(result) > budget && len(result.Tables) > 1 {
		dropped := result.Tables[len(result.Tables)-1]
		result.Tables = result.Tables[:len(result.Tables)-1]
		result.JoinPaths = pathsWithoutTable(result.JoinPaths, dropped.TableName)
	}

	a.logger.Debug("Context trimmed to token budget",
		zap.Int("estimatedTokens", a.estimateTokens(result)),
		zap.Int("budget", budget),
		zap.Int("tables", len(result.Tables)))

	result.EstimatedTokens = a.estimateTokens(result)
}

// pathsWithoutTable removes join paths that start or end at a table no
// longer present in the selection.
func pathsWithoutTable(paths []models.JoinPath, tableName string) []models.JoinPath {
	key := canonicalTableKey(tableName)
	kept := paths[:0]
	for _, p := range paths {
		if canonicalTableKey(p.FromTable) == key || canonicalTableKey(p.ToTable) == key {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// relevantGlossaryTerms returns the terms that either matched the query or
// map onto a selected table or column, ordered by term name.
func (a *contextAssembler) relevantGlossaryTerms(analysis models.QueryAnalysis, tables []models.SelectedTable, snap *Snapshot) []models.GlossaryTerm {
	selectedTables := make(map[string]bool, len(tables))
	selectedColumns := make(map[string]bool)
	for _, t := range tables {
		selectedTables[canonicalTableKey(t.TableName)] = true
		selectedTables[bareTableName(canonicalTableKey(t.TableName))] = true
		for _, c := range t.Columns {
			selectedColumns[strings.ToLower(c.TableName+"."+c.ColumnName)] = true
		}
	}

	var relevant []models.GlossaryTerm
	for _, term := range snap.Glossary {
		if a.termIsRelevant(term, analysis.BusinessTerms, selectedTables, selectedColumns) {
			relevant = append(relevant, *term)
		}
	}
	sort.Slice(relevant, func(i, j int) bool { return relevant[i].Term < relevant[j].Term })
	return relevant
}

func (a *contextAssembler) termIsRelevant(term *models.GlossaryTerm, queryTerms []string, selectedTables, selectedColumns map[string]bool) bool {
	for _, qt := range queryTerms {
		if term.Matches(qt) {
			return true
		}
	}
	for _, mapped := range term.MappedTables {
		key := canonicalTableKey(mapped)
		if selectedTables[key] || selectedTables[bareTableName(key)] {
			return true
		}
	}
	for _, mapped := range term.MappedColumns {
		if selectedColumns[strings.ToLower(mapped)] {
			return true
		}
	}
	return false
}
