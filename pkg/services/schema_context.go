package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/logging"
	"github.com/schemalens/schemalens-engine/pkg/models"
	"github.com/schemalens/schemalens-engine/pkg/apperrors"
)

// SchemaContextService is the top-level entry point: it narrows the full
// schema to the slice relevant to one natural-language question and
// resolves how the surviving tables join.
type SchemaContextService interface {
	// GetRelevantSchema scores the snapshot against the query and returns
	// the assembled, budget-bounded context. A zero threshold or
	// non-positive limits fall back to configured defaults. The only error
	// condition is an unavailable snapshot.
	GetRelevantSchema(ctx context.Context, query string, relevanceThreshold float64, maxTables, maxColumnsPerTable int) (models.ContextualizedResult, error)

	// GetJoinPaths resolves shortest join paths between every unordered
	// pair of the given tables. Duplicate names are collapsed first.
	GetJoinPaths(ctx context.Context, tableNames []string) ([]models.JoinPath, []models.UnresolvedPair, error)

	// GetRelatedTables walks the FK graph out to maxDepth hops from the
	// given table.
	GetRelatedTables(ctx context.Context, tableName string, maxDepth int) ([]models.RelatedTableInfo, error)
}

type schemaContextService struct {
	store     *SnapshotStore
	analyzer  QueryAnalyzer
	scorer    RelevanceScorer
	assembler ContextAssembler
	logger    *zap.Logger
}

func NewSchemaContextService(
	store *SnapshotStore,
	analyzer QueryAnalyzer,
	scorer RelevanceScorer,
	assembler ContextAssembler,
	logger *zap.Logger,
) SchemaContextService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &schemaContextService{
		store:     store,
		analyzer:  analyzer,
		scorer:    scorer,
		assembler: assembler,
		logger:    logger,
	}
}

var _ SchemaContextService = (*schemaContextService)(nil)

func (s *schemaContextService) GetRelevantSchema(ctx context.Context, query string, relevanceThreshold float64, maxTables, maxColumnsPerTable int) (models.ContextualizedResult, error) {
	snap, err := s.store.Current()
	if err != nil {
		return models.ContextualizedResult{}, fmt.Errorf("getting relevant schema: %w", err)
	}

	analysis := s.analyzer.Analyze(query, snap)
	scoredTables, fallback := s.scorer.ScoreTables(ctx, analysis, snap, relevanceThreshold, maxTables)

	selected := make([]models.SelectedTable, 0, len(scoredTables))
	tableNames := make([]string, 0, len(scoredTables))
	for _, st := range scoredTables {
		selected = append(selected, models.SelectedTable{
			TableName:   st.TableName,
			Score:       st.Score,
			ReasonCodes: st.ReasonCodes,
			Columns:     s.scorer.ScoreColumns(ctx, st.TableName, analysis, snap, relevanceThreshold, maxColumnsPerTable),
		})
		tableNames = append(tableNames, st.TableName)
	}

	paths, unresolved := snap.Graph.PathsForTableSet(tableNames)
	result := s.assembler.Assemble(analysis, selected, paths, unresolved, snap, fallback)

	s.logger.Info("Resolved schema context",
		logging.Query(query),
		zap.String("category", analysis.Category),
		zap.Int("tables", len(result.Tables)),
		zap.Int("joinPaths", len(result.JoinPaths)),
		zap.Int("unresolvedPairs", len(result.UnresolvedPairs)),
		zap.Int("estimatedTokens", result.EstimatedTokens),
		zap.Bool("fallback", result.FallbackSelection),
		zap.Bool("truncated", result.Truncated))

	return result, nil
}

func (s *schemaContextService) GetJoinPaths(ctx context.Context, tableNames []string) ([]models.JoinPath, []models.UnresolvedPair, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, nil, fmt.Errorf("getting join paths: %w", err)
	}

	unique := dedupeTableNames(tableNames)
	if len(unique) < 2 {
		return nil, nil, nil
	}

	paths, unresolved := snap.Graph.PathsForTableSet(unique)
	return paths, unresolved, nil
}

func (s *schemaContextService) GetRelatedTables(ctx context.Context, tableName string, maxDepth int) ([]models.RelatedTableInfo, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, fmt.Errorf("getting related tables: %w", err)
	}

	if _, ok := snap.Graph.Resolve(tableName); !ok {
		return nil, fmt.Errorf("table %q: %w", tableName, apperrors.ErrNotFound)
	}
	return snap.Graph.RelatedTables(tableName, maxDepth), nil
}

// dedupeTableNames collapses case-insensitive duplicates while preserving
// first-seen order and spelling.
func dedupeTableNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	unique := make([]string, 0, len(names))
	for _, n := range names {
		key := canonicalTableKey(n)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, n)
	}
	return unique
}
