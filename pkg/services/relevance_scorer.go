package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/config"
	"github.com/schemalens/schemalens-engine/pkg/logging"
	"github.com/schemalens/schemalens-engine/pkg/models"
	"github.com/schemalens/schemalens-engine/pkg/similarity"
)

// Column scoring weights, mirroring the table signal shape.
const (
	columnMeaningWeight = 0.30
	columnContextWeight = 0.25
	columnAliasWeight   = 0.20
	columnMetricWeight  = 0.15
	columnUsageWeight   = 0.10

	keyColumnBoost      = 0.15
	highUsageBoost      = 0.10
	highUsageThreshold  = 0.7
	priorMappingBoost   = 0.10
	priorMappingSearchK = 5
)

// RelevanceScorer ranks tables and columns against a query analysis.
// Every text-similarity signal is optional: when the collaborator fails or
// times out, that signal is omitted from the element's mean rather than
// zero-filled, so sparse metadata is not systematically punished.
type RelevanceScorer interface {
	// ScoreTables returns the top tables strictly above the threshold,
	// capped at maxTables. The bool reports whether the importance-ranked
	// fallback was used because nothing cleared the threshold.
	ScoreTables(ctx context.Context, analysis models.QueryAnalysis, snap *Snapshot, threshold float64, maxTables int) ([]models.ScoredElement, bool)

	// ScoreColumns ranks the columns of one already-selected table.
	ScoreColumns(ctx context.Context, tableName string, analysis models.QueryAnalysis, snap *Snapshot, threshold float64, maxColumns int) []models.ScoredElement
}

type relevanceScorer struct {
	similarityClient similarity.Client        // optional
	mappingSearch    similarity.MappingSearch // optional
	policy           *IntentPolicy
	cfg              config.ScorerConfig
	logger           *zap.Logger
}

// NewRelevanceScorer creates a RelevanceScorer. Both collaborators are
// optional: nil disables the corresponding signals.
func NewRelevanceScorer(
	similarityClient similarity.Client,
	mappingSearch similarity.MappingSearch,
	policy *IntentPolicy,
	cfg config.ScorerConfig,
	logger *zap.Logger,
) RelevanceScorer {
	if policy == nil {
		policy = DefaultIntentPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &relevanceScorer{
		similarityClient: similarityClient,
		mappingSearch:    mappingSearch,
		policy:           policy,
		cfg:              cfg,
		logger:           logger,
	}
}

var _ RelevanceScorer = (*relevanceScorer)(nil)

// signalAccumulator computes a weighted mean over whichever signals fired.
type signalAccumulator struct {
	weightedSum float64
	totalWeight float64
	reasons     []string
}

func (s *signalAccumulator) add(value, weight float64, reason string) {
	s.weightedSum += value * weight
	s.totalWeight += weight
	s.reasons = append(s.reasons, reason)
}

func (s *signalAccumulator) mean() (float64, bool) {
	if s.totalWeight == 0 {
		return 0, false
	}
	return s.weightedSum / s.totalWeight, true
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (s *relevanceScorer) ScoreTables(ctx context.Context, analysis models.QueryAnalysis, snap *Snapshot, threshold float64, maxTables int) ([]models.ScoredElement, bool) {
	if snap == nil || len(snap.Tables) == 0 {
		return nil, false
	}
	if threshold <= 0 {
		threshold = s.cfg.RelevanceThreshold
	}
	if maxTables <= 0 || maxTables > s.cfg.MaxTablesCeiling {
		// The hard ceiling takes precedence over larger requested limits
		// to keep the downstream context focused.
		maxTables = s.cfg.MaxTablesCeiling
	}

	priorTables := s.priorMappingTables(ctx, analysis.OriginalQuery)

	// Fan out across a bounded worker pool; results land in fixed slice
	// positions so concurrency never changes the observable ranking.
	scored := make([]models.ScoredElement, len(snap.Tables))
	indexes := make(chan int)
	var wg sync.WaitGroup

	workers := s.cfg.ScoringWorkers
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				scored[i] = s.scoreTable(ctx, snap.Tables[i], analysis, priorTables)
			}
		}()
	}

	for i := range snap.Tables {
		if ctx.Err() != nil {
			// Caller cancellation: stop scheduling and return the
			// best-effort partial ranking already computed.
			break
		}
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	var selected []models.ScoredElement
	for _, e := range scored {
		if e.TableName != "" && e.Score > threshold {
			selected = append(selected, e)
		}
	}

	if len(selected) == 0 {
		return s.importanceFallback(snap), true
	}

	sortScored(selected)
	if len(selected) > maxTables {
		selected = selected[:maxTables]
	}
	return selected, false
}

// scoreTable computes the weighted mean of the table's fired signals plus
// intent adjustments.
func (s *relevanceScorer) scoreTable(ctx context.Context, table *models.TableMetadata, analysis models.QueryAnalysis, priorTables map[string]float64) models.ScoredElement {
	var acc signalAccumulator

	if sim, ok := s.textSimilarity(ctx, analysis.OriginalQuery, table.BusinessPurpose, table.QualifiedName()); ok {
		acc.add(sim, s.cfg.PurposeWeight, models.ReasonPurposeSimilarity)
	}
	if sim, ok := s.textSimilarity(ctx, analysis.OriginalQuery, table.SemanticDescription, table.QualifiedName()); ok {
		acc.add(sim, s.cfg.SemanticWeight, models.ReasonSemanticSimilarity)
	}
	if overlap, ok := glossaryOverlap(analysis.BusinessTerms, table.GlossaryTermNames); ok {
		acc.add(overlap, s.cfg.GlossaryWeight, models.ReasonGlossaryOverlap)
	}
	if kw, ok := keywordSimilarity(analysis.BusinessTerms, table.SearchKeywords); ok {
		acc.add(kw, s.cfg.KeywordWeight, models.ReasonKeywordSimilarity)
	}
	if table.ImportanceScore > 0 && table.UsageFrequency > 0 {
		acc.add(table.ImportanceScore*table.UsageFrequency, s.cfg.ImportanceWeight, models.ReasonImportanceUsage)
	}

	score, fired := acc.mean()
	if !fired {
		return models.ScoredElement{TableName: table.QualifiedName(), Score: 0}
	}

	adjustment, reasons := s.policy.TableAdjustment(analysis.Category, table)
	score += adjustment
	acc.reasons = append(acc.reasons, reasons...)

	if boost, ok := priorTables[canonicalTableKey(table.QualifiedName())]; ok {
		score += priorMappingBoost * boost
		acc.reasons = append(acc.reasons, models.ReasonPriorMapping)
	}

	return models.ScoredElement{
		TableName:   table.QualifiedName(),
		Score:       clampScore(score),
		ReasonCodes: acc.reasons,
	}
}

func (s *relevanceScorer) ScoreColumns(ctx context.Context, tableName string, analysis models.QueryAnalysis, snap *Snapshot, threshold float64, maxColumns int) []models.ScoredElement {
	if snap == nil {
		return nil
	}
	columns := snap.ColumnsFor(tableName)
	if len(columns) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = s.cfg.RelevanceThreshold
	}
	if maxColumns <= 0 {
		maxColumns = s.cfg.MaxColumnsPerTable
	}
	maxColumns = s.policy.ColumnCap(analysis.Category, maxColumns)

	var selected []models.ScoredElement
	for _, col := range columns {
		if ctx.Err() != nil {
			break
		}
		e := s.scoreColumn(ctx, col, analysis)
		if e.Score > threshold {
			selected = append(selected, e)
		}
	}

	sortScoredColumns(selected)
	if len(selected) > maxColumns {
		selected = selected[:maxColumns]
	}
	return selected
}

func (s *relevanceScorer) scoreColumn(ctx context.Context, col *models.ColumnMetadata, analysis models.QueryAnalysis) models.ScoredElement {
	var acc signalAccumulator

	if sim, ok := s.textSimilarity(ctx, analysis.OriginalQuery, col.BusinessMeaning, col.QualifiedName()); ok {
		acc.add(sim, columnMeaningWeight, models.ReasonPurposeSimilarity)
	}
	if sim, ok := s.textSimilarity(ctx, analysis.OriginalQuery, col.BusinessContext, col.QualifiedName()); ok {
		acc.add(sim, columnContextWeight, models.ReasonSemanticSimilarity)
	}
	if match, ok := aliasMatch(analysis.BusinessTerms, col); ok {
		acc.add(match, columnAliasWeight, models.ReasonAliasMatch)
	}
	if match, ok := metricRelevance(analysis.Intent, col.BusinessMetrics); ok {
		acc.add(match, columnMetricWeight, models.ReasonMetricMatch)
	}
	if col.UsageFrequency > 0 && col.SemanticRelevanceScore > 0 {
		acc.add(col.UsageFrequency*col.SemanticRelevanceScore, columnUsageWeight, models.ReasonImportanceUsage)
	}

	score, fired := acc.mean()
	if !fired {
		score = 0
	}

	// Identifier and date columns are rarely droppable even without a
	// strong text match.
	if col.IsKeyColumn {
		score += keyColumnBoost
		acc.reasons = append(acc.reasons, models.ReasonKeyColumn)
	}
	if col.UsageFrequency >= highUsageThreshold {
		score += highUsageBoost
		acc.reasons = append(acc.reasons, models.ReasonHighUsage)
	}

	return models.ScoredElement{
		TableName:   col.TableName,
		ColumnName:  col.ColumnName,
		Score:       clampScore(score),
		ReasonCodes: acc.reasons,
	}
}

// textSimilarity invokes the similarity collaborator. A failure or timeout
// is signal-unavailable: logged as a warning, omitted from the mean, never
// raised to the caller.
func (s *relevanceScorer) textSimilarity(ctx context.Context, query, text, element string) (float64, bool) {
	if s.similarityClient == nil || text == "" || query == "" {
		return 0, false
	}

	sim, err := s.similarityClient.Similarity(ctx, query, text)
	if err != nil {
		s.logger.Warn("Similarity signal degraded",
			zap.String("element", element),
			zap.String("error", logging.SanitizeError(err)))
		return 0, false
	}
	return clampScore(sim), true
}

// priorMappingTables queries the optional vector search for tables that
// served similar past queries. Failures degrade to no boost.
func (s *relevanceScorer) priorMappingTables(ctx context.Context, query string) map[string]float64 {
	if s.mappingSearch == nil || query == "" {
		return nil
	}

	mappings, err := s.mappingSearch.FindSimilar(ctx, query, priorMappingSearchK, s.cfg.RelevanceThreshold)
	if err != nil {
		s.logger.Warn("Prior-mapping signal degraded",
			zap.String("error", logging.SanitizeError(err)))
		return nil
	}

	tables := make(map[string]float64, len(mappings))
	for _, m := range mappings {
		key := canonicalTableKey(m.TableName)
		if m.Confidence > tables[key] {
			tables[key] = clampScore(m.Confidence)
		}
	}
	return tables
}

// importanceFallback returns the top tables by raw importance when nothing
// clears the threshold. An empty result would leave the caller with no
// schema at all, which is strictly worse than a low-confidence guess.
func (s *relevanceScorer) importanceFallback(snap *Snapshot) []models.ScoredElement {
	s.logger.Warn("No tables cleared the relevance threshold, using importance fallback")

	fallback := make([]models.ScoredElement, 0, len(snap.Tables))
	for _, t := range snap.Tables {
		fallback = append(fallback, models.ScoredElement{
			TableName:   t.QualifiedName(),
			Score:       clampScore(t.ImportanceScore),
			ReasonCodes: []string{models.ReasonImportanceFallback},
		})
	}
	sortScored(fallback)

	n := s.cfg.FallbackTableCount
	if n < 1 {
		n = 1
	}
	if len(fallback) > n {
		fallback = fallback[:n]
	}
	return fallback
}

// glossaryOverlap is a Jaccard-style overlap between the query's business
// terms and the table's tagged glossary terms.
func glossaryOverlap(queryTerms []string, tableTerms models.StringList) (float64, bool) {
	if len(queryTerms) == 0 || len(tableTerms) == 0 {
		return 0, false
	}

	tableSet := make(map[string]bool, len(tableTerms))
	for _, t := range tableTerms {
		tableSet[strings.ToLower(t)] = true
	}

	intersection := 0
	querySet := make(map[string]bool, len(queryTerms))
	for _, t := range queryTerms {
		lower := strings.ToLower(t)
		if querySet[lower] {
			continue
		}
		querySet[lower] = true
		if tableSet[lower] {
			intersection++
		}
	}

	union := len(querySet) + len(tableSet) - intersection
	if union == 0 {
		return 0, false
	}
	return float64(intersection) / float64(union), true
}

// keywordSimilarity is the fraction of query terms present in the table's
// precomputed search keyword blob.
func keywordSimilarity(queryTerms []string, searchKeywords string) (float64, bool) {
	if len(queryTerms) == 0 || searchKeywords == "" {
		return 0, false
	}

	haystack := strings.ToLower(searchKeywords)
	matched := 0
	for _, term := range queryTerms {
		if strings.Contains(haystack, strings.ToLower(term)) {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms)), true
}

// aliasMatch scores how well the extracted terms hit the column's name and
// natural-language aliases.
func aliasMatch(queryTerms []string, col *models.ColumnMetadata) (float64, bool) {
	if len(queryTerms) == 0 {
		return 0, false
	}

	name := strings.ToLower(col.ColumnName)
	for _, term := range queryTerms {
		lower := strings.ToLower(term)
		if strings.Contains(name, lower) || col.NaturalLanguageAliases.ContainsFold(term) {
			return 1, true
		}
	}
	return 0, true
}

// metricRelevance scores the column's business metrics against the
// detected intent.
func metricRelevance(intent string, metrics models.StringList) (float64, bool) {
	if intent == "" || intent == models.IntentUnknown || len(metrics) == 0 {
		return 0, false
	}

	lowerIntent := strings.ToLower(intent)
	for _, metric := range metrics {
		for _, word := range strings.Fields(strings.ToLower(metric)) {
			if strings.Contains(lowerIntent, word) {
				return 1, true
			}
		}
	}
	return 0, true
}

// sortScored orders by score descending with a stable tie-break on table
// name ascending, so parallel scoring never changes the ranking.
func sortScored(elements []models.ScoredElement) {
	sort.SliceStable(elements, func(i, j int) bool {
		if elements[i].Score != elements[j].Score {
			return elements[i].Score > elements[j].Score
		}
		return elements[i].TableName < elements[j].TableName
	})
}

func sortScoredColumns(elements []models.ScoredElement) {
	sort.SliceStable(elements, func(i, j int) bool {
		if elements[i].Score != elements[j].Score {
			return elements[i].Score > elements[j].Score
		}
		return elements[i].ColumnName < elements[j].ColumnName
	})
}
