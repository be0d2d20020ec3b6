package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/adapters/datasource"
	"github.com/schemalens/schemalens-engine/pkg/apperrors"
	"github.com/schemalens/schemalens-engine/pkg/config"
	"github.com/schemalens/schemalens-engine/pkg/logging"
	"github.com/schemalens/schemalens-engine/pkg/models"
	"github.com/schemalens/schemalens-engine/pkg/repositories"
)

// Snapshot is an immutable, point-in-time view of business metadata and the
// derived join graph. Published snapshots are never mutated; a refresh
// builds a new one and swaps the current pointer.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time

	// Tables holds active table metadata, sorted by qualified name.
	Tables []*models.TableMetadata
	// Glossary holds all glossary terms, sorted by term.
	Glossary []*models.GlossaryTerm
	// Relationships holds validated FK relationships (both endpoints exist
	// as active tables).
	Relationships []*models.ForeignKeyRelationship
	// Graph is the pre-built join graph over Relationships.
	Graph *JoinGraph

	tablesByKey    map[string]*models.TableMetadata
	columnsByTable map[string][]*models.ColumnMetadata
}

// LookupTable resolves a table by qualified or bare name, case-insensitively.
func (s *Snapshot) LookupTable(name string) (*models.TableMetadata, bool) {
	key := canonicalTableKey(name)
	if t, ok := s.tablesByKey[key]; ok {
		return t, true
	}
	if t, ok := s.tablesByKey[bareTableName(key)]; ok {
		return t, true
	}
	return nil, false
}

// ColumnsFor returns the active columns of a table, sorted by column name.
// Returns nil for unknown tables.
func (s *Snapshot) ColumnsFor(tableName string) []*models.ColumnMetadata {
	if t, ok := s.LookupTable(tableName); ok {
		return s.columnsByTable[canonicalTableKey(t.QualifiedName())]
	}
	return s.columnsByTable[canonicalTableKey(tableName)]
}

// SnapshotStore owns the current metadata snapshot. Readers call Current
// and either see the fully-old or fully-new view, never a partial rebuild.
type SnapshotStore struct {
	tableRepo    repositories.TableMetadataRepository
	columnRepo   repositories.ColumnMetadataRepository
	glossaryRepo repositories.GlossaryRepository
	relRepo      repositories.RelationshipRepository
	discoverer   datasource.SchemaDiscoverer // optional catalog reconciliation
	cfg          config.SnapshotConfig
	logger       *zap.Logger

	current atomic.Pointer[Snapshot]
	version atomic.Int64

	mu       sync.Mutex // serializes refreshes
	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSnapshotStore creates a SnapshotStore. The discoverer is optional; when
// present, refresh reconciles recorded relationships against the live
// catalog. No snapshot is published until the first successful Refresh.
func NewSnapshotStore(
	tableRepo repositories.TableMetadataRepository,
	columnRepo repositories.ColumnMetadataRepository,
	glossaryRepo repositories.GlossaryRepository,
	relRepo repositories.RelationshipRepository,
	discoverer datasource.SchemaDiscoverer,
	cfg config.SnapshotConfig,
	logger *zap.Logger,
) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{
		tableRepo:    tableRepo,
		columnRepo:   columnRepo,
		glossaryRepo: glossaryRepo,
		relRepo:      relRepo,
		discoverer:   discoverer,
		cfg:          cfg,
		logger:       logger,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Current returns the published snapshot, or ErrSnapshotUnavailable when no
// refresh has succeeded yet.
func (s *SnapshotStore) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, apperrors.ErrSnapshotUnavailable
	}
	return snap, nil
}

// Publish installs a pre-built snapshot. Used by tests and by callers that
// assemble snapshots from in-memory metadata.
func (s *SnapshotStore) Publish(snap *Snapshot) {
	snap.Version = s.version.Add(1)
	if snap.LoadedAt.IsZero() {
		snap.LoadedAt = time.Now()
	}
	s.current.Store(snap)
}

// Invalidate discards the TTL schedule for the current snapshot and loads a
// fresh one immediately. On failure the previous snapshot keeps serving,
// same as a failed background refresh.
func (s *SnapshotStore) Invalidate(ctx context.Context) error {
	return s.Refresh(ctx)
}

// Refresh builds a brand-new snapshot from the metadata repositories and
// atomically swaps it in. On failure the previous snapshot keeps serving;
// serving stale metadata is acceptable, serving a half-built graph is not.
func (s *SnapshotStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.RefreshTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.RefreshTimeoutSeconds)*time.Second)
		defer cancel()
	}

	tables, err := s.tableRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load table metadata: %w", err)
	}
	columns, err := s.columnRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load column metadata: %w", err)
	}
	glossary, err := s.glossaryRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load glossary: %w", err)
	}
	relationships, err := s.relRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load relationships: %w", err)
	}

	if s.discoverer != nil && s.discoverer.SupportsForeignKeys() {
		relationships, err = s.reconcileWithCatalog(ctx, relationships)
		if err != nil {
			// Discovery failure is fatal for the refresh; the last good
			// snapshot keeps serving.
			return fmt.Errorf("%w: %s", apperrors.ErrDiscoveryUnavailable, logging.SanitizeError(err))
		}
	}

	snap := BuildSnapshot(tables, columns, glossary, relationships, s.logger)
	s.Publish(snap)

	s.logger.Info("Published metadata snapshot",
		zap.Int64("version", snap.Version),
		zap.Int("tables", len(snap.Tables)),
		zap.Int("glossary_terms", len(snap.Glossary)),
		zap.Int("relationships", len(snap.Relationships)),
		zap.Int("graph_nodes", snap.Graph.NodeCount()),
		zap.Int("graph_edges", snap.Graph.EdgeCount()))

	return nil
}

// reconcileWithCatalog overlays live catalog state onto recorded
// relationships: enabled flags follow the catalog, and constraints that no
// longer exist are dropped.
func (s *SnapshotStore) reconcileWithCatalog(ctx context.Context, recorded []*models.ForeignKeyRelationship) ([]*models.ForeignKeyRelationship, error) {
	catalogFKs, err := s.discoverer.DiscoverForeignKeys(ctx)
	if err != nil {
		return nil, err
	}

	liveByConstraint := make(map[string]datasource.ForeignKeyInfo, len(catalogFKs))
	for _, fk := range catalogFKs {
		liveByConstraint[canonicalTableKey(fk.ConstraintName)] = fk
	}

	kept := make([]*models.ForeignKeyRelationship, 0, len(recorded))
	for _, rel := range recorded {
		live, exists := liveByConstraint[canonicalTableKey(rel.ConstraintName)]
		if !exists {
			s.logger.Warn("Dropping relationship no longer present in catalog",
				zap.String("constraint", rel.ConstraintName))
			continue
		}
		rel.IsEnabled = live.IsEnabled
		kept = append(kept, rel)
	}

	return kept, nil
}

// BuildSnapshot assembles an immutable snapshot from metadata records.
// Inactive elements are excluded here, so nothing downstream ever sees
// them. Relationships referencing unknown tables are dropped: synthetic
// joins are never materialized.
func BuildSnapshot(
	tables []*models.TableMetadata,
	columns []*models.ColumnMetadata,
	glossary []*models.GlossaryTerm,
	relationships []*models.ForeignKeyRelationship,
	logger *zap.Logger,
) *Snapshot {
	if logger == nil {
		logger = zap.NewNop()
	}

	snap := &Snapshot{
		LoadedAt:       time.Now(),
		tablesByKey:    make(map[string]*models.TableMetadata),
		columnsByTable: make(map[string][]*models.ColumnMetadata),
	}

	for _, t := range tables {
		if !t.IsActive {
			continue
		}
		snap.Tables = append(snap.Tables, t)
		snap.tablesByKey[canonicalTableKey(t.QualifiedName())] = t
		// Index the bare name too, first-seen wins on collisions.
		bare := canonicalTableKey(t.TableName)
		if _, exists := snap.tablesByKey[bare]; !exists {
			snap.tablesByKey[bare] = t
		}
	}
	sort.Slice(snap.Tables, func(i, j int) bool {
		return snap.Tables[i].QualifiedName() < snap.Tables[j].QualifiedName()
	})

	for _, c := range columns {
		if !c.IsActive {
			continue
		}
		qualified := c.TableName
		if c.SchemaName != "" {
			qualified = c.SchemaName + "." + c.TableName
		}
		key := canonicalTableKey(qualified)
		snap.columnsByTable[key] = append(snap.columnsByTable[key], c)
	}
	for _, cols := range snap.columnsByTable {
		sort.Slice(cols, func(i, j int) bool {
			return cols[i].ColumnName < cols[j].ColumnName
		})
	}

	snap.Glossary = append(snap.Glossary, glossary...)
	sort.Slice(snap.Glossary, func(i, j int) bool {
		return snap.Glossary[i].Term < snap.Glossary[j].Term
	})

	for _, rel := range relationships {
		if _, ok := snap.LookupTable(rel.ParentTable); !ok {
			logger.Warn("Dropping relationship with unknown parent table",
				zap.String("constraint", rel.ConstraintName),
				zap.String("parent_table", rel.ParentTable))
			continue
		}
		if _, ok := snap.LookupTable(rel.ReferencedTable); !ok {
			logger.Warn("Dropping relationship with unknown referenced table",
				zap.String("constraint", rel.ConstraintName),
				zap.String("referenced_table", rel.ReferencedTable))
			continue
		}
		snap.Relationships = append(snap.Relationships, rel)
	}

	snap.Graph = BuildJoinGraph(snap.Relationships, logger)
	// Island tables still resolve as graph nodes.
	for _, t := range snap.Tables {
		snap.Graph.AddTable(t.QualifiedName())
	}

	return snap
}

// Start launches the TTL-based background refresher. A refresh failure is
// logged and the previous snapshot keeps serving until the next tick.
func (s *SnapshotStore) Start(ctx context.Context) {
	s.started.Store(true)
	ttl := time.Duration(s.cfg.RefreshTTLMinutes) * time.Minute
	if ttl <= 0 {
		close(s.doneCh)
		return
	}

	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				if err := s.Refresh(ctx); err != nil {
					s.logger.Warn("Snapshot refresh failed, serving previous snapshot",
						zap.String("error", logging.SanitizeError(err)))
				}
			}
		}
	}()
}

// Stop terminates the background refresher and waits for it to exit.
// A no-op when Start was never called.
func (s *SnapshotStore) Stop() {
	if !s.started.Load() {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
}
