package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalens/schemalens-engine/pkg/adapters/datasource"
	"github.com/schemalens/schemalens-engine/pkg/apperrors"
	"github.com/schemalens/schemalens-engine/pkg/config"
	"github.com/schemalens/schemalens-engine/pkg/models"
	"github.com/schemalens/schemalens-engine/pkg/repositories"
)

func storeFixtures() (*repositories.MockTableMetadataRepository, *repositories.MockColumnMetadataRepository, *repositories.MockGlossaryRepository, *repositories.MockRelationshipRepository) {
	tableRepo := &repositories.MockTableMetadataRepository{
		ListActiveFunc: func(ctx context.Context) ([]*models.TableMetadata, error) {
			return []*models.TableMetadata{
				{SchemaName: "finance", TableName: "deposits", IsActive: true},
				{SchemaName: "core", TableName: "players", IsActive: true},
			}, nil
		},
	}
	columnRepo := &repositories.MockColumnMetadataRepository{
		ListActiveFunc: func(ctx context.Context) ([]*models.ColumnMetadata, error) {
			return []*models.ColumnMetadata{
				{SchemaName: "finance", TableName: "deposits", ColumnName: "amount", IsActive: true},
				{SchemaName: "finance", TableName: "deposits", ColumnName: "player_id", IsActive: true},
			}, nil
		},
	}
	glossaryRepo := &repositories.MockGlossaryRepository{
		ListAllFunc: func(ctx context.Context) ([]*models.GlossaryTerm, error) {
			return []*models.GlossaryTerm{{Term: "Deposit"}}, nil
		},
	}
	relRepo := &repositories.MockRelationshipRepository{
		ListAllFunc: func(ctx context.Context) ([]*models.ForeignKeyRelationship, error) {
			return []*models.ForeignKeyRelationship{
				rel("FK_deposits_players", "finance.deposits", "player_id", "core.players", "player_id", true),
			}, nil
		},
	}
	return tableRepo, columnRepo, glossaryRepo, relRepo
}

func TestSnapshotStore_CurrentBeforeRefresh(t *testing.T) {
	tableRepo, columnRepo, glossaryRepo, relRepo := storeFixtures()
	store := NewSnapshotStore(tableRepo, columnRepo, glossaryRepo, relRepo, nil, config.SnapshotConfig{}, nil)

	snap, err := store.Current()
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, apperrors.ErrSnapshotUnavailable)
}

func TestSnapshotStore_RefreshPublishesSnapshot(t *testing.T) {
	tableRepo, columnRepo, glossaryRepo, relRepo := storeFixtures()
	store := NewSnapshotStore(tableRepo, columnRepo, glossaryRepo, relRepo, nil, config.SnapshotConfig{}, nil)

	require.NoError(t, store.Refresh(context.Background()))

	snap, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
	assert.Len(t, snap.Tables, 2)
	assert.Len(t, snap.Glossary, 1)
	assert.Len(t, snap.Relationships, 1)
	assert.Len(t, snap.ColumnsFor("finance.deposits"), 2)

	path, found := snap.Graph.ShortestPath("finance.deposits", "core.players")
	require.True(t, found)
	assert.Equal(t, 1, path.PathLength)
}

func TestSnapshotStore_RefreshFailureKeepsLastSnapshot(t *testing.T) {
	tableRepo, columnRepo, glossaryRepo, relRepo := storeFixtures()
	store := NewSnapshotStore(tableRepo, columnRepo, glossaryRepo, relRepo, nil, config.SnapshotConfig{}, nil)
	require.NoError(t, store.Refresh(context.Background()))

	tableRepo.ListActiveFunc = func(ctx context.Context) ([]*models.TableMetadata, error) {
		return nil, errors.New("connection reset")
	}
	err := store.Refresh(context.Background())
	require.Error(t, err)

	snap, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
	assert.Len(t, snap.Tables, 2)
}

func TestSnapshotStore_RefreshBumpsVersion(t *testing.T) {
	tableRepo, columnRepo, glossaryRepo, relRepo := storeFixtures()
	store := NewSnapshotStore(tableRepo, columnRepo, glossaryRepo, relRepo, nil, config.SnapshotConfig{}, nil)

	require.NoError(t, store.Refresh(context.Background()))
	first, _ := store.Current()
	require.NoError(t, store.Refresh(context.Background()))
	second, _ := store.Current()

	assert.Greater(t, second.Version, first.Version)
	assert.NotSame(t, first, second)
}

func TestSnapshotStore_InvalidateLoadsFreshSnapshot(t *testing.T) {
	tableRepo, columnRepo, glossaryRepo, relRepo := storeFixtures()
	store := NewSnapshotStore(tableRepo, columnRepo, glossaryRepo, relRepo, nil, config.SnapshotConfig{}, nil)

	require.NoError(t, store.Refresh(context.Background()))
	first, _ := store.Current()

	require.NoError(t, store.Invalidate(context.Background()))
	second, _ := store.Current()

	assert.Greater(t, second.Version, first.Version)
	assert.Equal(t, 2, tableRepo.ListActiveCalls)
}

func TestSnapshotStore_ReconcileOverlaysCatalogState(t *testing.T) {
	tableRepo, columnRepo, glossaryRepo, relRepo := storeFixtures()
	relRepo.ListAllFunc = func(ctx context.Context) ([]*models.ForeignKeyRelationship, error) {
		return []*models.ForeignKeyRelationship{
			rel("FK_deposits_players", "finance.deposits", "player_id", "core.players", "player_id", true),
			rel("FK_stale", "finance.deposits", "old_id", "core.players", "player_id", true),
		}, nil
	}
	discoverer := &datasource.MockSchemaDiscoverer{
		DiscoverForeignKeysFunc: func(ctx context.Context) ([]datasource.ForeignKeyInfo, error) {
			return []datasource.ForeignKeyInfo{
				{ConstraintName: "FK_deposits_players", IsEnabled: false},
			}, nil
		},
	}
	store := NewSnapshotStore(tableRepo, columnRepo, glossaryRepo, relRepo, discoverer, config.SnapshotConfig{}, nil)

	require.NoError(t, store.Refresh(context.Background()))

	snap, err := store.Current()
	require.NoError(t, err)
	// The stale constraint is dropped; the surviving one picks up the
	// catalog's disabled flag.
	require.Len(t, snap.Relationships, 1)
	assert.Equal(t, "FK_deposits_players", snap.Relationships[0].ConstraintName)
	assert.False(t, snap.Relationships[0].IsEnabled)
	assert.Equal(t, 1, discoverer.DiscoverForeignKeysCalls)
}

func TestSnapshotStore_DiscoveryFailureFailsRefresh(t *testing.T) {
	tableRepo, columnRepo, glossaryRepo, relRepo := storeFixtures()
	discoverer := &datasource.MockSchemaDiscoverer{
		DiscoverForeignKeysFunc: func(ctx context.Context) ([]datasource.ForeignKeyInfo, error) {
			return nil, errors.New("catalog query failed")
		},
	}
	store := NewSnapshotStore(tableRepo, columnRepo, glossaryRepo, relRepo, discoverer, config.SnapshotConfig{}, nil)

	err := store.Refresh(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrDiscoveryUnavailable)

	_, err = store.Current()
	assert.ErrorIs(t, err, apperrors.ErrSnapshotUnavailable)
}

func TestBuildSnapshot_ExcludesInactiveElements(t *testing.T) {
	snap := BuildSnapshot(
		[]*models.TableMetadata{
			{SchemaName: "finance", TableName: "deposits", IsActive: true},
			{SchemaName: "finance", TableName: "deposits_archive", IsActive: false},
		},
		[]*models.ColumnMetadata{
			{SchemaName: "finance", TableName: "deposits", ColumnName: "amount", IsActive: true},
			{SchemaName: "finance", TableName: "deposits", ColumnName: "legacy_ref", IsActive: false},
		},
		nil, nil, nil)

	require.Len(t, snap.Tables, 1)
	assert.Equal(t, "finance.deposits", snap.Tables[0].QualifiedName())

	cols := snap.ColumnsFor("finance.deposits")
	require.Len(t, cols, 1)
	assert.Equal(t, "amount", cols[0].ColumnName)

	_, ok := snap.LookupTable("finance.deposits_archive")
	assert.False(t, ok)
}

func TestBuildSnapshot_DropsRelationshipsWithUnknownEndpoints(t *testing.T) {
	snap := BuildSnapshot(
		[]*models.TableMetadata{
			{SchemaName: "finance", TableName: "deposits", IsActive: true},
		},
		nil, nil,
		[]*models.ForeignKeyRelationship{
			rel("FK_orphan", "finance.deposits", "player_id", "core.players", "player_id", true),
		},
		nil)

	assert.Empty(t, snap.Relationships)
	assert.Equal(t, 0, snap.Graph.EdgeCount())
	// The known table still resolves as an island node.
	_, ok := snap.Graph.Resolve("finance.deposits")
	assert.True(t, ok)
}

func TestBuildSnapshot_LookupNormalization(t *testing.T) {
	snap := BuildSnapshot(
		[]*models.TableMetadata{
			{SchemaName: "dbo", TableName: "Games", IsActive: true},
		},
		[]*models.ColumnMetadata{
			{SchemaName: "dbo", TableName: "Games", ColumnName: "game_id", IsActive: true},
		},
		nil, nil, nil)

	for _, name := range []string{"dbo.Games", "DBO.GAMES", "Games", "games"} {
		table, ok := snap.LookupTable(name)
		require.True(t, ok, "lookup %q", name)
		assert.Equal(t, "dbo.Games", table.QualifiedName())
		assert.Len(t, snap.ColumnsFor(name), 1)
	}
}

func TestSnapshotStore_StartAndStop(t *testing.T) {
	tableRepo, columnRepo, glossaryRepo, relRepo := storeFixtures()
	store := NewSnapshotStore(tableRepo, columnRepo, glossaryRepo, relRepo, nil, config.SnapshotConfig{RefreshTTLMinutes: 60}, nil)

	store.Start(context.Background())
	store.Stop()
}

func TestSnapshotStore_StopWithoutStartReturns(t *testing.T) {
	tableRepo, columnRepo, glossaryRepo, relRepo := storeFixtures()
	store := NewSnapshotStore(tableRepo, columnRepo, glossaryRepo, relRepo, nil, config.SnapshotConfig{RefreshTTLMinutes: 60}, nil)

	done := make(chan struct{})
	go func() {
		store.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked without a prior Start")
	}
}
