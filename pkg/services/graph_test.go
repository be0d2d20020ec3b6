package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalens/schemalens-engine/pkg/models"
)

func rel(constraint, parentTable, parentColumn, refTable, refColumn string, enabled bool) *models.ForeignKeyRelationship {
	return &models.ForeignKeyRelationship{
		ConstraintName:   constraint,
		ParentTable:      parentTable,
		ParentColumn:     parentColumn,
		ReferencedTable:  refTable,
		ReferencedColumn: refColumn,
		IsEnabled:        enabled,
	}
}

// gamingGraph builds a small star-ish schema:
//
//	finance.deposits -> core.players -> core.countries
//	core.sessions    -> core.players
//	dbo.Games is an island with no relationships.
func gamingGraph(t *testing.T) *JoinGraph {
	t.Helper()
	g := BuildJoinGraph([]*models.ForeignKeyRelationship{
		rel("FK_deposits_players", "finance.deposits", "player_id", "core.players", "player_id", true),
		rel("FK_players_countries", "core.players", "country_id", "core.countries", "country_id", true),
		rel("FK_sessions_players", "core.sessions", "player_id", "core.players", "player_id", true),
	}, nil)
	g.AddTable("dbo.Games")
	return g
}

func TestBuildJoinGraph_Counts(t *testing.T) {
	g := gamingGraph(t)

	assert.Equal(t, 5, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())
}

func TestBuildJoinGraph_DeduplicatesByConstraintName(t *testing.T) {
	g := BuildJoinGraph([]*models.ForeignKeyRelationship{
		rel("FK_deposits_players", "finance.deposits", "player_id", "core.players", "player_id", true),
		rel("fk_deposits_players", "finance.deposits", "player_id", "core.players", "player_id", true),
	}, nil)

	assert.Equal(t, 1, g.EdgeCount())
}

func TestBuildJoinGraph_SelfReferenceAddsNodeWithoutEdge(t *testing.T) {
	g := BuildJoinGraph([]*models.ForeignKeyRelationship{
		rel("FK_employees_manager", "hr.employees", "manager_id", "hr.employees", "employee_id", true),
	}, nil)

	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())

	_, found := g.ShortestPath("hr.employees", "hr.employees")
	assert.False(t, found)
}

func TestShortestPath_DirectEdge(t *testing.T) {
	g := gamingGraph(t)

	path, found := g.ShortestPath("finance.deposits", "core.players")
	require.True(t, found)
	require.NotNil(t, path)

	assert.Equal(t, 1, path.PathLength)
	require.Len(t, path.Conditions, 1)
	assert.Equal(t, "finance.deposits", path.Conditions[0].LeftTable)
	assert.Equal(t, "player_id", path.Conditions[0].LeftColumn)
	assert.Equal(t, "core.players", path.Conditions[0].RightTable)
	assert.True(t, path.IsOptimal)
	assert.InEpsilon(t, 1.0, path.PerformanceScore, 1e-9)
}

func TestShortestPath_TwoHopsThroughIntermediate(t *testing.T) {
	g := gamingGraph(t)

	path, found := g.ShortestPath("finance.deposits", "core.countries")
	require.True(t, found)

	assert.Equal(t, 2, path.PathLength)
	require.Len(t, path.Conditions, 2)
	// Conditions must read in traversal order from the starting table.
	assert.Equal(t, "finance.deposits", path.Conditions[0].LeftTable)
	assert.Equal(t, "core.players", path.Conditions[0].RightTable)
	assert.Equal(t, "core.players", path.Conditions[1].LeftTable)
	assert.Equal(t, "core.countries", path.Conditions[1].RightTable)
	assert.True(t, path.IsOptimal)
}

func TestShortestPath_ReverseDirectionTraversal(t *testing.T) {
	g := gamingGraph(t)

	// The FK points deposits -> players, but joins work from either side.
	path, found := g.ShortestPath("core.countries", "finance.deposits")
	require.True(t, found)

	assert.Equal(t, 2, path.PathLength)
	assert.Equal(t, "core.countries", path.Conditions[0].LeftTable)
	assert.Equal(t, "finance.deposits", path.Conditions[1].RightTable)
}

func TestShortestPath_NotFound(t *testing.T) {
	g := gamingGraph(t)

	tests := []struct {
		name string
		from string
		to   string
	}{
		{"unknown from table", "warehouse.facts", "core.players"},
		{"unknown to table", "core.players", "warehouse.facts"},
		{"disconnected island", "finance.deposits", "dbo.Games"},
		{"same table", "core.players", "core.players"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, found := g.ShortestPath(tt.from, tt.to)
			assert.False(t, found)
			assert.Nil(t, path)
		})
	}
}

func TestResolve_NormalizesCaseAndSchema(t *testing.T) {
	g := gamingGraph(t)

	key, ok := g.Resolve("FINANCE.DEPOSITS")
	require.True(t, ok)
	assert.Equal(t, "finance.deposits", key)

	// Bare name resolves to the qualified node.
	bare, ok := g.Resolve("Games")
	require.True(t, ok)
	assert.Equal(t, "dbo.games", bare)

	_, ok = g.Resolve("nonexistent")
	assert.False(t, ok)
}

func TestShortestPath_PreferredOverLongerRoute(t *testing.T) {
	// a-b-c-d plus a direct a-d edge: BFS must take the single hop.
	g := BuildJoinGraph([]*models.ForeignKeyRelationship{
		rel("FK_ab", "a", "b_id", "b", "id", true),
		rel("FK_bc", "b", "c_id", "c", "id", true),
		rel("FK_cd", "c", "d_id", "d", "id", true),
		rel("FK_ad", "a", "d_id", "d", "id", true),
	}, nil)

	path, found := g.ShortestPath("a", "d")
	require.True(t, found)
	assert.Equal(t, 1, path.PathLength)
	assert.Equal(t, "FK_ad", path.Conditions[0].ConstraintName)
}

func TestPathsForTableSet(t *testing.T) {
	g := gamingGraph(t)

	paths, unresolved := g.PathsForTableSet([]string{"finance.deposits", "core.countries", "dbo.Games"})

	// deposits-countries resolves; both pairs involving the island do not.
	require.Len(t, paths, 1)
	assert.Equal(t, 2, paths[0].PathLength)
	require.Len(t, unresolved, 2)
	assert.Equal(t, "dbo.Games", unresolved[0].ToTable)
	assert.Equal(t, "core.countries", unresolved[1].FromTable)
	assert.Equal(t, "dbo.Games", unresolved[1].ToTable)
}

func TestRelatedTables_DecaysWithDistance(t *testing.T) {
	g := gamingGraph(t)

	related := g.RelatedTables("finance.deposits", 2)
	require.Len(t, related, 3)

	assert.Equal(t, "core.players", related[0].TableName)
	assert.Equal(t, 1, related[0].Distance)
	assert.InEpsilon(t, 0.7, related[0].RelevanceScore, 1e-9)

	assert.Equal(t, 2, related[1].Distance)
	assert.InEpsilon(t, 0.49, related[1].RelevanceScore, 1e-9)
	// Depth-2 neighbors sort by name.
	assert.Equal(t, "core.countries", related[1].TableName)
	assert.Equal(t, "core.sessions", related[2].TableName)
}

func TestRelatedTables_DepthLimit(t *testing.T) {
	g := gamingGraph(t)

	related := g.RelatedTables("finance.deposits", 1)
	require.Len(t, related, 1)
	assert.Equal(t, "core.players", related[0].TableName)

	assert.Nil(t, g.RelatedTables("finance.deposits", 0))
	assert.Nil(t, g.RelatedTables("warehouse.facts", 2))
}

func TestPathPerformanceScore_DisabledConstraintsReduceConfidence(t *testing.T) {
	g := BuildJoinGraph([]*models.ForeignKeyRelationship{
		rel("FK_ab", "a", "b_id", "b", "id", false),
	}, nil)

	path, found := g.ShortestPath("a", "b")
	require.True(t, found)

	// One hop, zero enabled edges: 0.7*1.0 + 0.3*0.
	assert.InEpsilon(t, 0.7, path.PerformanceScore, 1e-9)
	assert.False(t, path.Conditions[0].IsEnabled)
}
