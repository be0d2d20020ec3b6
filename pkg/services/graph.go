package services

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/models"
)

// JoinGraph is an undirected, unweighted graph of tables connected by FK
// relationships. Built once per snapshot and shared read-only across
// requests; never mutated after construction.
type JoinGraph struct {
	// Adjacency list: canonical table key -> outgoing edges
	edges map[string][]graphEdge
	// Canonical key -> display name as recorded in the relationship
	nodes map[string]string
	// Bare (schema-stripped) name -> canonical key, for resolving
	// unqualified lookups. First-seen wins on collisions.
	bareIndex map[string]string
}

type graphEdge struct {
	neighbor  string // canonical key
	condition models.JoinCondition
}

// canonicalTableKey reduces a table identity to a case-insensitive key.
func canonicalTableKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// bareTableName strips a schema qualifier, so "dbo.Games" and "Games"
// resolve to the same node.
func bareTableName(key string) string {
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

// BuildJoinGraph constructs the graph from FK relationships. Duplicate
// relationships between the same table pair are deduplicated by constraint
// name (first seen wins) so parallel constraints do not distort path
// lengths. Self-referencing relationships add a node but no edge a path
// could use.
func BuildJoinGraph(relationships []*models.ForeignKeyRelationship, logger *zap.Logger) *JoinGraph {
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &JoinGraph{
		edges:     make(map[string][]graphEdge),
		nodes:     make(map[string]string),
		bareIndex: make(map[string]string),
	}

	seenConstraints := make(map[string]bool)
	for _, rel := range relationships {
		parent := canonicalTableKey(rel.ParentTable)
		referenced := canonicalTableKey(rel.ReferencedTable)
		if parent == "" || referenced == "" {
			logger.Warn("Skipping relationship with missing table identity",
				zap.String("constraint", rel.ConstraintName))
			continue
		}

		g.addNode(parent, rel.ParentTable)
		g.addNode(referenced, rel.ReferencedTable)

		if rel.ConstraintName != "" {
			constraintKey := strings.ToLower(rel.ConstraintName)
			if seenConstraints[constraintKey] {
				continue
			}
			seenConstraints[constraintKey] = true
		}

		if parent == referenced {
			// Self-reference: the table is in the graph, but a self-loop
			// cannot be part of a shortest path between distinct tables.
			continue
		}

		condition := models.JoinCondition{
			LeftTable:      rel.ParentTable,
			LeftColumn:     rel.ParentColumn,
			RightTable:     rel.ReferencedTable,
			RightColumn:    rel.ReferencedColumn,
			ConstraintName: rel.ConstraintName,
			IsEnabled:      rel.IsEnabled,
		}
		reversed := models.JoinCondition{
			LeftTable:      rel.ReferencedTable,
			LeftColumn:     rel.ReferencedColumn,
			RightTable:     rel.ParentTable,
			RightColumn:    rel.ParentColumn,
			ConstraintName: rel.ConstraintName,
			IsEnabled:      rel.IsEnabled,
		}

		// Joins traverse from either side: undirected edges.
		g.edges[parent] = append(g.edges[parent], graphEdge{neighbor: referenced, condition: condition})
		g.edges[referenced] = append(g.edges[referenced], graphEdge{neighbor: parent, condition: reversed})
	}

	return g
}

func (g *JoinGraph) addNode(key, displayName string) {
	if _, exists := g.nodes[key]; !exists {
		g.nodes[key] = displayName
	}
	bare := bareTableName(key)
	if _, exists := g.bareIndex[bare]; !exists {
		g.bareIndex[bare] = key
	}
}

// AddTable registers a table that has no FK relationships, so it resolves
// as a known node (and yields NotFound rather than unknown-table).
func (g *JoinGraph) AddTable(name string) {
	g.addNode(canonicalTableKey(name), name)
}

// Resolve maps a table name (qualified or bare, any case) to its canonical
// graph key. Returns false when the table is not in the graph.
func (g *JoinGraph) Resolve(name string) (string, bool) {
	key := canonicalTableKey(name)
	if _, ok := g.nodes[key]; ok {
		return key, true
	}
	if resolved, ok := g.bareIndex[bareTableName(key)]; ok {
		return resolved, true
	}
	return "", false
}

// NodeCount returns the number of tables in the graph.
func (g *JoinGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges.
func (g *JoinGraph) EdgeCount() int {
	total := 0
	for _, edges := range g.edges {
		total += len(edges)
	}
	return total / 2
}

// ShortestPath computes a minimum-hop join path between two tables using
// breadth-first search. The second return is false when no route exists:
// unknown tables and cross-component pairs are NotFound, not errors.
func (g *JoinGraph) ShortestPath(fromTable, toTable string) (*models.JoinPath, bool) {
	from, ok := g.Resolve(fromTable)
	if !ok {
		return nil, false
	}
	to, ok := g.Resolve(toTable)
	if !ok {
		return nil, false
	}
	if from == to {
		return nil, false
	}

	visited := map[string]bool{from: true}
	queue := []*pathStep{{node: from}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range g.edges[current.node] {
			if visited[edge.neighbor] {
				continue
			}
			next := &pathStep{node: edge.neighbor, prev: current, condition: edge.condition}
			if edge.neighbor == to {
				// First contact at the target guarantees minimum hops in
				// an unweighted graph.
				return buildJoinPath(g.nodes[from], g.nodes[to], next), true
			}
			visited[edge.neighbor] = true
			queue = append(queue, next)
		}
	}

	return nil, false
}

// pathStep is one BFS frontier entry with a back-pointer for path
// reconstruction.
type pathStep struct {
	node      string
	prev      *pathStep
	condition models.JoinCondition
}

func buildJoinPath(fromTable, toTable string, last *pathStep) *models.JoinPath {
	var reversed []models.JoinCondition
	for step := last; step.prev != nil; step = step.prev {
		reversed = append(reversed, step.condition)
	}

	conditions := make([]models.JoinCondition, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		conditions = append(conditions, reversed[i])
	}

	return &models.JoinPath{
		FromTable:        fromTable,
		ToTable:          toTable,
		Conditions:       conditions,
		PathLength:       len(conditions),
		PerformanceScore: pathPerformanceScore(conditions),
		IsOptimal:        len(conditions) <= 2,
	}
}

// PathsForTableSet resolves the shortest path for every unordered pair in
// the table set. A missing path for one pair does not block the others;
// unresolved pairs are reported explicitly.
func (g *JoinGraph) PathsForTableSet(tables []string) ([]models.JoinPath, []models.UnresolvedPair) {
	var paths []models.JoinPath
	var unresolved []models.UnresolvedPair

	for i := 0; i < len(tables); i++ {
		for j := i + 1; j < len(tables); j++ {
			path, found := g.ShortestPath(tables[i], tables[j])
			if !found {
				unresolved = append(unresolved, models.UnresolvedPair{
					FromTable: tables[i],
					ToTable:   tables[j],
				})
				continue
			}
			paths = append(paths, *path)
		}
	}

	return paths, unresolved
}

// RelatedTables expands outward from a table up to maxDepth hops via BFS.
// Each hop is annotated with a relevance score decayed by distance.
func (g *JoinGraph) RelatedTables(tableName string, maxDepth int) []models.RelatedTableInfo {
	start, ok := g.Resolve(tableName)
	if !ok || maxDepth < 1 {
		return nil
	}

	type visit struct {
		node  string
		depth int
	}

	visited := map[string]bool{start: true}
	queue := []visit{{node: start, depth: 0}}
	var related []models.RelatedTableInfo

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		for _, edge := range g.edges[current.node] {
			if visited[edge.neighbor] {
				continue
			}
			visited[edge.neighbor] = true

			depth := current.depth + 1
			related = append(related, models.RelatedTableInfo{
				TableName:      g.nodes[edge.neighbor],
				Distance:       depth,
				RelevanceScore: relatedTableDecay(depth),
				ViaConstraint:  edge.condition.ConstraintName,
			})
			queue = append(queue, visit{node: edge.neighbor, depth: depth})
		}
	}

	// BFS from a map-backed adjacency list is order-stable per node slice,
	// but sort anyway so results are deterministic for callers.
	sort.Slice(related, func(i, j int) bool {
		if related[i].Distance != related[j].Distance {
			return related[i].Distance < related[j].Distance
		}
		return related[i].TableName < related[j].TableName
	})

	return related
}

// relatedTableDecay returns the per-hop decayed relevance for BFS expansion.
func relatedTableDecay(distance int) float64 {
	return math.Pow(0.7, float64(distance))
}

// pathPerformanceScore rates a resolved path from its hop count and the
// fraction of edges backed by enabled constraints. Disabled constraints
// reduce confidence but never exclude a path.
func pathPerformanceScore(conditions []models.JoinCondition) float64 {
	if len(conditions) == 0 {
		return 0
	}

	enabled := 0
	for _, c := range conditions {
		if c.IsEnabled {
			enabled++
		}
	}
	enabledFraction := float64(enabled) / float64(len(conditions))
	hopScore := 1.0 / float64(len(conditions))

	return 0.7*hopScore + 0.3*enabledFraction
}
