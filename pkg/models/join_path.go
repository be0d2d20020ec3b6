package models

// JoinCondition is a single FK-backed equality between two columns.
type JoinCondition struct {
	LeftTable      string `json:"left_table"`
	LeftColumn     string `json:"left_column"`
	RightTable     string `json:"right_table"`
	RightColumn    string `json:"right_column"`
	ConstraintName string `json:"constraint_name,omitempty"`
	IsEnabled      bool   `json:"is_enabled"`
}

// JoinPath connects two tables through zero or more intermediates.
// PathLength always equals len(Conditions); an empty path never denotes
// "found" - absence of a path is reported separately (UnresolvedPair).
type JoinPath struct {
	FromTable        string          `json:"from_table"`
	ToTable          string          `json:"to_table"`
	Conditions       []JoinCondition `json:"conditions"`
	PathLength       int             `json:"path_length"`
	PerformanceScore float64         `json:"performance_score"` // [0,1]
	IsOptimal        bool            `json:"is_optimal"`        // length <= 2
}

// UnresolvedPair records a table pair with no route in the FK graph.
// NoPathFound is a first-class result, not an error.
type UnresolvedPair struct {
	FromTable string `json:"from_table"`
	ToTable   string `json:"to_table"`
}

// RelatedTableInfo is one hop of a BFS expansion around a table, with a
// relevance score decayed by distance.
type RelatedTableInfo struct {
	TableName      string  `json:"table_name"`
	Distance       int     `json:"distance"`
	RelevanceScore float64 `json:"relevance_score"` // [0,1]
	ViaConstraint  string  `json:"via_constraint,omitempty"`
}
