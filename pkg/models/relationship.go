package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Relationship type constants, inferred from the parent column shape.
const (
	RelationshipManyToOne = "many_to_one" // parent column looks like a key reference
	RelationshipOneToMany = "one_to_many"
)

// ForeignKeyRelationship represents one FK constraint between two real
// tables. Synthetic or inferred joins are never materialized as
// relationships; every record references two existing schema elements.
type ForeignKeyRelationship struct {
	ID               uuid.UUID `json:"id"`
	ConstraintName   string    `json:"constraint_name"`
	ParentTable      string    `json:"parent_table"`
	ParentColumn     string    `json:"parent_column"`
	ReferencedTable  string    `json:"referenced_table"`
	ReferencedColumn string    `json:"referenced_column"`
	IsEnabled        bool      `json:"is_enabled"`
	RelationshipType string    `json:"relationship_type"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// InferRelationshipType classifies a relationship from its parent column
// name. Columns that look like key references ("player_id", "CountryID",
// "ref_code") indicate many-to-one; everything else is treated as
// one-to-many.
func InferRelationshipType(parentColumn string) string {
	lower := strings.ToLower(parentColumn)
	if strings.HasSuffix(lower, "_id") || strings.HasSuffix(lower, "id") ||
		strings.HasSuffix(lower, "_key") || strings.HasSuffix(lower, "_code") {
		return RelationshipManyToOne
	}
	return RelationshipOneToMany
}

// ReverseRelationshipType returns the type seen from the other side of the
// relationship.
func ReverseRelationshipType(relType string) string {
	switch relType {
	case RelationshipManyToOne:
		return RelationshipOneToMany
	case RelationshipOneToMany:
		return RelationshipManyToOne
	default:
		return relType
	}
}
