package repositories

import (
	"context"
	"fmt"

	"github.com/schemalens/schemalens-engine/pkg/database"
	"github.com/schemalens/schemalens-engine/pkg/models"
)

// RelationshipRepository provides read access to recorded FK relationships.
type RelationshipRepository interface {
	// ListAll returns all recorded foreign key relationships, enabled or not.
	ListAll(ctx context.Context) ([]*models.ForeignKeyRelationship, error)
}

type relationshipRepository struct {
	db *database.DB
}

// NewRelationshipRepository creates a new RelationshipRepository.
func NewRelationshipRepository(db *database.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

var _ RelationshipRepository = (*relationshipRepository)(nil)

func (r *relationshipRepository) ListAll(ctx context.Context) ([]*models.ForeignKeyRelationship, error) {
	query := `
		SELECT id, constraint_name, parent_table, parent_column,
		       referenced_table, referenced_column, is_enabled,
		       relationship_type, created_at, updated_at
		FROM lens_fk_relationships
		ORDER BY parent_table, constraint_name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var rels []*models.ForeignKeyRelationship
	for rows.Next() {
		var rel models.ForeignKeyRelationship
		err := rows.Scan(
			&rel.ID,
			&rel.ConstraintName,
			&rel.ParentTable,
			&rel.ParentColumn,
			&rel.ReferencedTable,
			&rel.ReferencedColumn,
			&rel.IsEnabled,
			&rel.RelationshipType,
			&rel.CreatedAt,
			&rel.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		rels = append(rels, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate relationships: %w", err)
	}

	return rels, nil
}
