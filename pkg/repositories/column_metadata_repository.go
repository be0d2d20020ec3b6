package repositories

import (
	"context"
	"fmt"

	"github.com/schemalens/schemalens-engine/pkg/database"
	"github.com/schemalens/schemalens-engine/pkg/models"
)

// ColumnMetadataRepository provides read access to curated column metadata.
type ColumnMetadataRepository interface {
	// ListActive returns all active column metadata records.
	ListActive(ctx context.Context) ([]*models.ColumnMetadata, error)
}

type columnMetadataRepository struct {
	db *database.DB
}

// NewColumnMetadataRepository creates a new ColumnMetadataRepository.
func NewColumnMetadataRepository(db *database.DB) ColumnMetadataRepository {
	return &columnMetadataRepository{db: db}
}

var _ ColumnMetadataRepository = (*columnMetadataRepository)(nil)

func (r *columnMetadataRepository) ListActive(ctx context.Context) ([]*models.ColumnMetadata, error) {
	query := `
		SELECT id, schema_name, table_name, column_name, business_meaning,
		       business_context, domain_classification, natural_language_aliases,
		       business_metrics, usage_frequency, semantic_relevance_score,
		       is_key_column, is_sensitive_data, is_active, created_at, updated_at
		FROM lens_column_metadata
		WHERE is_active = true
		ORDER BY schema_name, table_name, column_name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer rows.Close()

	var columns []*models.ColumnMetadata
	for rows.Next() {
		var c models.ColumnMetadata
		err := rows.Scan(
			&c.ID,
			&c.SchemaName,
			&c.TableName,
			&c.ColumnName,
			&c.BusinessMeaning,
			&c.BusinessContext,
			&c.DomainClassification,
			&c.NaturalLanguageAliases,
			&c.BusinessMetrics,
			&c.UsageFrequency,
			&c.SemanticRelevanceScore,
			&c.IsKeyColumn,
			&c.IsSensitiveData,
			&c.IsActive,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		columns = append(columns, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate column metadata: %w", err)
	}

	return columns, nil
}
