package repositories

import (
	"context"
	"fmt"

	"github.com/schemalens/schemalens-engine/pkg/database"
	"github.com/schemalens/schemalens-engine/pkg/models"
)

// TableMetadataRepository provides read access to curated table metadata.
// CRUD, versioning, and import/export are owned by the metadata management
// service; the engine only reads.
type TableMetadataRepository interface {
	// ListActive returns all active table metadata records.
	ListActive(ctx context.Context) ([]*models.TableMetadata, error)
}

type tableMetadataRepository struct {
	db *database.DB
}

// NewTableMetadataRepository creates a new TableMetadataRepository.
func NewTableMetadataRepository(db *database.DB) TableMetadataRepository {
	return &tableMetadataRepository{db: db}
}

var _ TableMetadataRepository = (*tableMetadataRepository)(nil)

func (r *tableMetadataRepository) ListActive(ctx context.Context) ([]*models.TableMetadata, error) {
	query := `
		SELECT id, schema_name, table_name, business_purpose, semantic_description,
		       domain_classification, natural_language_aliases, search_keywords,
		       glossary_terms, importance_score, usage_frequency, is_active,
		       created_at, updated_at
		FROM lens_table_metadata
		WHERE is_active = true
		ORDER BY schema_name, table_name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table metadata: %w", err)
	}
	defer rows.Close()

	var tables []*models.TableMetadata
	for rows.Next() {
		var t models.TableMetadata
		err := rows.Scan(
			&t.ID,
			&t.SchemaName,
			&t.TableName,
			&t.BusinessPurpose,
			&t.SemanticDescription,
			&t.DomainClassification,
			&t.NaturalLanguageAliases,
			&t.SearchKeywords,
			&t.GlossaryTermNames,
			&t.ImportanceScore,
			&t.UsageFrequency,
			&t.IsActive,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table metadata: %w", err)
		}
		tables = append(tables, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table metadata: %w", err)
	}

	return tables, nil
}
