package repositories

import (
	"context"
	"fmt"

	"github.com/schemalens/schemalens-engine/pkg/database"
	"github.com/schemalens/schemalens-engine/pkg/models"
)

// GlossaryRepository provides read access to business glossary terms.
type GlossaryRepository interface {
	// ListAll returns all glossary terms.
	ListAll(ctx context.Context) ([]*models.GlossaryTerm, error)
}

type glossaryRepository struct {
	db *database.DB
}

// NewGlossaryRepository creates a new GlossaryRepository.
func NewGlossaryRepository(db *database.DB) GlossaryRepository {
	return &glossaryRepository{db: db}
}

var _ GlossaryRepository = (*glossaryRepository)(nil)

func (r *glossaryRepository) ListAll(ctx context.Context) ([]*models.GlossaryTerm, error) {
	query := `
		SELECT id, term, definition, synonyms, category, domain,
		       mapped_tables, mapped_columns, confidence_score,
		       created_at, updated_at
		FROM lens_business_glossary
		ORDER BY term`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query glossary terms: %w", err)
	}
	defer rows.Close()

	var terms []*models.GlossaryTerm
	for rows.Next() {
		var g models.GlossaryTerm
		err := rows.Scan(
			&g.ID,
			&g.Term,
			&g.Definition,
			&g.Synonyms,
			&g.Category,
			&g.Domain,
			&g.MappedTables,
			&g.MappedColumns,
			&g.ConfidenceScore,
			&g.CreatedAt,
			&g.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan glossary term: %w", err)
		}
		terms = append(terms, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate glossary terms: %w", err)
	}

	return terms, nil
}
