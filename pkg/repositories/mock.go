package repositories

import (
	"context"

	"github.com/schemalens/schemalens-engine/pkg/models"
)

// MockTableMetadataRepository is a configurable mock for testing snapshot
// consumers. Set the function field to control behavior in tests.
type MockTableMetadataRepository struct {
	// ListActiveFunc is called when ListActive is invoked.
	// If nil, returns no records and nil error.
	ListActiveFunc func(ctx context.Context) ([]*models.TableMetadata, error)

	// Call tracking for verification
	ListActiveCalls int
}

// ListActive implements TableMetadataRepository.
func (m *MockTableMetadataRepository) ListActive(ctx context.Context) ([]*models.TableMetadata, error) {
	m.ListActiveCalls++
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	return nil, nil
}

// MockColumnMetadataRepository is a configurable mock for column metadata.
type MockColumnMetadataRepository struct {
	ListActiveFunc func(ctx context.Context) ([]*models.ColumnMetadata, error)

	ListActiveCalls int
}

// ListActive implements ColumnMetadataRepository.
func (m *MockColumnMetadataRepository) ListActive(ctx context.Context) ([]*models.ColumnMetadata, error) {
	m.ListActiveCalls++
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	return nil, nil
}

// MockGlossaryRepository is a configurable mock for glossary terms.
type MockGlossaryRepository struct {
	ListAllFunc func(ctx context.Context) ([]*models.GlossaryTerm, error)

	ListAllCalls int
}

// ListAll implements GlossaryRepository.
func (m *MockGlossaryRepository) ListAll(ctx context.Context) ([]*models.GlossaryTerm, error) {
	m.ListAllCalls++
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return nil, nil
}

// MockRelationshipRepository is a configurable mock for FK relationships.
type MockRelationshipRepository struct {
	ListAllFunc func(ctx context.Context) ([]*models.ForeignKeyRelationship, error)

	ListAllCalls int
}

// ListAll implements RelationshipRepository.
func (m *MockRelationshipRepository) ListAll(ctx context.Context) ([]*models.ForeignKeyRelationship, error) {
	m.ListAllCalls++
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return nil, nil
}

var (
	_ TableMetadataRepository  = (*MockTableMetadataRepository)(nil)
	_ ColumnMetadataRepository = (*MockColumnMetadataRepository)(nil)
	_ GlossaryRepository       = (*MockGlossaryRepository)(nil)
	_ RelationshipRepository   = (*MockRelationshipRepository)(nil)
)
