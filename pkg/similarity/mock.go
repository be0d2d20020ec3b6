package similarity

import (
	"context"
	"sync"
)

// MockClient is a configurable mock for testing similarity consumers.
// Set the function field to control behavior in tests. Safe for use from
// concurrent scorers.
type MockClient struct {
	// SimilarityFunc is called when Similarity is invoked.
	// If nil, returns 0 and nil error.
	SimilarityFunc func(ctx context.Context, textA, textB string) (float64, error)

	mu sync.Mutex
	// Call tracking for verification
	similarityCalls int
}

// Similarity implements Client.
func (m *MockClient) Similarity(ctx context.Context, textA, textB string) (float64, error) {
	m.mu.Lock()
	m.similarityCalls++
	m.mu.Unlock()
	if m.SimilarityFunc != nil {
		return m.SimilarityFunc(ctx, textA, textB)
	}
	return 0, nil
}

// SimilarityCalls returns how many times Similarity was invoked.
func (m *MockClient) SimilarityCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.similarityCalls
}

// MockMappingSearch is a configurable mock for the prior-mapping search.
type MockMappingSearch struct {
	// FindSimilarFunc is called when FindSimilar is invoked.
	// If nil, returns no mappings and nil error.
	FindSimilarFunc func(ctx context.Context, query string, k int, threshold float64) ([]PriorMapping, error)

	FindSimilarCalls int
}

// FindSimilar implements MappingSearch.
func (m *MockMappingSearch) FindSimilar(ctx context.Context, query string, k int, threshold float64) ([]PriorMapping, error) {
	m.FindSimilarCalls++
	if m.FindSimilarFunc != nil {
		return m.FindSimilarFunc(ctx, query, k, threshold)
	}
	return nil, nil
}

var (
	_ Client        = (*MockClient)(nil)
	_ MappingSearch = (*MockMappingSearch)(nil)
)
