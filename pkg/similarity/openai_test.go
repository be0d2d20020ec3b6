package similarity

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := cosine([]float32{1, 2}, []float32{1, 2, 3})
	assert.Error(t, err)
}

func TestCosine_ZeroMagnitude(t *testing.T) {
	_, err := cosine([]float32{0, 0}, []float32{1, 2})
	assert.Error(t, err)
}

func TestCosineRescaling(t *testing.T) {
	// The Similarity contract maps cosine [-1,1] onto [0,1].
	for _, cos := range []float64{-1, -0.5, 0, 0.5, 1} {
		score := (cos + 1) / 2
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
		assert.False(t, math.IsNaN(score))
	}
}

func TestEmbeddingCacheBounded(t *testing.T) {
	c := &EmbeddingClient{cache: make(map[string][]float32)}

	for i := 0; i < maxCachedEmbeddings; i++ {
		c.cachePut(fmt.Sprintf("text-%d", i), []float32{1})
	}
	require.Len(t, c.cache, maxCachedEmbeddings)

	// The insert past the cap flushes the cache instead of growing it.
	c.cachePut("overflow", []float32{1})
	assert.Len(t, c.cache, 1)
	assert.Contains(t, c.cache, "overflow")
}
