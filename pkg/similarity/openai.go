package similarity

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/config"
)

// maxCachedEmbeddings bounds the per-text embedding cache. When the cap is
// reached the cache is flushed whole, which also evicts entries for
// metadata text that changed on a snapshot refresh.
const maxCachedEmbeddings = 4096

// EmbeddingClient computes text similarity as cosine distance between
// embeddings from an OpenAI-compatible endpoint. Embeddings are cached per
// text so that scoring many tables against one query re-embeds the query
// only once.
type EmbeddingClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.RWMutex
	cache map[string][]float32
}

// NewEmbeddingClient creates an embedding-backed similarity client.
// If logger is nil, a no-op logger is used.
func NewEmbeddingClient(cfg *config.SimilarityConfig, logger *zap.Logger) *EmbeddingClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.TimeoutMillis) * time.Millisecond
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}

	return &EmbeddingClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.EmbeddingModel,
		timeout: timeout,
		logger:  logger,
		cache:   make(map[string][]float32),
	}
}

// Similarity returns cosine similarity between the embeddings of textA and
// textB, rescaled from [-1,1] to [0,1].
func (c *EmbeddingClient) Similarity(ctx context.Context, textA, textB string) (float64, error) {
	if textA == "" || textB == "" {
		return 0, fmt.Errorf("both texts must be non-empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	embA, err := c.embed(ctx, textA)
	if err != nil {
		return 0, fmt.Errorf("embed text A: %w", err)
	}
	embB, err := c.embed(ctx, textB)
	if err != nil {
		return 0, fmt.Errorf("embed text B: %w", err)
	}

	cos, err := cosine(embA, embB)
	if err != nil {
		return 0, err
	}

	// Rescale from [-1,1] to [0,1] and clamp for float drift.
	score := (cos + 1) / 2
	return math.Min(1, math.Max(0, score)), nil
}

func (c *EmbeddingClient) embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.RLock()
	cached, ok := c.cache[text]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}

	emb := resp.Data[0].Embedding
	c.cachePut(text, emb)
	return emb, nil
}

func (c *EmbeddingClient) cachePut(text string, emb []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cache) >= maxCachedEmbeddings {
		c.cache = make(map[string][]float32, maxCachedEmbeddings)
	}
	c.cache[text] = emb
}

func cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-magnitude embedding")
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Ensure EmbeddingClient implements Client at compile time.
var _ Client = (*EmbeddingClient)(nil)
