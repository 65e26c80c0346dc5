package plagiarism

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/RishiKendai/graphsim/internal/metrics"
)

// EmbeddingCache memoizes graph embeddings by snippet content and dimension.
// Useful when one original is compared against many candidates.
type EmbeddingCache struct {
	entries *lru.Cache[string, []float64]
}

func NewEmbeddingCache(size int) (*EmbeddingCache, error) {
	entries, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, err
	}
	return &EmbeddingCache{entries: entries}, nil
}

func (c *EmbeddingCache) Get(snippet string, dim int) ([]float64, bool) {
	emb, ok := c.entries.Get(cacheKey(snippet, dim))
	if !ok {
		metrics.EmbeddingCacheMisses.Inc()
		return nil, false
	}
	metrics.EmbeddingCacheHits.Inc()
	out := make([]float64, len(emb))
	copy(out, emb)
	return out, true
}

func (c *EmbeddingCache) Add(snippet string, dim int, emb []float64) {
	stored := make([]float64, len(emb))
	copy(stored, emb)
	c.entries.Add(cacheKey(snippet, dim), stored)
}

func (c *EmbeddingCache) Len() int {
	return c.entries.Len()
}

func cacheKey(snippet string, dim int) string {
	sum := sha256.Sum256([]byte(snippet))
	return strconv.Itoa(dim) + ":" + hex.EncodeToString(sum[:])
}
