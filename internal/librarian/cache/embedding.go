// Package cache holds the librarian's two process-wide caches: the
// content-addressed embedding cache and the short-TTL source-card cache.
// Both are shared across in-flight requests and safe for concurrent use.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync/atomic"

	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
	"github.com/tubefocus/librarian-go/pkg/util"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// ComputeFunc is the external embedding call invoked on a cache miss.
type ComputeFunc func(ctx context.Context, content string, task interfaces.TaskType) ([]float32, error)

// EmbeddingStats reports hit/miss counters for observability.
type EmbeddingStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// EmbeddingCache memoizes embedding vectors by content hash. Entries
// live for the lifetime of the process; there is no eviction.
type EmbeddingCache struct {
	store  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
	logger zerolog.Logger
}

// NewEmbeddingCache creates an empty embedding cache.
func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{
		store:  gocache.New(gocache.NoExpiration, 0),
		logger: util.NewLogger(zerolog.ErrorLevel),
	}
}

// GetOrCompute returns the cached vector for (content, task) or invokes
// compute, stores a non-nil result and returns it. Compute errors are
// returned to the caller and nothing is stored.
func (c *EmbeddingCache) GetOrCompute(
	ctx context.Context,
	content string,
	task interfaces.TaskType,
	compute ComputeFunc,
) ([]float32, error) {
	key := cacheKey(content, task)

	if cached, found := c.store.Get(key); found {
		c.hits.Add(1)
		vector, _ := cached.([]float32)
		return vector, nil
	}

	c.misses.Add(1)
	vector, err := compute(ctx, content, task)
	if err != nil {
		c.logger.Debug().Err(err).Str("task_type", string(task)).Msg("embedding compute failed")
		return nil, err
	}
	if vector != nil {
		c.store.Set(key, vector, gocache.NoExpiration)
	}
	return vector, nil
}

// Stats returns the current hit/miss counters and entry count.
func (c *EmbeddingCache) Stats() EmbeddingStats {
	return EmbeddingStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.store.ItemCount(),
	}
}

// cacheKey hashes the task type together with case- and
// whitespace-normalized content.
func cacheKey(content string, task interfaces.TaskType) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	sum := sha256.Sum256([]byte(string(task) + "\x00" + normalized))
	return hex.EncodeToString(sum[:])
}
