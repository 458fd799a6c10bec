package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/internal/librarian/videoid"
)

// MemoryChunkStore is an in-memory chunk store with the same contract
// as the libsql repository. It backs local mode and tests, where a
// Turso database is not available.
type MemoryChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]*models.Chunk
	order  []string

	// FailInserts makes InsertChunks fail, for exercising degraded paths.
	FailInserts bool
}

// NewMemoryChunkStore creates an empty in-memory chunk store.
func NewMemoryChunkStore() *MemoryChunkStore {
	return &MemoryChunkStore{chunks: make(map[string]*models.Chunk)}
}

// InsertChunks stores chunk records.
func (s *MemoryChunkStore) InsertChunks(_ context.Context, chunks []*models.Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailInserts {
		return 0, fmt.Errorf("insert failure injected")
	}

	for _, chunk := range chunks {
		if _, exists := s.chunks[chunk.ID]; !exists {
			s.order = append(s.order, chunk.ID)
		}
		s.chunks[chunk.ID] = chunk
	}
	return len(chunks), nil
}

// GetChunksByOriginalVideoID returns every chunk for a canonical video
// id, ordered by tier then chunk index.
func (s *MemoryChunkStore) GetChunksByOriginalVideoID(
	_ context.Context,
	originalVideoID string,
) ([]*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Chunk
	for _, id := range s.order {
		if s.chunks[id].OriginalVideoID == originalVideoID {
			result = append(result, s.chunks[id])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Tier != result[j].Tier {
			return result[i].Tier < result[j].Tier
		}
		return result[i].ChunkIndex < result[j].ChunkIndex
	})
	return result, nil
}

// GetChunkByID returns one chunk record or nil when absent.
func (s *MemoryChunkStore) GetChunkByID(_ context.Context, id string) (*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunks[id], nil
}

// ListByKind returns chunks of one kind, newest first.
func (s *MemoryChunkStore) ListByKind(
	_ context.Context,
	kind models.ChunkKind,
	limit int,
) ([]*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Chunk
	for _, id := range s.order {
		if s.chunks[id].Kind == kind {
			result = append(result, s.chunks[id])
		}
	}
	sortNewestFirst(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListChunks returns up to limit chunk records, newest first.
func (s *MemoryChunkStore) ListChunks(_ context.Context, limit int) ([]*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Chunk, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.chunks[id])
	}
	sortNewestFirst(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// VectorSearch ranks embedded chunks by cosine distance to the query
// vector.
func (s *MemoryChunkStore) VectorSearch(
	_ context.Context,
	embedding []float32,
	limit int,
	filter interfaces.ChunkFilter,
) ([]*interfaces.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []*interfaces.ScoredChunk
	for _, id := range s.order {
		chunk := s.chunks[id]
		if chunk.Embedding == nil {
			continue
		}
		if filter.VideoID != "" && chunk.VideoID != filter.VideoID {
			continue
		}
		if filter.OriginalVideoID != "" && chunk.OriginalVideoID != filter.OriginalVideoID {
			continue
		}
		if filter.Tier != 0 && chunk.Tier != filter.Tier {
			continue
		}
		if filter.Kind != "" && chunk.Kind != filter.Kind {
			continue
		}
		scored = append(scored, &interfaces.ScoredChunk{
			Chunk:    chunk,
			Distance: cosineDistance(embedding, chunk.Embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// DeleteChunksByVideoID removes every chunk for a canonical video id.
func (s *MemoryChunkStore) DeleteChunksByVideoID(_ context.Context, originalVideoID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	remaining := s.order[:0]
	for _, id := range s.order {
		if s.chunks[id].OriginalVideoID == originalVideoID {
			delete(s.chunks, id)
			removed++
			continue
		}
		remaining = append(remaining, id)
	}
	s.order = remaining
	return removed, nil
}

// Count returns the total number of chunk records.
func (s *MemoryChunkStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func sortNewestFirst(chunks []*models.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].IndexedAt.After(chunks[j].IndexedAt)
	})
}

// MemoryHighlightStore is the in-memory twin of the highlight
// repository.
type MemoryHighlightStore struct {
	mu         sync.RWMutex
	highlights map[string]*models.Highlight
}

// NewMemoryHighlightStore creates an empty in-memory highlight store.
func NewMemoryHighlightStore() *MemoryHighlightStore {
	return &MemoryHighlightStore{highlights: make(map[string]*models.Highlight)}
}

// SaveHighlight upserts a highlight and returns its document id.
func (s *MemoryHighlightStore) SaveHighlight(_ context.Context, highlight *models.Highlight) (string, error) {
	if highlight == nil || highlight.VideoID == "" {
		return "", ErrHighlightInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := highlight.ID
	if id == "" {
		id = fmt.Sprintf("%s_%d", highlight.VideoID, int64(highlight.Timestamp))
	}
	stored := *highlight
	stored.ID = id
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	s.highlights[id] = &stored
	return id, nil
}

// GetHighlightsForVideo returns a video's highlights ordered by
// timestamp.
func (s *MemoryHighlightStore) GetHighlightsForVideo(
	_ context.Context,
	videoID string,
) ([]*models.Highlight, error) {
	canonical := videoid.Normalize(videoID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Highlight
	for _, h := range s.highlights {
		if videoid.Normalize(h.VideoID) == canonical {
			result = append(result, h)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp < result[j].Timestamp })
	return result, nil
}

// ListHighlights returns highlights, newest first.
func (s *MemoryHighlightStore) ListHighlights(_ context.Context, limit int) ([]*models.Highlight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Highlight, 0, len(s.highlights))
	for _, h := range s.highlights {
		result = append(result, h)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// DeleteHighlight removes a highlight by document id.
func (s *MemoryHighlightStore) DeleteHighlight(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.highlights, id)
	return nil
}
