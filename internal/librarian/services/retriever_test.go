package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/tubefocus/librarian-go/internal/librarian/cache"
	"github.com/tubefocus/librarian-go/internal/librarian/chunkers"
	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/internal/librarian/repository"
)

func topicSegments(n int, topic string) []chunkers.Segment {
	segments := make([]chunkers.Segment, n)
	for i := range segments {
		segments[i] = chunkers.Segment{
			Text:     fmt.Sprintf("part %d discussing %s in depth", i, topic),
			Start:    float64(i) * 10,
			Duration: 10,
		}
	}
	return segments
}

// seedLibrary indexes two videos with disjoint vocabulary and returns a
// retriever sharing the same store and embedder.
func seedLibrary(t *testing.T) (*Retriever, *repository.MemoryChunkStore) {
	t.Helper()
	embedder := &mockEmbedder{}
	indexer, store := newTestIndexer(t, embedder, nil)
	ctx := context.Background()

	if !indexer.Index(ctx, IndexRequest{
		VideoID:  "cachingvid1",
		Title:    "KV Caching Deep Dive",
		Segments: topicSegments(30, "caching attention transformer inference"),
	}) {
		t.Fatal("Failed to index caching video")
	}
	if !indexer.Index(ctx, IndexRequest{
		VideoID:  "gitbasics01",
		Title:    "Git Basics",
		Segments: topicSegments(30, "git commit branch merge workflow"),
	}) {
		t.Fatal("Failed to index git video")
	}

	return NewRetriever(store, embedder, cache.NewEmbeddingCache()), store
}

func TestRetriever_BroadCascade(t *testing.T) {
	retriever, _ := seedLibrary(t)

	response := retriever.Search(context.Background(), "caching attention transformer", 5, "")
	if response.Fallback != "" {
		t.Errorf("Expected vector-backed results, got fallback %q", response.Fallback)
	}
	if len(response.Results) == 0 {
		t.Fatal("Expected results")
	}
	if response.Results[0].OriginalVideoID != "cachingvid1" {
		t.Errorf("Expected the caching video first, got %s", response.Results[0].OriginalVideoID)
	}

	// The cascade surfaces both clip-level hits and their segment-level
	// parents.
	tiers := make(map[int]bool)
	for _, result := range response.Results {
		tiers[result.Tier] = true
	}
	if !tiers[models.TierClip] {
		t.Error("Expected tier-3 drilldown hits")
	}
	if !tiers[models.TierSegment] {
		t.Error("Expected tier-2 parent expansion hits")
	}
}

func TestRetriever_BroadCascade_Cap(t *testing.T) {
	retriever, _ := seedLibrary(t)

	response := retriever.Search(context.Background(), "caching attention transformer", 1, "")
	if len(response.Results) > 2 {
		t.Errorf("Expected at most n*2 = 2 results, got %d", len(response.Results))
	}
}

func TestRetriever_Focused_Completeness(t *testing.T) {
	retriever, _ := seedLibrary(t)

	response := retriever.Search(context.Background(), "anything at all", 50, "saved_gitbasics01")

	if len(response.Results) == 0 {
		t.Fatal("Expected the focus video's chunks")
	}
	for _, result := range response.Results {
		if result.OriginalVideoID != "" && result.OriginalVideoID != "gitbasics01" {
			t.Errorf("Focused search leaked video %s", result.OriginalVideoID)
		}
	}
	// Direct listing guarantees late segments appear even if ranking
	// would never surface them.
	found := false
	for _, result := range response.Results {
		if strings.Contains(result.Snippet, "part 27") {
			found = true
			break
		}
	}
	if !found {
		t.Error("Focused mode is missing the tail of the transcript")
	}
}

func TestRetriever_LexicalFallback_NoEmbedder(t *testing.T) {
	indexer, store := newTestIndexer(t, nil, nil)
	indexer.SaveVideoItem(context.Background(), IndexRequest{
		VideoID:     "gitbasics01",
		Title:       "Git Basics",
		Description: "introduction to git version control",
	})

	retriever := NewRetriever(store, nil, cache.NewEmbeddingCache())
	response := retriever.Search(context.Background(), "git version control", 5, "")

	if response.Fallback != FallbackLexical {
		t.Errorf("Expected fallback marker, got %q", response.Fallback)
	}
	if len(response.Results) == 0 {
		t.Fatal("Lexical fallback must still return keyword matches")
	}
	if response.Results[0].Title != "Git Basics" {
		t.Errorf("Expected the git video, got %q", response.Results[0].Title)
	}
}

func TestRetriever_LexicalFallback_EmbedderOutage(t *testing.T) {
	// Data was indexed while the embedder was healthy; queries during an
	// outage must degrade to lexical matching, not fail.
	embedder := &mockEmbedder{}
	indexer, store := newTestIndexer(t, embedder, nil)
	indexer.SaveVideoItem(context.Background(), IndexRequest{
		VideoID:     "cachingvid1",
		Title:       "KV Caching Deep Dive",
		Description: "how inference servers cache attention keys",
		Transcript:  strings.Repeat("caching attention keys values ", 40),
	})

	broken := &mockEmbedder{failAll: true}
	retriever := NewRetriever(store, broken, cache.NewEmbeddingCache())
	response := retriever.Search(context.Background(), "caching attention", 5, "")

	if response.Fallback != FallbackLexical {
		t.Errorf("Expected fallback marker during outage, got %q", response.Fallback)
	}
	if len(response.Results) == 0 {
		t.Error("Expected lexical results during outage")
	}
}

func TestRetriever_Dedupe(t *testing.T) {
	retriever, _ := seedLibrary(t)

	response := retriever.Search(context.Background(), "caching attention transformer", 10, "")
	seen := make(map[string]bool)
	for _, result := range response.Results {
		prefix := result.Snippet
		if len(prefix) > snippetDedupePrefix {
			prefix = prefix[:snippetDedupePrefix]
		}
		if seen[prefix] {
			t.Errorf("Duplicate snippet prefix survived dedupe: %q", prefix)
		}
		seen[prefix] = true
	}
}

func TestRetriever_EmptyQueryTokens(t *testing.T) {
	store := repository.NewMemoryChunkStore()
	retriever := NewRetriever(store, nil, cache.NewEmbeddingCache())

	response := retriever.Search(context.Background(), "a an it", 5, "")
	if len(response.Results) != 0 {
		t.Errorf("Expected no results for contentless query, got %d", len(response.Results))
	}
}
