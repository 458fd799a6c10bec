package services

import (
	"context"
	"sort"
	"strings"

	"github.com/tubefocus/librarian-go/internal/librarian/cache"
	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/internal/librarian/videoid"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
)

const (
	// Phase 1 shortlists this many nearest neighbors across all tiers.
	phase1Limit = 10
	// Phase 2 drills into the top shortlisted videos.
	drilldownVideos = 3
	// Results are deduplicated by this many leading snippet characters.
	snippetDedupePrefix = 100
	snippetLength       = 200
	lexicalCandidates   = 200
	// FallbackLexical marks responses served by keyword matching alone.
	FallbackLexical = "lexical"
)

// Retriever answers queries with a cascading multi-tier search over the
// chunk store. When the embedder is unavailable it degrades to lexical
// matching; that is a supported mode, not an error path.
type Retriever struct {
	store      interfaces.ChunkStore
	embedder   interfaces.Embedder
	embedCache *cache.EmbeddingCache
	logger     zerolog.Logger
}

// NewRetriever creates a retriever. embedder may be nil.
func NewRetriever(
	store interfaces.ChunkStore,
	embedder interfaces.Embedder,
	embedCache *cache.EmbeddingCache,
) *Retriever {
	return &Retriever{
		store:      store,
		embedder:   embedder,
		embedCache: embedCache,
		logger:     util.NewLogger(zerolog.ErrorLevel),
	}
}

// Search runs focused retrieval when focusVideoID is given and the
// broad three-phase cascade otherwise. A lexical pass always supplements
// the vector results; when the vector side yields nothing, the lexical
// results alone are returned with the fallback marker set.
func (r *Retriever) Search(
	ctx context.Context,
	query string,
	n int,
	focusVideoID string,
) *models.SearchResponse {
	if n <= 0 {
		n = 5
	}
	response := &models.SearchResponse{Query: query}

	queryVector := r.embedQuery(ctx, query)

	var results []*models.SearchResult
	if focusVideoID != "" {
		results = r.searchFocused(ctx, queryVector, n, focusVideoID)
	} else {
		results = r.searchBroad(ctx, queryVector, n)
	}

	lexical := r.searchLexical(ctx, query, n)
	if len(results) == 0 {
		results = lexical
		if len(lexical) > 0 || queryVector == nil {
			response.Fallback = FallbackLexical
		}
	} else {
		results = append(results, lexical...)
	}

	results = dedupeBySnippet(results)
	if len(results) > n*2 {
		results = results[:n*2]
	}
	response.Results = results

	r.logger.Debug().
		Str("query", query).
		Str("focus_video_id", focusVideoID).
		Int("result_count", len(results)).
		Str("fallback", response.Fallback).
		Msg("search complete")
	return response
}

// searchFocused lists every chunk of the focus video directly, which
// guarantees completeness for a known target, then adds an id-restricted
// vector pass to float the semantically closest chunks to the caller.
func (r *Retriever) searchFocused(
	ctx context.Context,
	queryVector []float32,
	n int,
	focusVideoID string,
) []*models.SearchResult {
	canonical := videoid.Normalize(focusVideoID)

	var results []*models.SearchResult
	if queryVector != nil {
		scored, err := r.store.VectorSearch(ctx, queryVector, n, interfaces.ChunkFilter{
			OriginalVideoID: canonical,
		})
		if err != nil {
			r.logger.Warn().Err(err).Str("video_id", canonical).Msg("focused vector search failed")
		}
		for _, s := range scored {
			results = append(results, resultFromScored(s))
		}
	}

	chunks, err := r.store.GetChunksByOriginalVideoID(ctx, canonical)
	if err != nil {
		r.logger.Warn().Err(err).Str("video_id", canonical).Msg("focused listing failed")
	}
	for _, chunk := range chunks {
		results = append(results, resultFromChunk(chunk, nil))
	}
	return results
}

// searchBroad runs the three-phase cascade: shortlist nearest neighbors
// across all tiers, drill down to tier-3 clips within the top videos,
// then expand each clip's tier-2 parent for surrounding context.
func (r *Retriever) searchBroad(
	ctx context.Context,
	queryVector []float32,
	n int,
) []*models.SearchResult {
	if queryVector == nil {
		return nil
	}

	// Phase 1: relevance-ranked shortlist of videos.
	shortlist, err := r.store.VectorSearch(ctx, queryVector, phase1Limit, interfaces.ChunkFilter{})
	if err != nil {
		r.logger.Warn().Err(err).Msg("phase 1 vector search failed")
		return nil
	}

	var results []*models.SearchResult
	seenVideos := make(map[string]bool)
	var videoOrder []string
	for _, s := range shortlist {
		results = append(results, resultFromScored(s))
		canonical := videoid.Normalize(s.Chunk.OriginalVideoID)
		if !seenVideos[canonical] {
			seenVideos[canonical] = true
			videoOrder = append(videoOrder, canonical)
		}
	}

	// Phase 2: tier-3 drilldown into the top videos.
	var clips []*interfaces.ScoredChunk
	for i, canonical := range videoOrder {
		if i >= drilldownVideos {
			break
		}
		scored, err := r.store.VectorSearch(ctx, queryVector, n, interfaces.ChunkFilter{
			OriginalVideoID: canonical,
			Tier:            models.TierClip,
		})
		if err != nil {
			r.logger.Warn().Err(err).Str("video_id", canonical).Msg("tier-3 drilldown failed")
			continue
		}
		clips = append(clips, scored...)
	}
	for _, s := range clips {
		results = append(results, resultFromScored(s))
	}

	// Phase 3: each clip's tier-2 parent, once.
	seenParents := make(map[string]bool)
	for _, s := range clips {
		if s.Chunk.ParentDocID == nil || seenParents[*s.Chunk.ParentDocID] {
			continue
		}
		seenParents[*s.Chunk.ParentDocID] = true
		parent, err := r.store.GetChunkByID(ctx, *s.Chunk.ParentDocID)
		if err != nil || parent == nil {
			continue
		}
		results = append(results, resultFromChunk(parent, nil))
	}

	return results
}

// searchLexical ranks saved videos, links and summaries by how many
// query tokens their title, description or text contain.
func (r *Retriever) searchLexical(ctx context.Context, query string, n int) []*models.SearchResult {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	kinds := []models.ChunkKind{
		models.KindSavedVideo,
		models.KindSavedLink,
		models.KindSummary,
		models.KindVideoSummary,
	}

	type scoredResult struct {
		result *models.SearchResult
		score  int
	}
	var scored []scoredResult
	for _, kind := range kinds {
		chunks, err := r.store.ListByKind(ctx, kind, lexicalCandidates)
		if err != nil {
			r.logger.Warn().Err(err).Str("kind", string(kind)).Msg("lexical candidate listing failed")
			continue
		}
		for _, chunk := range chunks {
			haystack := strings.ToLower(chunk.Title + " " + chunk.Description + " " + chunk.Text)
			matches := 0
			for _, token := range tokens {
				if strings.Contains(haystack, token) {
					matches++
				}
			}
			if matches == 0 {
				continue
			}
			scored = append(scored, scoredResult{result: resultFromChunk(chunk, nil), score: matches})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > n {
		scored = scored[:n]
	}

	results := make([]*models.SearchResult, 0, len(scored))
	for _, s := range scored {
		results = append(results, s.result)
	}
	return results
}

// embedQuery returns the query embedding or nil when the embedder is
// unavailable or the call fails.
func (r *Retriever) embedQuery(ctx context.Context, query string) []float32 {
	if r.embedder == nil || strings.TrimSpace(query) == "" {
		return nil
	}
	vector, err := r.embedCache.GetOrCompute(ctx, query, interfaces.TaskQuery, r.embedder.GenerateEmbedding)
	if err != nil {
		r.logger.Warn().Err(err).Msg("query embedding failed, degrading to lexical search")
		return nil
	}
	return vector
}

func resultFromScored(s *interfaces.ScoredChunk) *models.SearchResult {
	relevance := 1 - s.Distance
	result := resultFromChunk(s.Chunk, nil)
	result.Relevance = &relevance
	return result
}

func resultFromChunk(chunk *models.Chunk, relevance *float64) *models.SearchResult {
	return &models.SearchResult{
		VideoID:         chunk.VideoID,
		OriginalVideoID: chunk.OriginalVideoID,
		Title:           chunk.Title,
		Goal:            chunk.Goal,
		Score:           chunk.RelevanceScore,
		Tier:            chunk.Tier,
		Kind:            chunk.Kind,
		ChunkIndex:      chunk.ChunkIndex,
		Snippet:         snippet(chunk.Text),
		StartTime:       chunk.StartTime,
		EndTime:         chunk.EndTime,
		Relevance:       relevance,
	}
}

func snippet(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= snippetLength {
		return text
	}
	return text[:snippetLength] + "..."
}

// dedupeBySnippet drops results whose snippet shares its leading
// characters with an earlier result, keeping first occurrences.
func dedupeBySnippet(results []*models.SearchResult) []*models.SearchResult {
	seen := make(map[string]bool)
	deduped := results[:0]
	for _, result := range results {
		prefix := result.Snippet
		if len(prefix) > snippetDedupePrefix {
			prefix = prefix[:snippetDedupePrefix]
		}
		if seen[prefix] {
			continue
		}
		seen[prefix] = true
		deduped = append(deduped, result)
	}
	return deduped
}
