package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tubefocus/librarian-go/internal/librarian/cache"
	"github.com/tubefocus/librarian-go/internal/librarian/chunkers"
	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/internal/librarian/videoid"
	"github.com/tubefocus/librarian-go/pkg/util"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tiktoken-go/tokenizer"
)

var ErrDescriptionRequired = errors.New("description is required when no transcript is available")

// Summary prompts are truncated so long transcripts fit the generation
// model's context window.
const summaryPromptTokenBudget = 6000

const summarySystemPrompt = "You summarize YouTube video transcripts. " +
	"Write one tight paragraph covering the main topics in the order they appear. " +
	"No preamble, no bullet points."

var htmlTagRe = regexp.MustCompile(`<[a-zA-Z][^>]*>`)

// IndexRequest carries everything needed to index one video transcript.
type IndexRequest struct {
	VideoID    string
	Title      string
	Transcript string
	Goal       string
	Score      float64
	// Segments carries timestamped transcript pieces when the caller has
	// them; hierarchical chunking requires it.
	Segments []chunkers.Segment
	// Optional metadata copied onto the saved-video marker.
	Description string
	VideoURL    string
	Manual      bool
}

// SaveResult reports the outcome of a save operation.
type SaveResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	SaveMode string `json:"save_mode,omitempty"`
	VideoID  string `json:"video_id,omitempty"`
}

// Indexer turns transcripts into embedded chunk records and maintains the
// saved-video markers the library listings are built from. The embedder
// and generator may be nil; indexing then degrades per the documented
// soft-fail rules instead of erroring.
type Indexer struct {
	store        interfaces.ChunkStore
	embedder     interfaces.Embedder
	generator    interfaces.Generator
	embedCache   *cache.EmbeddingCache
	cards        *cache.SourceCardCache
	hierarchical *chunkers.HierarchicalChunker
	flat         *chunkers.FlatChunker
	converter    *md.Converter
	encoding     tokenizer.Codec
	logger       zerolog.Logger
}

// NewIndexer creates an indexer on the given collaborators.
func NewIndexer(
	store interfaces.ChunkStore,
	embedder interfaces.Embedder,
	generator interfaces.Generator,
	embedCache *cache.EmbeddingCache,
	cards *cache.SourceCardCache,
) (*Indexer, error) {
	hierarchical, err := chunkers.NewHierarchicalChunker()
	if err != nil {
		return nil, err
	}
	encoding, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, err
	}

	return &Indexer{
		store:        store,
		embedder:     embedder,
		generator:    generator,
		embedCache:   embedCache,
		cards:        cards,
		hierarchical: hierarchical,
		flat:         chunkers.NewFlatChunker(),
		converter:    md.NewConverter("", true, nil),
		encoding:     encoding,
		logger:       util.NewLogger(zerolog.ErrorLevel),
	}, nil
}

// Index chunks, embeds and persists one transcript. Returns false when
// the transcript is empty or no chunk could be embedded; a video with
// zero embeddable chunks is treated as unindexed. Per-chunk embedding
// failures are logged and skipped, partial persistence is accepted.
func (ix *Indexer) Index(ctx context.Context, req IndexRequest) bool {
	if strings.TrimSpace(req.Transcript) == "" && len(req.Segments) == 0 {
		ix.logger.Warn().Str("video_id", req.VideoID).Msg("empty transcript, nothing to index")
		return false
	}

	canonical := videoid.Normalize(req.VideoID)
	storageID := videoid.StorageID(canonical)
	now := time.Now()

	chunks := ix.buildChunks(req, canonical, storageID, now)
	if len(chunks) == 0 {
		ix.logger.Warn().Str("video_id", canonical).Msg("chunking produced no chunks")
		return false
	}

	embedded := 0
	for _, chunk := range chunks {
		vector := ix.embedText(ctx, chunk.Text, interfaces.TaskDocument)
		if vector == nil {
			ix.logger.Warn().
				Str("video_id", canonical).
				Str("chunk_id", chunk.ID).
				Msg("embedding failed for chunk, storing without vector")
			continue
		}
		chunk.Embedding = vector
		embedded++
	}
	if embedded == 0 {
		ix.logger.Error().Str("video_id", canonical).Msg("no chunk could be embedded, video stays unindexed")
		return false
	}

	stored, err := ix.store.InsertChunks(ctx, chunks)
	if err != nil {
		ix.logger.Error().Err(err).Str("video_id", canonical).Msg("failed to persist chunks")
		return false
	}
	ix.logger.Info().
		Str("video_id", canonical).
		Int("chunk_count", stored).
		Int("embedded", embedded).
		Msg("indexed video")

	// Best-effort tier-1 summary; its failure never fails the index.
	ix.persistSummary(ctx, req, canonical, storageID, now)

	ix.cards.Invalidate(canonical)
	return true
}

// buildChunks picks hierarchical chunking when segments are present and
// flat chunking otherwise, and assigns tier-3 parents by tier-2 ordinal.
func (ix *Indexer) buildChunks(
	req IndexRequest,
	canonical, storageID string,
	now time.Time,
) []*models.Chunk {
	base := models.Chunk{
		VideoID:         storageID,
		OriginalVideoID: canonical,
		Kind:            models.KindVideoChunk,
		Title:           req.Title,
		Goal:            req.Goal,
		RelevanceScore:  req.Score,
		IndexedAt:       now,
	}

	if len(req.Segments) > 0 {
		tier2, tier3 := ix.hierarchical.Chunk(req.Segments)

		chunks := make([]*models.Chunk, 0, len(tier2)+len(tier3))
		parentIDs := make([]string, len(tier2))
		for i, window := range tier2 {
			chunk := base
			chunk.ID = uuid.New().String()
			chunk.Tier = models.TierSegment
			chunk.ChunkIndex = i
			chunk.TotalChunks = len(tier2)
			start, end := window.Start, window.End
			chunk.StartTime, chunk.EndTime = &start, &end
			chunk.Text = window.Text
			parentIDs[i] = chunk.ID
			chunks = append(chunks, &chunk)
		}
		for i, clip := range tier3 {
			chunk := base
			chunk.ID = uuid.New().String()
			chunk.Tier = models.TierClip
			chunk.ChunkIndex = i
			chunk.TotalChunks = len(tier3)
			start, end := clip.Start, clip.End
			chunk.StartTime, chunk.EndTime = &start, &end
			chunk.Text = clip.Text
			if clip.ParentIndex >= 0 && clip.ParentIndex < len(parentIDs) {
				parent := parentIDs[clip.ParentIndex]
				chunk.ParentDocID = &parent
			}
			chunks = append(chunks, &chunk)
		}
		return chunks
	}

	pieces := ix.flat.Chunk(req.Transcript)
	chunks := make([]*models.Chunk, 0, len(pieces))
	for i, text := range pieces {
		chunk := base
		chunk.ID = uuid.New().String()
		chunk.Tier = models.TierSegment
		chunk.ChunkIndex = i
		chunk.TotalChunks = len(pieces)
		chunk.Text = text
		chunks = append(chunks, &chunk)
	}
	return chunks
}

// persistSummary generates and stores the tier-1 summary chunk.
func (ix *Indexer) persistSummary(
	ctx context.Context,
	req IndexRequest,
	canonical, storageID string,
	now time.Time,
) {
	if ix.generator == nil {
		return
	}

	transcript := req.Transcript
	if transcript == "" {
		var parts []string
		for _, seg := range req.Segments {
			parts = append(parts, seg.Text)
		}
		transcript = strings.Join(parts, " ")
	}

	prompt := fmt.Sprintf("Video title: %s\n\nTranscript:\n%s",
		req.Title, ix.truncateToTokens(transcript, summaryPromptTokenBudget))
	summary, err := ix.generator.GenerateText(ctx, summarySystemPrompt, []models.ChatMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil || strings.TrimSpace(summary) == "" {
		ix.logger.Warn().Err(err).Str("video_id", canonical).Msg("summary generation failed, skipping tier-1 chunk")
		return
	}

	chunk := &models.Chunk{
		ID:              uuid.New().String(),
		VideoID:         storageID,
		OriginalVideoID: canonical,
		Kind:            models.KindSummary,
		Title:           req.Title,
		Goal:            req.Goal,
		RelevanceScore:  req.Score,
		Tier:            models.TierSummary,
		ChunkIndex:      0,
		TotalChunks:     1,
		Text:            summary,
		Embedding:       ix.embedText(ctx, summary, interfaces.TaskDocument),
		IndexedAt:       now,
	}
	if _, err := ix.store.InsertChunks(ctx, []*models.Chunk{chunk}); err != nil {
		ix.logger.Warn().Err(err).Str("video_id", canonical).Msg("failed to persist summary chunk")
	}
}

// SaveVideoItem wraps Index with save-mode selection. With a transcript
// it indexes and records save_mode=transcript, falling back to a
// metadata-only marker when indexing fails so the item still appears in
// listings. Without a transcript it persists a single link-only record
// built from title, description, goal and url; missing both transcript
// and description is the one hard validation failure.
func (ix *Indexer) SaveVideoItem(ctx context.Context, req IndexRequest) SaveResult {
	canonical := videoid.Normalize(req.VideoID)
	storageID := videoid.StorageID(canonical)
	req.Description = ix.cleanDescription(req.Description)
	now := time.Now()

	hasTranscript := strings.TrimSpace(req.Transcript) != "" || len(req.Segments) > 0

	if !hasTranscript {
		if strings.TrimSpace(req.Description) == "" {
			ix.logger.Warn().Str("video_id", canonical).Msg("link-only save without description rejected")
			return SaveResult{Success: false, Message: ErrDescriptionRequired.Error(), VideoID: canonical}
		}

		body := strings.TrimSpace(strings.Join([]string{req.Title, req.Description, req.Goal, req.VideoURL}, "\n"))
		chunk := &models.Chunk{
			ID:              uuid.New().String(),
			VideoID:         "saved_link_" + canonical,
			OriginalVideoID: canonical,
			Kind:            models.KindSavedLink,
			Title:           req.Title,
			Goal:            req.Goal,
			RelevanceScore:  req.Score,
			TotalChunks:     1,
			Text:            body,
			Embedding:       ix.embedText(ctx, body, interfaces.TaskDocument),
			IndexedAt:       now,
			Description:     req.Description,
			VideoURL:        req.VideoURL,
			SaveMode:        models.SaveModeLinkOnly,
			Manual:          req.Manual,
		}
		if _, err := ix.store.InsertChunks(ctx, []*models.Chunk{chunk}); err != nil {
			ix.logger.Error().Err(err).Str("video_id", canonical).Msg("failed to persist link-only record")
			return SaveResult{Success: false, Message: "failed to save video link", VideoID: canonical}
		}
		ix.cards.Invalidate(canonical)
		return SaveResult{Success: true, SaveMode: models.SaveModeLinkOnly, VideoID: canonical}
	}

	saveMode := models.SaveModeTranscript
	if !ix.Index(ctx, req) {
		// Metadata fallback keeps the item visible in listings even when
		// the transcript could not be indexed.
		saveMode = models.SaveModeLinkOnly
		ix.logger.Warn().Str("video_id", canonical).Msg("indexing failed, saving metadata-only marker")
	}

	marker := &models.Chunk{
		ID:              uuid.New().String(),
		VideoID:         storageID,
		OriginalVideoID: canonical,
		Kind:            models.KindSavedVideo,
		Title:           req.Title,
		Goal:            req.Goal,
		RelevanceScore:  req.Score,
		TotalChunks:     1,
		Text:            strings.TrimSpace(req.Title + "\n" + req.Description),
		IndexedAt:       now,
		Description:     req.Description,
		VideoURL:        req.VideoURL,
		SaveMode:        saveMode,
		Manual:          req.Manual,
	}
	marker.Embedding = ix.embedText(ctx, marker.Text, interfaces.TaskDocument)
	if _, err := ix.store.InsertChunks(ctx, []*models.Chunk{marker}); err != nil {
		ix.logger.Error().Err(err).Str("video_id", canonical).Msg("failed to persist saved-video marker")
		return SaveResult{Success: false, Message: "failed to save video", VideoID: canonical}
	}

	ix.cards.Invalidate(canonical)
	return SaveResult{Success: true, SaveMode: saveMode, VideoID: canonical}
}

// SaveVideoSummary persists a single user-visible summary chunk,
// independent of the transcript chunks.
func (ix *Indexer) SaveVideoSummary(ctx context.Context, videoID, title, summary, goal string) SaveResult {
	if strings.TrimSpace(summary) == "" {
		return SaveResult{Success: false, Message: "summary text is required"}
	}

	canonical := videoid.Normalize(videoID)
	chunk := &models.Chunk{
		ID:              uuid.New().String(),
		VideoID:         "summary_" + canonical,
		OriginalVideoID: canonical,
		Kind:            models.KindVideoSummary,
		Title:           title,
		Goal:            goal,
		Tier:            models.TierSummary,
		TotalChunks:     1,
		Text:            summary,
		Embedding:       ix.embedText(ctx, summary, interfaces.TaskDocument),
		IndexedAt:       time.Now(),
	}
	if _, err := ix.store.InsertChunks(ctx, []*models.Chunk{chunk}); err != nil {
		ix.logger.Error().Err(err).Str("video_id", canonical).Msg("failed to persist video summary")
		return SaveResult{Success: false, Message: "failed to save summary", VideoID: canonical}
	}

	ix.cards.Invalidate(canonical)
	return SaveResult{Success: true, VideoID: canonical}
}

// DeleteVideo removes every chunk for a video and drops its card.
func (ix *Indexer) DeleteVideo(ctx context.Context, videoID string) (int, error) {
	canonical := videoid.Normalize(videoID)
	removed, err := ix.store.DeleteChunksByVideoID(ctx, canonical)
	if err != nil {
		return 0, err
	}
	ix.cards.Invalidate(canonical)
	ix.logger.Info().Str("video_id", canonical).Int("chunk_count", removed).Msg("deleted video")
	return removed, nil
}

const savedListLimit = 200

// ListSavedVideos returns the library listing, newest first,
// deduplicated by canonical id with the first (newest) record winning.
func (ix *Indexer) ListSavedVideos(ctx context.Context) ([]*models.SavedVideo, error) {
	markers, err := ix.store.ListByKind(ctx, models.KindSavedVideo, savedListLimit)
	if err != nil {
		return nil, err
	}
	links, err := ix.store.ListByKind(ctx, models.KindSavedLink, savedListLimit)
	if err != nil {
		return nil, err
	}

	merged := append(markers, links...)
	sortChunksNewestFirst(merged)

	seen := make(map[string]bool)
	var videos []*models.SavedVideo
	for _, chunk := range merged {
		canonical := videoid.Normalize(chunk.OriginalVideoID)
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		videos = append(videos, savedVideoFromChunk(chunk, canonical))
	}
	return videos, nil
}

// GetRecentVideos returns the n most recently saved videos.
func (ix *Indexer) GetRecentVideos(ctx context.Context, n int) ([]*models.SavedVideo, error) {
	videos, err := ix.ListSavedVideos(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(videos) > n {
		videos = videos[:n]
	}
	return videos, nil
}

// VideoDetail is a saved video with its transcript reassembled from
// ordered tier-2 chunks.
type VideoDetail struct {
	models.SavedVideo
	Transcript string `json:"transcript"`
	Summary    string `json:"summary,omitempty"`
	ChunkCount int    `json:"chunk_count"`
}

// GetVideoByID reassembles one video from its stored chunks, or returns
// nil when the library has nothing for that id.
func (ix *Indexer) GetVideoByID(ctx context.Context, videoID string) (*VideoDetail, error) {
	canonical := videoid.Normalize(videoID)
	chunks, err := ix.store.GetChunksByOriginalVideoID(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	detail := &VideoDetail{ChunkCount: len(chunks)}
	var transcriptParts []string
	for _, chunk := range chunks {
		switch chunk.Kind {
		case models.KindSavedVideo, models.KindSavedLink:
			detail.SavedVideo = *savedVideoFromChunk(chunk, canonical)
		case models.KindSummary, models.KindVideoSummary:
			if detail.Summary == "" {
				detail.Summary = chunk.Text
			}
		case models.KindVideoChunk:
			// Tier-2 chunks alone reassemble the transcript; tier-3 clips
			// overlap and would duplicate text.
			if chunk.Tier == models.TierSegment {
				transcriptParts = append(transcriptParts, chunk.Text)
			}
		}
	}
	detail.Transcript = strings.Join(transcriptParts, " ")
	if detail.VideoID == "" {
		detail.VideoID = canonical
		detail.Title = chunks[0].Title
		detail.Goal = chunks[0].Goal
	}
	return detail, nil
}

const statsScanLimit = 10000

// Stats reports the total chunk count and the number of distinct videos.
func (ix *Indexer) Stats(ctx context.Context) (*models.Stats, error) {
	total, err := ix.store.Count(ctx)
	if err != nil {
		return nil, err
	}

	chunks, err := ix.store.ListChunks(ctx, statsScanLimit)
	if err != nil {
		return nil, err
	}
	videos := make(map[string]bool)
	for _, chunk := range chunks {
		videos[videoid.Normalize(chunk.OriginalVideoID)] = true
	}

	return &models.Stats{TotalChunks: total, UniqueVideos: len(videos)}, nil
}

// embedText returns the (cached) embedding for text, or nil when the
// embedder is unconfigured or the call fails.
func (ix *Indexer) embedText(ctx context.Context, text string, task interfaces.TaskType) []float32 {
	if ix.embedder == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	vector, err := ix.embedCache.GetOrCompute(ctx, text, task, ix.embedder.GenerateEmbedding)
	if err != nil {
		ix.logger.Warn().Err(err).Msg("embedding call failed")
		return nil
	}
	return vector
}

// cleanDescription converts HTML descriptions to markdown and collapses
// whitespace. Plain text passes through trimmed.
func (ix *Indexer) cleanDescription(description string) string {
	if htmlTagRe.MatchString(description) {
		converted, err := ix.converter.ConvertString(description)
		if err == nil {
			description = converted
		} else {
			ix.logger.Debug().Err(err).Msg("description html conversion failed, keeping raw text")
		}
	}
	return strings.TrimSpace(description)
}

// truncateToTokens clips text to at most budget tokens.
func (ix *Indexer) truncateToTokens(text string, budget int) string {
	ids, _, err := ix.encoding.Encode(text)
	if err != nil || len(ids) <= budget {
		return text
	}
	truncated, err := ix.encoding.Decode(ids[:budget])
	if err != nil {
		return text
	}
	return truncated
}

func savedVideoFromChunk(chunk *models.Chunk, canonical string) *models.SavedVideo {
	videoURL := chunk.VideoURL
	if videoURL == "" {
		videoURL = "https://www.youtube.com/watch?v=" + canonical
	}
	return &models.SavedVideo{
		VideoID:      canonical,
		Title:        chunk.Title,
		Description:  chunk.Description,
		VideoURL:     videoURL,
		EmbedURL:     "https://www.youtube.com/embed/" + canonical,
		ThumbnailURL: "https://i.ytimg.com/vi/" + canonical + "/hqdefault.jpg",
		Goal:         chunk.Goal,
		Score:        chunk.RelevanceScore,
		SaveMode:     chunk.SaveMode,
		IndexedAt:    chunk.IndexedAt,
	}
}

func sortChunksNewestFirst(chunks []*models.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].IndexedAt.After(chunks[j].IndexedAt)
	})
}
