package services

import (
	"context"
	"strings"
	"time"

	"github.com/tubefocus/librarian-go/internal/librarian/cache"
	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/internal/librarian/videoid"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
)

const cardSnippetCount = 3

// CardBuilder assembles source cards from a video's chunks and
// highlights, memoized through the TTL cache.
type CardBuilder struct {
	store      interfaces.ChunkStore
	highlights interfaces.HighlightStore
	cards      *cache.SourceCardCache
	logger     zerolog.Logger
}

// NewCardBuilder creates a card builder.
func NewCardBuilder(
	store interfaces.ChunkStore,
	highlights interfaces.HighlightStore,
	cards *cache.SourceCardCache,
) *CardBuilder {
	return &CardBuilder{
		store:      store,
		highlights: highlights,
		cards:      cards,
		logger:     util.NewLogger(zerolog.ErrorLevel),
	}
}

// BuildCard returns the source card for a video, from cache when fresh.
// Returns nil when the library holds nothing for that id.
func (b *CardBuilder) BuildCard(ctx context.Context, videoID string) *models.SourceCard {
	canonical := videoid.Normalize(videoID)
	if cached := b.cards.Get(canonical); cached != nil {
		return cached
	}

	chunks, err := b.store.GetChunksByOriginalVideoID(ctx, canonical)
	if err != nil {
		b.logger.Warn().Err(err).Str("video_id", canonical).Msg("failed to load chunks for card")
	}
	highlights, err := b.highlights.GetHighlightsForVideo(ctx, canonical)
	if err != nil {
		b.logger.Warn().Err(err).Str("video_id", canonical).Msg("failed to load highlights for card")
	}
	if len(chunks) == 0 && len(highlights) == 0 {
		return nil
	}

	card := &models.SourceCard{
		VideoID:      canonical,
		ThumbnailURL: "https://i.ytimg.com/vi/" + canonical + "/hqdefault.jpg",
		Highlights:   highlights,
		BuiltAt:      time.Now(),
	}
	for _, chunk := range chunks {
		if card.Title == "" && chunk.Title != "" {
			card.Title = chunk.Title
		}
		if card.Goal == "" && chunk.Goal != "" {
			card.Goal = chunk.Goal
		}
		if card.Score == 0 && chunk.RelevanceScore != 0 {
			card.Score = chunk.RelevanceScore
		}
		switch chunk.Kind {
		case models.KindSavedVideo, models.KindSavedLink:
			if card.Description == "" {
				card.Description = chunk.Description
			}
			if card.VideoURL == "" {
				card.VideoURL = chunk.VideoURL
			}
		case models.KindSummary, models.KindVideoSummary:
			if card.Summary == "" {
				card.Summary = chunk.Text
			}
		case models.KindVideoChunk:
			if chunk.Tier == models.TierSegment && len(card.Snippets) < cardSnippetCount {
				card.Snippets = append(card.Snippets, snippet(chunk.Text))
			}
		}
	}
	if card.Title == "" && len(highlights) > 0 {
		card.Title = highlights[0].VideoTitle
	}
	if card.VideoURL == "" {
		card.VideoURL = "https://www.youtube.com/watch?v=" + canonical
	}

	b.cards.Set(canonical, card)
	return card
}

// BuildCardsFromResults builds cards for up to limit distinct videos
// surfaced by retrieval. The focus video's card, when one exists, is
// always placed first even if retrieval did not surface it.
func (b *CardBuilder) BuildCardsFromResults(
	ctx context.Context,
	results []*models.SearchResult,
	focusVideoID string,
	limit int,
) []*models.SourceCard {
	seen := make(map[string]bool)
	var cards []*models.SourceCard

	if focusVideoID != "" {
		canonical := videoid.Normalize(focusVideoID)
		if card := b.BuildCard(ctx, canonical); card != nil {
			seen[canonical] = true
			cards = append(cards, card)
		}
	}

	for _, result := range results {
		if limit > 0 && len(cards) >= limit {
			break
		}
		canonical := videoid.Normalize(result.OriginalVideoID)
		if canonical == "" || seen[canonical] {
			continue
		}
		seen[canonical] = true
		if card := b.BuildCard(ctx, canonical); card != nil {
			cards = append(cards, card)
		}
	}
	return cards
}

// dedupeCards drops later cards sharing a canonical id or title with an
// earlier one.
func dedupeCards(cards []*models.SourceCard) []*models.SourceCard {
	seenIDs := make(map[string]bool)
	seenTitles := make(map[string]bool)
	deduped := cards[:0]
	for _, card := range cards {
		title := strings.ToLower(strings.TrimSpace(card.Title))
		if seenIDs[card.VideoID] || (title != "" && seenTitles[title]) {
			continue
		}
		seenIDs[card.VideoID] = true
		if title != "" {
			seenTitles[title] = true
		}
		deduped = append(deduped, card)
	}
	return deduped
}
