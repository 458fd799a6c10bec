package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/internal/librarian/videoid"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
)

const (
	inventoryTopVideos = 3
	highlightListLimit = 500
)

var (
	inventoryCues = []string{"do i have", "how many", "list", "show", "is there"}
	libraryCues   = []string{"saved video", "saved videos", "library", "my videos"}
	highlightCues = []string{"highlight", "note"}
)

// isInventoryQuery reports whether the query asks about the library's
// contents rather than about a topic. Such queries bypass focus
// inference and LLM generation.
func isInventoryQuery(query string) bool {
	return isSavedVideoInventoryQuery(query) || isHighlightInventoryQuery(query)
}

func isSavedVideoInventoryQuery(query string) bool {
	lowered := strings.ToLower(query)
	return containsAny(lowered, inventoryCues) && containsAny(lowered, libraryCues)
}

func isHighlightInventoryQuery(query string) bool {
	lowered := strings.ToLower(query)
	return containsAny(lowered, inventoryCues) && containsAny(lowered, highlightCues)
}

// InventoryResponder answers library-contents questions
// deterministically, without any generation step.
type InventoryResponder struct {
	highlights interfaces.HighlightStore
	cards      *CardBuilder
	logger     zerolog.Logger
}

// NewInventoryResponder creates an inventory responder.
func NewInventoryResponder(highlights interfaces.HighlightStore, cards *CardBuilder) *InventoryResponder {
	return &InventoryResponder{
		highlights: highlights,
		cards:      cards,
		logger:     util.NewLogger(zerolog.ErrorLevel),
	}
}

// RespondSavedVideos answers a saved-video inventory query against the
// library listing. The second return is false when the query is not a
// saved-video inventory question.
func (r *InventoryResponder) RespondSavedVideos(
	ctx context.Context,
	query string,
	videos []*models.SavedVideo,
) (*models.ChatResponse, bool) {
	if !isSavedVideoInventoryQuery(query) {
		return nil, false
	}

	if len(videos) == 0 {
		return &models.ChatResponse{Answer: "Your library is empty — no saved videos yet."}, true
	}

	tokens := contentTokens(query)

	type scoredVideo struct {
		video *models.SavedVideo
		score int
	}
	var scored []scoredVideo
	for _, video := range videos {
		haystack := strings.ToLower(video.Title + " " + video.Description)
		matches := 0
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				matches++
			}
		}
		scored = append(scored, scoredVideo{video: video, score: matches})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	// A query with content tokens that match nothing gets an explicit
	// "not found" answer instead of an arbitrary listing.
	if len(tokens) > 0 && scored[0].score == 0 {
		return &models.ChatResponse{
			Answer: fmt.Sprintf(
				"I couldn't find a saved video matching %q. You have %d saved video(s) on other topics.",
				strings.Join(tokens, " "), len(videos)),
		}, true
	}

	top := scored
	if len(tokens) > 0 {
		var matching []scoredVideo
		for _, s := range scored {
			if s.score > 0 {
				matching = append(matching, s)
			}
		}
		top = matching
	}
	if len(top) > inventoryTopVideos {
		top = top[:inventoryTopVideos]
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("You have %d saved video(s). Closest matches:", len(videos)))
	var sources []*models.SourceCard
	for _, s := range top {
		lines = append(lines, fmt.Sprintf("- %s", s.video.Title))
		if card := r.cards.BuildCard(ctx, s.video.VideoID); card != nil {
			sources = append(sources, card)
		}
	}

	return &models.ChatResponse{
		Answer:  strings.Join(lines, "\n"),
		Sources: dedupeCards(sources),
	}, true
}

// RespondHighlights answers a highlight inventory query, optionally
// scoped to a focus video. The second return is false when the query is
// not a highlight inventory question.
func (r *InventoryResponder) RespondHighlights(
	ctx context.Context,
	query string,
	focusVideoID string,
) (*models.ChatResponse, bool) {
	if !isHighlightInventoryQuery(query) {
		return nil, false
	}

	var highlights []*models.Highlight
	var err error
	if focusVideoID != "" {
		highlights, err = r.highlights.GetHighlightsForVideo(ctx, focusVideoID)
	} else {
		highlights, err = r.highlights.ListHighlights(ctx, highlightListLimit)
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to load highlights for inventory answer")
		return &models.ChatResponse{Answer: "I couldn't read your highlights right now."}, true
	}
	if len(highlights) == 0 {
		return &models.ChatResponse{Answer: "You don't have any highlights yet."}, true
	}

	counts := make(map[string]int)
	titles := make(map[string]string)
	var order []string
	for _, h := range highlights {
		canonical := videoid.Normalize(h.VideoID)
		if _, seen := counts[canonical]; !seen {
			order = append(order, canonical)
		}
		counts[canonical]++
		if titles[canonical] == "" {
			titles[canonical] = h.VideoTitle
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	top := order
	if len(top) > inventoryTopVideos {
		top = top[:inventoryTopVideos]
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("You have %d highlight(s) across %d video(s):", len(highlights), len(counts)))
	var sources []*models.SourceCard
	for _, canonical := range top {
		title := titles[canonical]
		if title == "" {
			title = canonical
		}
		lines = append(lines, fmt.Sprintf("- %s: %d highlight(s)", title, counts[canonical]))
		if card := r.cards.BuildCard(ctx, canonical); card != nil {
			sources = append(sources, card)
		}
	}

	return &models.ChatResponse{
		Answer:  strings.Join(lines, "\n"),
		Sources: dedupeCards(sources),
	}, true
}
