package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/internal/librarian/videoid"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
)

const (
	chatResultCount = 8
	chatCardLimit   = 4
)

const chatSystemPrompt = "You are the TubeFocus Librarian, a memory assistant over the user's " +
	"saved YouTube videos, transcripts and highlights. Answer strictly from the provided " +
	"context. Cite video titles and timestamps when you quote transcript passages. " +
	"If the context does not contain the answer, say so plainly."

// ChatRequest is one question to the librarian with its conversational
// surroundings.
type ChatRequest struct {
	Query             string
	FocusVideoID      string
	History           []models.ChatMessage
	AttachedHighlight *models.Highlight
}

// ChatService orchestrates a chat turn: focus resolution, inventory
// short-circuits, retrieval, card assembly, context formatting and the
// final generation call.
type ChatService struct {
	retriever *Retriever
	cards     *CardBuilder
	inventory *InventoryResponder
	focus     *FocusInferencer
	library   *Indexer
	generator interfaces.Generator
	logger    zerolog.Logger
}

// NewChatService creates the orchestrator. generator may be nil; answers
// then degrade to a deterministic source listing.
func NewChatService(
	retriever *Retriever,
	cards *CardBuilder,
	inventory *InventoryResponder,
	focus *FocusInferencer,
	library *Indexer,
	generator interfaces.Generator,
) *ChatService {
	return &ChatService{
		retriever: retriever,
		cards:     cards,
		inventory: inventory,
		focus:     focus,
		library:   library,
		generator: generator,
		logger:    util.NewLogger(zerolog.ErrorLevel),
	}
}

// Chat answers one query. Generation failures never propagate; the
// caller always receives an answer, possibly a degraded one.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) *models.ChatResponse {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return &models.ChatResponse{Answer: "Ask me something about your saved videos."}
	}

	savedVideos, err := s.library.ListSavedVideos(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list saved videos for chat")
	}

	focusID := s.resolveFocus(query, req, savedVideos)

	// Inventory questions are answered deterministically, before any
	// generation step.
	if resp, ok := s.inventory.RespondSavedVideos(ctx, query, savedVideos); ok {
		return resp
	}
	if resp, ok := s.inventory.RespondHighlights(ctx, query, focusID); ok {
		return resp
	}

	search := s.retriever.Search(ctx, query, chatResultCount, focusID)
	cards := s.cards.BuildCardsFromResults(ctx, search.Results, focusID, chatCardLimit)
	cards = dedupeCards(cards)

	if s.generator == nil {
		return degradedResponse(search, cards,
			"Text generation is not configured, so here is what I found in your library.")
	}

	contextBlock := buildChatContext(search, cards, req.AttachedHighlight)
	messages := make([]models.ChatMessage, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, models.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf("Question: %s\n\nLibrary context:\n%s", query, contextBlock),
	})

	answer, err := s.generator.GenerateText(ctx, chatSystemPrompt, messages)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("generation failed")
		return degradedResponse(search, cards,
			"I couldn't generate an answer right now, but these library entries look relevant.")
	}

	return &models.ChatResponse{Answer: answer, Sources: cards}
}

// resolveFocus applies the precedence explicit id > attached highlight >
// inferred focus > none.
func (s *ChatService) resolveFocus(
	query string,
	req ChatRequest,
	savedVideos []*models.SavedVideo,
) string {
	if req.FocusVideoID != "" {
		return videoid.Normalize(req.FocusVideoID)
	}
	if req.AttachedHighlight != nil && req.AttachedHighlight.VideoID != "" {
		return videoid.Normalize(req.AttachedHighlight.VideoID)
	}
	return s.focus.InferFocus(query, savedVideos)
}

// buildChatContext renders retrieval results and cards into the text
// block handed to generation: transcript passages labelled by tier and
// time range, then one block per source video.
func buildChatContext(
	search *models.SearchResponse,
	cards []*models.SourceCard,
	attached *models.Highlight,
) string {
	var b strings.Builder

	if attached != nil {
		b.WriteString("Attached highlight:\n")
		fmt.Fprintf(&b, "- %s at %s", attached.VideoTitle, formatTimestamp(attached.Timestamp))
		if attached.Note != "" {
			fmt.Fprintf(&b, " — note: %s", attached.Note)
		}
		if attached.Transcript != "" {
			fmt.Fprintf(&b, "\n  transcript: %s", attached.Transcript)
		}
		b.WriteString("\n\n")
	}

	if len(search.Results) > 0 {
		b.WriteString("Transcript passages:\n")
		for _, result := range search.Results {
			label := tierLabel(result.Tier)
			if result.StartTime != nil && result.EndTime != nil {
				fmt.Fprintf(&b, "[%s | %s %s-%s] %s\n",
					result.Title, label,
					formatTimestamp(*result.StartTime), formatTimestamp(*result.EndTime),
					result.Snippet)
			} else {
				fmt.Fprintf(&b, "[%s | %s] %s\n", result.Title, label, result.Snippet)
			}
		}
		b.WriteString("\n")
	}

	for _, card := range cards {
		fmt.Fprintf(&b, "Video: %s\n", card.Title)
		if card.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", card.Summary)
		}
		if card.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", snippet(card.Description))
		}
		for _, h := range card.Highlights {
			fmt.Fprintf(&b, "Highlight at %s: %s\n", formatTimestamp(h.Timestamp), h.Note)
		}
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return "(the library has nothing relevant to this question)"
	}
	return b.String()
}

func degradedResponse(
	search *models.SearchResponse,
	cards []*models.SourceCard,
	preamble string,
) *models.ChatResponse {
	var lines []string
	lines = append(lines, preamble)
	for i, result := range search.Results {
		if i >= chatCardLimit {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", result.Title, result.Snippet))
	}
	if len(search.Results) == 0 {
		lines = append(lines, "Nothing in the library matched this question.")
	}
	return &models.ChatResponse{Answer: strings.Join(lines, "\n"), Sources: cards}
}

func tierLabel(tier int) string {
	chunk := models.Chunk{Tier: tier}
	return chunk.TierLabel()
}

// formatTimestamp renders seconds as m:ss or h:mm:ss.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
