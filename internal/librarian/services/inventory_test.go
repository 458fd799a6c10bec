package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tubefocus/librarian-go/internal/librarian/cache"
	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/internal/librarian/repository"
)

func newTestInventory(t *testing.T) (*InventoryResponder, *repository.MemoryChunkStore, *repository.MemoryHighlightStore) {
	t.Helper()
	store := repository.NewMemoryChunkStore()
	highlights := repository.NewMemoryHighlightStore()
	cards := NewCardBuilder(store, highlights, cache.NewSourceCardCacheWithTTL(time.Minute))
	return NewInventoryResponder(highlights, cards), store, highlights
}

func TestIsInventoryQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected bool
	}{
		{"saved video question", "do i have any saved videos about git?", true},
		{"library listing", "list my library", true},
		{"highlight count", "how many highlights do I have?", true},
		{"topical question", "how does git rebase work?", false},
		{"mentions library casually", "the standard library of go", false},
		{"highlight without inventory cue", "that highlight was useful", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isInventoryQuery(tt.query); got != tt.expected {
				t.Errorf("isInventoryQuery(%q) = %v, want %v", tt.query, got, tt.expected)
			}
		})
	}
}

func TestInventoryResponder_RespondSavedVideos(t *testing.T) {
	responder, _, _ := newTestInventory(t)
	ctx := context.Background()

	library := []*models.SavedVideo{
		{VideoID: "gitbasics01", Title: "Git Basics", Description: "version control fundamentals"},
		{VideoID: "cachingvid1", Title: "KV Caching Deep Dive", Description: "inference optimization"},
		{VideoID: "rustintro01", Title: "Intro to Rust", Description: "ownership and borrowing"},
	}

	// Not an inventory question.
	if _, ok := responder.RespondSavedVideos(ctx, "how does git work", library); ok {
		t.Error("Topical question must not trigger the inventory responder")
	}

	// Matching inventory question surfaces the right video.
	resp, ok := responder.RespondSavedVideos(ctx, "do i have any saved videos about rust ownership", library)
	if !ok {
		t.Fatal("Expected inventory answer")
	}
	if !strings.Contains(resp.Answer, "Intro to Rust") {
		t.Errorf("Answer missed the matching video: %q", resp.Answer)
	}
	if strings.Contains(resp.Answer, "Git Basics") {
		t.Errorf("Answer listed a non-matching video: %q", resp.Answer)
	}

	// Nothing matches: explicit not-found answer, never a fabricated hit.
	resp, ok = responder.RespondSavedVideos(ctx, "do i have any saved videos about quantum physics", library)
	if !ok {
		t.Fatal("Expected inventory answer")
	}
	if !strings.Contains(resp.Answer, "couldn't find") {
		t.Errorf("Expected a not-found answer, got %q", resp.Answer)
	}

	// Empty library.
	resp, ok = responder.RespondSavedVideos(ctx, "list my saved videos", nil)
	if !ok || !strings.Contains(resp.Answer, "empty") {
		t.Errorf("Expected empty-library answer, got %q", resp.Answer)
	}
}

func TestInventoryResponder_RespondHighlights(t *testing.T) {
	responder, _, highlights := newTestInventory(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		highlights.SaveHighlight(ctx, &models.Highlight{
			VideoID:    "gitbasics01",
			VideoTitle: "Git Basics",
			Timestamp:  float64(i * 60),
			Note:       "useful moment",
		})
	}
	highlights.SaveHighlight(ctx, &models.Highlight{
		VideoID:    "cachingvid1",
		VideoTitle: "KV Caching Deep Dive",
		Timestamp:  30,
	})

	// Not a highlight inventory question.
	if _, ok := responder.RespondHighlights(ctx, "what was that highlight about git", ""); ok {
		t.Error("Question without an inventory cue must not trigger the responder")
	}

	resp, ok := responder.RespondHighlights(ctx, "how many highlights do i have", "")
	if !ok {
		t.Fatal("Expected highlight inventory answer")
	}
	if !strings.Contains(resp.Answer, "4 highlight(s)") {
		t.Errorf("Expected total count in answer: %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "Git Basics: 3") {
		t.Errorf("Expected per-video count, got %q", resp.Answer)
	}

	// Scoped to a focus video.
	resp, ok = responder.RespondHighlights(ctx, "how many highlights do i have", "saved_cachingvid1")
	if !ok {
		t.Fatal("Expected focused highlight inventory answer")
	}
	if !strings.Contains(resp.Answer, "1 highlight(s)") {
		t.Errorf("Expected focus-scoped count, got %q", resp.Answer)
	}

	// No highlights at all.
	empty, _, _ := newTestInventory(t)
	resp, ok = empty.RespondHighlights(ctx, "do i have any highlights", "")
	if !ok || !strings.Contains(resp.Answer, "don't have any highlights") {
		t.Errorf("Expected empty answer, got %q", resp.Answer)
	}
}
