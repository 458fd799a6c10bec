package models

import (
	"time"
)

// ChunkKind tags the shape of a chunk record. Records of different kinds
// share one store but carry only the fields relevant to their kind.
type ChunkKind string

const (
	// KindVideoChunk is a tier-2 or tier-3 transcript window.
	KindVideoChunk ChunkKind = "video_chunk"
	// KindSummary is the single tier-1 generated summary for a video.
	KindSummary ChunkKind = "summary"
	// KindVideoSummary is a user-visible summary saved independently of
	// the transcript chunks.
	KindVideoSummary ChunkKind = "video_summary"
	// KindSavedVideo is the marker record that makes a video appear in
	// library listings.
	KindSavedVideo ChunkKind = "saved_video"
	// KindSavedLink is a metadata-only save without a transcript.
	KindSavedLink ChunkKind = "saved_link"
)

// Chunk tiers.
const (
	TierSummary = 1
	TierSegment = 2
	TierClip    = 3
)

// Save modes for saved-video marker records.
const (
	SaveModeTranscript     = "transcript"
	SaveModeLinkOnly       = "link_only"
	SaveModeFromHighlights = "from_highlights"
)

// Chunk is one unit of indexed transcript text, or a marker record
// sharing the same store.
type Chunk struct {
	ID              string    `json:"id"`
	VideoID         string    `json:"video_id"`
	OriginalVideoID string    `json:"original_video_id"`
	Kind            ChunkKind `json:"kind"`
	Title           string    `json:"title"`
	Goal            string    `json:"goal"`
	RelevanceScore  float64   `json:"relevance_score"`
	Tier            int       `json:"tier"`
	ChunkIndex      int       `json:"chunk_index"`
	TotalChunks     int       `json:"total_chunks"`
	StartTime       *float64  `json:"start_time"`
	EndTime         *float64  `json:"end_time"`
	Text            string    `json:"text"`
	Embedding       []float32 `json:"embedding,omitempty"`
	ParentDocID     *string   `json:"parent_doc_id"`
	IndexedAt       time.Time `json:"indexed_at"`

	// Kind-specific metadata.
	Description string `json:"description,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
	SaveMode    string `json:"save_mode,omitempty"`
	Manual      bool   `json:"manual,omitempty"`
}

// TierLabel returns the human label used when formatting chat context.
func (c *Chunk) TierLabel() string {
	switch c.Tier {
	case TierSummary:
		return "Summary"
	case TierSegment:
		return "Segment"
	case TierClip:
		return "Clip"
	default:
		return "Chunk"
	}
}

// SavedVideo is a user-facing library entry derived from saved-video
// marker chunks.
type SavedVideo struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoURL     string    `json:"video_url"`
	EmbedURL     string    `json:"embed_url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Goal         string    `json:"goal"`
	Score        float64   `json:"score"`
	SaveMode     string    `json:"save_mode"`
	IndexedAt    time.Time `json:"indexed_at"`
}

// Highlight is a user-authored note tied to a time range within a video.
type Highlight struct {
	ID           string    `json:"id"`
	VideoID      string    `json:"video_id"`
	VideoTitle   string    `json:"video_title,omitempty"`
	Timestamp    float64   `json:"timestamp"`
	EndTimestamp *float64  `json:"end_timestamp,omitempty"`
	RangeLabel   string    `json:"range_label,omitempty"`
	Note         string    `json:"note,omitempty"`
	Transcript   string    `json:"transcript,omitempty"`
	VideoURL     string    `json:"video_url,omitempty"`
	Goal         string    `json:"goal,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SourceCard is a derived view of one saved video: summary, highlights
// and a handful of snippets. Rebuilt on cache miss, never persisted.
type SourceCard struct {
	VideoID      string       `json:"video_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Summary      string       `json:"summary"`
	VideoURL     string       `json:"video_url"`
	ThumbnailURL string       `json:"thumbnail_url"`
	Goal         string       `json:"goal"`
	Score        float64      `json:"score"`
	Highlights   []*Highlight `json:"highlights"`
	Snippets     []string     `json:"snippets"`
	BuiltAt      time.Time    `json:"built_at"`
}

// SearchResult is one ranked retrieval hit.
type SearchResult struct {
	VideoID         string    `json:"video_id"`
	OriginalVideoID string    `json:"original_video_id"`
	Title           string    `json:"title"`
	Goal            string    `json:"goal"`
	Score           float64   `json:"score"`
	Tier            int       `json:"tier"`
	Kind            ChunkKind `json:"kind"`
	ChunkIndex      int       `json:"chunk_index"`
	Snippet         string    `json:"snippet"`
	StartTime       *float64  `json:"start_time"`
	EndTime         *float64  `json:"end_time"`
	Relevance       *float64  `json:"relevance"`
}

// SearchResponse is the retriever's answer for one query.
type SearchResponse struct {
	Query    string          `json:"query"`
	Results  []*SearchResult `json:"results"`
	Fallback string          `json:"fallback,omitempty"`
}

// ChatResponse is the orchestrator's answer with cited sources.
type ChatResponse struct {
	Answer  string        `json:"answer"`
	Sources []*SourceCard `json:"sources"`
}

// ChatMessage is one turn of prior conversation passed to generation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stats summarizes the state of the chunk store.
type Stats struct {
	TotalChunks  int `json:"total_chunks"`
	UniqueVideos int `json:"unique_videos"`
}
