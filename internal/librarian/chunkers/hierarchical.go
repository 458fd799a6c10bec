package chunkers

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidWindow  = errors.New("window seconds must be positive")
	ErrInvalidOverlap = errors.New("overlap seconds must be between 0 and the clip window")
)

const (
	tier2WindowDefault  = 90.0
	tier3WindowDefault  = 20.0
	tier3OverlapDefault = 10.0
)

// Segment is one timestamped caption line of a transcript.
type Segment struct {
	Text     string
	Start    float64
	Duration float64
}

// End returns the segment's end time in seconds.
func (s Segment) End() float64 {
	return s.Start + s.Duration
}

// TemporalChunk is one temporal window of transcript text. ParentIndex
// references the enclosing tier-2 window's ordinal position for tier-3
// chunks and is -1 for tier-2 chunks.
type TemporalChunk struct {
	Text        string
	Start       float64
	End         float64
	ParentIndex int
}

// HierarchicalChunker splits a timestamped transcript into contiguous
// ~90s tier-2 windows and overlapping ~20s tier-3 sub-windows.
type HierarchicalChunker struct {
	tier2Window  float64
	tier3Window  float64
	tier3Overlap float64
	logger       zerolog.Logger
}

// NewHierarchicalChunker creates a chunker with window sizes taken from
// the environment or their defaults.
func NewHierarchicalChunker() (*HierarchicalChunker, error) {
	return NewHierarchicalChunkerWithWindows(
		getFloatFromEnv("LIBRARIAN_TIER2_WINDOW", tier2WindowDefault),
		getFloatFromEnv("LIBRARIAN_TIER3_WINDOW", tier3WindowDefault),
		getFloatFromEnv("LIBRARIAN_TIER3_OVERLAP", tier3OverlapDefault),
	)
}

// NewHierarchicalChunkerWithWindows creates a chunker with explicit
// window sizes in seconds.
func NewHierarchicalChunkerWithWindows(tier2Window, tier3Window, tier3Overlap float64) (*HierarchicalChunker, error) {
	logger := util.NewLogger(getLogLevelFromEnv())

	if tier2Window <= 0 || tier3Window <= 0 {
		logger.Warn().Msg("window seconds must be positive")
		return nil, ErrInvalidWindow
	}
	if tier3Overlap < 0 || tier3Overlap >= tier3Window {
		logger.Warn().Msg("overlap seconds must be between 0 and the clip window")
		return nil, ErrInvalidOverlap
	}

	return &HierarchicalChunker{
		tier2Window:  tier2Window,
		tier3Window:  tier3Window,
		tier3Overlap: tier3Overlap,
		logger:       logger,
	}, nil
}

// Chunk splits the segments into tier-2 windows and tier-3 sub-windows.
// Every segment lands in exactly one tier-2 window, in order; no segment
// is dropped. An empty segment list yields empty outputs and no error.
func (h *HierarchicalChunker) Chunk(segments []Segment) (tier2, tier3 []TemporalChunk) {
	if len(segments) == 0 {
		return nil, nil
	}

	// Tier 2: accumulate consecutive segments until the running span
	// reaches the window, then close the chunk and restart the window
	// at the closed chunk's end.
	var windows [][]Segment
	var current []Segment
	windowStart := segments[0].Start

	for _, seg := range segments {
		current = append(current, seg)
		if seg.End()-windowStart >= h.tier2Window {
			windows = append(windows, current)
			windowStart = seg.End()
			current = nil
		}
	}
	if len(current) > 0 {
		windows = append(windows, current)
	}

	for parentIdx, window := range windows {
		tier2 = append(tier2, TemporalChunk{
			Text:        joinSegments(window),
			Start:       window[0].Start,
			End:         window[len(window)-1].End(),
			ParentIndex: -1,
		})
		tier3 = append(tier3, h.subChunks(window, parentIdx)...)
	}

	h.logger.Debug().
		Int("segments", len(segments)).
		Int("tier2_chunks", len(tier2)).
		Int("tier3_chunks", len(tier3)).
		Msg("hierarchical chunking complete")
	return tier2, tier3
}

// subChunks re-derives overlapping tier-3 windows from one tier-2
// window's segments, advancing by window minus overlap each step.
func (h *HierarchicalChunker) subChunks(window []Segment, parentIdx int) []TemporalChunk {
	start := window[0].Start
	end := window[len(window)-1].End()
	step := h.tier3Window - h.tier3Overlap

	var chunks []TemporalChunk
	for t := start; t < end; t += step {
		windowEnd := t + h.tier3Window

		var included []Segment
		for _, seg := range window {
			if seg.Start < windowEnd && seg.End() > t {
				included = append(included, seg)
			}
		}
		if len(included) == 0 {
			continue
		}

		chunks = append(chunks, TemporalChunk{
			Text:        joinSegments(included),
			Start:       included[0].Start,
			End:         included[len(included)-1].End(),
			ParentIndex: parentIdx,
		})

		if windowEnd >= end {
			break
		}
	}
	return chunks
}

func joinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}

// getLogLevelFromEnv returns the log level from environment or default.
func getLogLevelFromEnv() zerolog.Level {
	logLevel := os.Getenv("LIBRARIAN_LOG_LEVEL")
	switch strings.ToLower(logLevel) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.ErrorLevel
	}
}

// getIntFromEnv returns an integer from an environment variable or the
// default value.
func getIntFromEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
		return intValue
	}
	return defaultValue
}

// getFloatFromEnv returns a float from an environment variable or the
// default value.
func getFloatFromEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if floatValue, err := strconv.ParseFloat(value, 64); err == nil && floatValue > 0 {
		return floatValue
	}
	return defaultValue
}
