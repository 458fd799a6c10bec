package chunkers

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

// makeSegments builds n one-word segments of the given duration each.
func makeSegments(n int, duration float64) []Segment {
	segments := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		segments = append(segments, Segment{
			Text:     fmt.Sprintf("word%d", i),
			Start:    float64(i) * duration,
			Duration: duration,
		})
	}
	return segments
}

func TestNewHierarchicalChunkerWithWindows(t *testing.T) {
	tests := []struct {
		name        string
		tier2       float64
		tier3       float64
		overlap     float64
		expectError bool
		description string
	}{
		{
			name:        "defaults",
			tier2:       90,
			tier3:       20,
			overlap:     10,
			expectError: false,
			description: "should accept the default windows",
		},
		{
			name:        "zero tier2 window",
			tier2:       0,
			tier3:       20,
			overlap:     10,
			expectError: true,
			description: "should reject a non-positive segment window",
		},
		{
			name:        "overlap equal to window",
			tier2:       90,
			tier3:       20,
			overlap:     20,
			expectError: true,
			description: "should reject overlap that never advances",
		},
		{
			name:        "negative overlap",
			tier2:       90,
			tier3:       20,
			overlap:     -1,
			expectError: true,
			description: "should reject negative overlap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHierarchicalChunkerWithWindows(tt.tier2, tt.tier3, tt.overlap)
			if tt.expectError && err == nil {
				t.Errorf("Expected error but got none: %s", tt.description)
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v (%s)", err, tt.description)
			}
		})
	}
}

func TestHierarchicalChunker_Chunk_EmptyInput(t *testing.T) {
	chunker, err := NewHierarchicalChunkerWithWindows(90, 20, 10)
	if err != nil {
		t.Fatalf("Failed to create chunker: %v", err)
	}

	tier2, tier3 := chunker.Chunk(nil)
	if len(tier2) != 0 || len(tier3) != 0 {
		t.Errorf("Expected empty outputs for empty input, got %d/%d chunks", len(tier2), len(tier3))
	}
}

func TestHierarchicalChunker_Chunk_SingleLongSegment(t *testing.T) {
	chunker, err := NewHierarchicalChunkerWithWindows(90, 20, 10)
	if err != nil {
		t.Fatalf("Failed to create chunker: %v", err)
	}

	segments := []Segment{{Text: "one long lecture", Start: 0, Duration: 300}}
	tier2, tier3 := chunker.Chunk(segments)

	if len(tier2) != 1 {
		t.Fatalf("Expected 1 tier-2 chunk for a single segment, got %d", len(tier2))
	}
	if tier2[0].Text != "one long lecture" {
		t.Errorf("Unexpected tier-2 text: %q", tier2[0].Text)
	}
	if tier2[0].Start != 0 || tier2[0].End != 300 {
		t.Errorf("Unexpected tier-2 range: %v-%v", tier2[0].Start, tier2[0].End)
	}
	if len(tier3) == 0 {
		t.Error("Expected at least one tier-3 chunk")
	}
	for _, c := range tier3 {
		if c.ParentIndex != 0 {
			t.Errorf("Expected parent index 0, got %d", c.ParentIndex)
		}
	}
}

func TestHierarchicalChunker_Chunk_Coverage(t *testing.T) {
	// The concatenation of all tier-2 texts must reproduce the
	// concatenation of all segment texts, in order.
	chunker, err := NewHierarchicalChunkerWithWindows(90, 20, 10)
	if err != nil {
		t.Fatalf("Failed to create chunker: %v", err)
	}

	for _, n := range []int{1, 7, 90, 200, 500} {
		segments := makeSegments(n, 1.0)
		tier2, _ := chunker.Chunk(segments)

		var got []string
		for _, c := range tier2 {
			got = append(got, c.Text)
		}
		var want []string
		for _, s := range segments {
			want = append(want, s.Text)
		}
		if strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("Tier-2 concatenation does not reproduce input for %d segments", n)
		}
	}
}

func TestHierarchicalChunker_Chunk_Tier2Windows(t *testing.T) {
	chunker, err := NewHierarchicalChunkerWithWindows(90, 20, 10)
	if err != nil {
		t.Fatalf("Failed to create chunker: %v", err)
	}

	// 200 one-second segments: expect windows closing at ~90s.
	segments := makeSegments(200, 1.0)
	tier2, _ := chunker.Chunk(segments)

	if len(tier2) < 2 {
		t.Fatalf("Expected at least 2 tier-2 chunks for 200s, got %d", len(tier2))
	}
	if span := tier2[0].End - tier2[0].Start; span < 89 || span > 92 {
		t.Errorf("First tier-2 span %v, want ~90s", span)
	}

	// Windows must be contiguous and non-overlapping.
	for i := 1; i < len(tier2); i++ {
		if tier2[i].Start != tier2[i-1].End {
			t.Errorf("Tier-2 window %d starts at %v, previous ends at %v", i, tier2[i].Start, tier2[i-1].End)
		}
	}
}

func TestHierarchicalChunker_Chunk_Tier3Overlap(t *testing.T) {
	chunker, err := NewHierarchicalChunkerWithWindows(90, 20, 10)
	if err != nil {
		t.Fatalf("Failed to create chunker: %v", err)
	}

	segmentDuration := 1.0
	segments := makeSegments(200, segmentDuration)
	_, tier3 := chunker.Chunk(segments)

	if len(tier3) < 2 {
		t.Fatalf("Expected at least 2 tier-3 chunks, got %d", len(tier3))
	}

	// Consecutive tier-3 chunks of the same parent overlap by roughly
	// the configured overlap, within one segment's duration.
	for i := 1; i < len(tier3); i++ {
		if tier3[i].ParentIndex != tier3[i-1].ParentIndex {
			continue
		}
		overlap := tier3[i-1].End - tier3[i].Start
		if math.Abs(overlap-10) > segmentDuration {
			t.Errorf("Chunks %d/%d overlap by %v, want ~10s", i-1, i, overlap)
		}
	}
}

func TestHierarchicalChunker_Chunk_ParentContainment(t *testing.T) {
	chunker, err := NewHierarchicalChunkerWithWindows(90, 20, 10)
	if err != nil {
		t.Fatalf("Failed to create chunker: %v", err)
	}

	segments := makeSegments(300, 1.0)
	tier2, tier3 := chunker.Chunk(segments)

	for _, c := range tier3 {
		if c.ParentIndex < 0 || c.ParentIndex >= len(tier2) {
			t.Fatalf("Tier-3 chunk has out-of-range parent index %d", c.ParentIndex)
		}
		parent := tier2[c.ParentIndex]
		// A tier-3 range must lie within one window of its parent's range.
		if c.Start < parent.Start-90 || c.End > parent.End+90 {
			t.Errorf("Tier-3 range %v-%v escapes parent %v-%v", c.Start, c.End, parent.Start, parent.End)
		}
	}
}

func TestFlatChunker_Chunk(t *testing.T) {
	chunker := NewFlatChunker()

	tests := []struct {
		name        string
		text        string
		minChunks   int
		description string
	}{
		{
			name:        "empty text",
			text:        "",
			minChunks:   0,
			description: "should produce no chunks for empty text",
		},
		{
			name:        "whitespace only",
			text:        "   \n\t  ",
			minChunks:   0,
			description: "should produce no chunks for whitespace",
		},
		{
			name:        "short text",
			text:        "a short transcript",
			minChunks:   1,
			description: "should produce a single chunk for short text",
		},
		{
			name:        "long text",
			text:        strings.Repeat("lorem ipsum dolor sit amet ", 100),
			minChunks:   2,
			description: "should split long text into multiple chunks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunker.Chunk(tt.text)
			if len(chunks) < tt.minChunks {
				t.Errorf("Expected at least %d chunks, got %d (%s)", tt.minChunks, len(chunks), tt.description)
			}
			for i, c := range chunks {
				if len(c) > 600 {
					t.Errorf("Chunk %d exceeds size bound: %d chars", i, len(c))
				}
			}

			// No word may be lost.
			joined := strings.Join(chunks, " ")
			if strings.Join(strings.Fields(tt.text), " ") != joined {
				t.Errorf("Flat chunking lost content for test: %s", tt.description)
			}
		})
	}
}
