package chunkers

import (
	"strings"

	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
)

const flatChunkSizeDefault = 500

// FlatChunker splits a non-timestamped transcript into fixed-size
// character windows. This is the degraded mode for transcripts without
// per-segment timestamps; the resulting chunks carry no time ranges.
type FlatChunker struct {
	chunkSize int
	logger    zerolog.Logger
}

// NewFlatChunker creates a flat chunker with the chunk size taken from
// the environment or its default.
func NewFlatChunker() *FlatChunker {
	return &FlatChunker{
		chunkSize: getIntFromEnv("LIBRARIAN_FLAT_CHUNK_SIZE", flatChunkSizeDefault),
		logger:    util.NewLogger(getLogLevelFromEnv()),
	}
}

// Chunk splits text into windows of roughly chunkSize characters,
// breaking on word boundaries. Empty or whitespace-only text yields no
// chunks.
func (f *FlatChunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var builder strings.Builder
	for _, word := range words {
		if builder.Len() > 0 && builder.Len()+len(word)+1 > f.chunkSize {
			chunks = append(chunks, builder.String())
			builder.Reset()
		}
		if builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(word)
	}
	if builder.Len() > 0 {
		chunks = append(chunks, builder.String())
	}

	f.logger.Debug().Int("chunks", len(chunks)).Msg("flat chunking complete")
	return chunks
}
