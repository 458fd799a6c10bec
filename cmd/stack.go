package cmd

import (
	"os"

	"github.com/tubefocus/librarian-go/internal/librarian/cache"
	"github.com/tubefocus/librarian-go/internal/librarian/embedders"
	"github.com/tubefocus/librarian-go/internal/librarian/generators"
	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
	"github.com/tubefocus/librarian-go/internal/librarian/repository"
	"github.com/tubefocus/librarian-go/internal/librarian/services"
	"github.com/tubefocus/librarian-go/pkg/db"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
)

const (
	embeddingModelDefault  = "text-embedding-004"
	generationModelDefault = "gemini-2.0-flash"
)

// librarianStack wires the full service graph for a command invocation.
type librarianStack struct {
	database   *db.DB
	store      interfaces.ChunkStore
	highlights interfaces.HighlightStore
	indexer    *services.Indexer
	retriever  *services.Retriever
	chat       *services.ChatService
	embedCache *cache.EmbeddingCache
	cardCache  *cache.SourceCardCache
}

// newStack connects to the database and builds the services. A missing
// embedding or generation credential degrades the corresponding
// capability instead of failing; the commands surface that in their
// output.
func newStack(embeddingModel string) (*librarianStack, error) {
	logger := util.NewLogger(zerolog.ErrorLevel)

	database, err := db.NewConnection()
	if err != nil {
		return nil, err
	}

	store := repository.NewChunkRepository(database)
	highlights := repository.NewHighlightRepository(database)

	embedder := buildEmbedder(embeddingModel, logger)
	generator := buildGenerator(logger)

	embedCache := cache.NewEmbeddingCache()
	cardCache := cache.NewSourceCardCache()

	indexer, err := services.NewIndexer(store, embedder, generator, embedCache, cardCache)
	if err != nil {
		database.Close()
		return nil, err
	}
	retriever := services.NewRetriever(store, embedder, embedCache)
	cards := services.NewCardBuilder(store, highlights, cardCache)
	inventory := services.NewInventoryResponder(highlights, cards)
	focus := services.NewFocusInferencer()
	chat := services.NewChatService(retriever, cards, inventory, focus, indexer, generator)

	return &librarianStack{
		database:   database,
		store:      store,
		highlights: highlights,
		indexer:    indexer,
		retriever:  retriever,
		chat:       chat,
		embedCache: embedCache,
		cardCache:  cardCache,
	}, nil
}

func (s *librarianStack) Close() {
	if err := s.database.Close(); err != nil {
		logger := util.NewLogger(zerolog.ErrorLevel)
		logger.Error().Err(err).Msg("Failed to close database connection")
	}
}

// buildEmbedder picks the provider from the model name. Returns nil when
// the credential is missing; retrieval then degrades to lexical search.
func buildEmbedder(model string, logger zerolog.Logger) interfaces.Embedder {
	switch model {
	case "text-embedding-004", "embedding-001":
		embedder, err := embedders.NewGeminiEmbedder(model)
		if err != nil {
			logger.Warn().Err(err).Msg("Gemini embedder unavailable, continuing without embeddings")
			return nil
		}
		return embedder
	case "text-embedding-3-small", "text-embedding-3-large", "text-embedding-ada-002":
		embedder, err := embedders.NewOpenAIEmbedder(model)
		if err != nil {
			logger.Warn().Err(err).Msg("OpenAI embedder unavailable, continuing without embeddings")
			return nil
		}
		return embedder
	case "togethercomputer/m2-bert-80M-8k-retrieval", "togethercomputer/m2-bert-80M-32k-retrieval":
		embedder, err := embedders.NewTogetherAIEmbedder(model)
		if err != nil {
			logger.Warn().Err(err).Msg("Together AI embedder unavailable, continuing without embeddings")
			return nil
		}
		return embedder
	default:
		logger.Warn().Str("model", model).Msg("Unsupported embedding model, continuing without embeddings")
		return nil
	}
}

// buildGenerator returns the Gemini generator, or nil without a key; the
// chat orchestrator then answers in its degraded mode.
func buildGenerator(logger zerolog.Logger) interfaces.Generator {
	model := os.Getenv("LIBRARIAN_GENERATION_MODEL")
	if model == "" {
		model = generationModelDefault
	}
	generator, err := generators.NewGeminiGenerator(model)
	if err != nil {
		logger.Warn().Err(err).Msg("Gemini generator unavailable, chat will degrade to source listings")
		return nil
	}
	return generator
}
