package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	searchResults int
	searchFocus   string
	searchModel   string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the library",
	Long: `Search saved transcripts with the cascading multi-tier retrieval.

Examples:
  librarian search "how does kv caching work"
  librarian search "rebase workflow" --focus dQw4w9WgXcQ --results 10`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVarP(&searchResults, "results", "n", 5, "Number of results to return")
	searchCmd.Flags().StringVar(&searchFocus, "focus", "", "Restrict the search to one video id")
	searchCmd.Flags().StringVarP(&searchModel, "model", "m", embeddingModelDefault, "Embedding model to use")
}

func runSearch(_ *cobra.Command, args []string) {
	logger := util.NewLogger(zerolog.InfoLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	stack, err := newStack(searchModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer stack.Close()

	response := stack.retriever.Search(ctx, args[0], searchResults, searchFocus)

	jsonOutput, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to marshal JSON")
	}
	logger.Info().RawJSON("response", jsonOutput).Msg("Search completed")
}
