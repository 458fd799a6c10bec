package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	Long:  `Show the total chunk count and the number of distinct indexed videos.`,
	Run: func(_ *cobra.Command, _ []string) {
		logger := util.NewLogger(zerolog.InfoLevel)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		stack, err := newStack(embeddingModelDefault)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer stack.Close()

		stats, err := stack.indexer.Stats(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to compute stats")
		}

		jsonOutput, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to marshal JSON")
		}
		logger.Info().RawJSON("stats", jsonOutput).Msg("Library stats retrieved successfully")
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
