package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	highlightVideoID   string
	highlightTitle     string
	highlightTimestamp float64
	highlightEnd       float64
	highlightNote      string
	highlightText      string
	highlightLimit     int
)

var highlightsCmd = &cobra.Command{
	Use:   "highlights",
	Short: "Manage video highlights",
	Long:  `Manage user highlights - add, list, show per video and delete.`,
}

var highlightsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Save a highlight for a video",
	Run: func(_ *cobra.Command, _ []string) {
		logger := util.NewLogger(zerolog.InfoLevel)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		stack, err := newStack(embeddingModelDefault)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer stack.Close()

		highlight := &models.Highlight{
			VideoID:    highlightVideoID,
			VideoTitle: highlightTitle,
			Timestamp:  highlightTimestamp,
			Note:       highlightNote,
			Transcript: highlightText,
		}
		if highlightEnd > 0 {
			highlight.EndTimestamp = &highlightEnd
		}

		id, err := stack.highlights.SaveHighlight(ctx, highlight)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to save highlight")
		}
		// Highlight writes must drop the video's cached card.
		stack.cardCache.Invalidate(highlightVideoID)
		logger.Info().Str("highlight_id", id).Msg("Highlight saved successfully")
	},
}

var highlightsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List highlights, newest first",
	Run: func(_ *cobra.Command, _ []string) {
		logger := util.NewLogger(zerolog.InfoLevel)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		stack, err := newStack(embeddingModelDefault)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer stack.Close()

		highlights, err := stack.highlights.ListHighlights(ctx, highlightLimit)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to list highlights")
		}
		if len(highlights) == 0 {
			logger.Info().Msg("No highlights found")
			return
		}

		jsonOutput, err := json.MarshalIndent(highlights, "", "  ")
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to marshal JSON")
		}
		logger.Info().RawJSON("highlights", jsonOutput).Msg("Highlights retrieved successfully")
	},
}

var highlightsVideoCmd = &cobra.Command{
	Use:   "video [video-id]",
	Short: "List a video's highlights ordered by timestamp",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		logger := util.NewLogger(zerolog.InfoLevel)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		stack, err := newStack(embeddingModelDefault)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer stack.Close()

		highlights, err := stack.highlights.GetHighlightsForVideo(ctx, args[0])
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to get highlights")
		}
		if len(highlights) == 0 {
			logger.Info().Str("video_id", args[0]).Msg("No highlights found for video")
			return
		}

		jsonOutput, err := json.MarshalIndent(highlights, "", "  ")
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to marshal JSON")
		}
		logger.Info().RawJSON("highlights", jsonOutput).Str("video_id", args[0]).Msg("Highlights retrieved successfully")
	},
}

var highlightsDeleteCmd = &cobra.Command{
	Use:   "delete [highlight-id]",
	Short: "Delete a highlight",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		logger := util.NewLogger(zerolog.InfoLevel)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		stack, err := newStack(embeddingModelDefault)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer stack.Close()

		if err := stack.highlights.DeleteHighlight(ctx, args[0]); err != nil {
			logger.Fatal().Err(err).Msg("Failed to delete highlight")
		}
		logger.Info().Str("highlight_id", args[0]).Msg("Highlight deleted successfully")
	},
}

func init() {
	rootCmd.AddCommand(highlightsCmd)
	highlightsCmd.AddCommand(highlightsAddCmd)
	highlightsCmd.AddCommand(highlightsListCmd)
	highlightsCmd.AddCommand(highlightsVideoCmd)
	highlightsCmd.AddCommand(highlightsDeleteCmd)

	highlightsAddCmd.Flags().StringVar(&highlightVideoID, "video-id", "", "Video id (required)")
	highlightsAddCmd.Flags().StringVar(&highlightTitle, "title", "", "Video title")
	highlightsAddCmd.Flags().Float64Var(&highlightTimestamp, "timestamp", 0, "Highlight timestamp in seconds")
	highlightsAddCmd.Flags().Float64Var(&highlightEnd, "end", 0, "Optional end timestamp in seconds")
	highlightsAddCmd.Flags().StringVar(&highlightNote, "note", "", "User note for the highlight")
	highlightsAddCmd.Flags().StringVar(&highlightText, "transcript", "", "Transcript excerpt for the highlight")
	highlightsListCmd.Flags().IntVarP(&highlightLimit, "limit", "n", 50, "Maximum highlights to return")

	if err := highlightsAddCmd.MarkFlagRequired("video-id"); err != nil {
		return
	}
}
