package cmd

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var videosRecentCount int

var videosCmd = &cobra.Command{
	Use:   "videos",
	Short: "Manage saved videos",
	Long:  `Manage saved videos in the library - list, get, recent and delete.`,
}

var videosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved videos",
	Run: func(_ *cobra.Command, _ []string) {
		logger := util.NewLogger(zerolog.InfoLevel)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		stack, err := newStack(embeddingModelDefault)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer stack.Close()

		videos, err := stack.indexer.ListSavedVideos(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to list saved videos")
		}
		if len(videos) == 0 {
			logger.Info().Msg("No saved videos found")
			return
		}

		jsonOutput, err := json.MarshalIndent(videos, "", "  ")
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to marshal JSON")
		}
		logger.Info().RawJSON("videos", jsonOutput).Msg("Saved videos retrieved successfully")
	},
}

var videosGetCmd = &cobra.Command{
	Use:   "get [video-id]",
	Short: "Get a saved video with its reassembled transcript",
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

		detail, err := stack.indexer.GetVideoByID(ctx, args[0])
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to get video")
		}
		if detail == nil {
			logger.Error().Str("video_id", args[0]).Msg("Video not found")
			os.Exit(1)
		}

		jsonOutput, err := json.MarshalIndent(detail, "", "  ")
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to marshal JSON")
		}
		logger.Info().RawJSON("video", jsonOutput).Str("video_id", args[0]).Msg("Video retrieved successfully")
	},
}

var videosRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recently saved videos",
	Run: func(_ *cobra.Command, _ []string) {
		logger := util.NewLogger(zerolog.InfoLevel)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		stack, err := newStack(embeddingModelDefault)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer stack.Close()

		videos, err := stack.indexer.GetRecentVideos(ctx, videosRecentCount)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to list recent videos")
		}

		jsonOutput, err := json.MarshalIndent(videos, "", "  ")
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to marshal JSON")
		}
		logger.Info().RawJSON("videos", jsonOutput).Msg("Recent videos retrieved successfully")
	},
}

var videosDeleteCmd = &cobra.Command{
	Use:   "delete [video-id]",
	Short: "Delete a video and all of its chunks",
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

		removed, err := stack.indexer.DeleteVideo(ctx, args[0])
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to delete video")
		}
		logger.Info().Str("video_id", args[0]).Int("chunk_count", removed).Msg("Video deleted successfully")
	},
}

func init() {
	rootCmd.AddCommand(videosCmd)
	videosCmd.AddCommand(videosListCmd)
	videosCmd.AddCommand(videosGetCmd)
	videosCmd.AddCommand(videosRecentCmd)
	videosCmd.AddCommand(videosDeleteCmd)

	videosRecentCmd.Flags().IntVarP(&videosRecentCount, "count", "n", 5, "Number of videos to return")
}
