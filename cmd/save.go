package cmd

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/tubefocus/librarian-go/internal/librarian/chunkers"
	"github.com/tubefocus/librarian-go/internal/librarian/services"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	saveVideoID        string
	saveTitle          string
	saveDescription    string
	saveURL            string
	saveGoal           string
	saveScore          float64
	saveTranscriptFile string
	saveSegmentsFile   string
	saveSummary        string
	saveModel          string
	saveTimeout        time.Duration
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a video into the library",
	Long: `Save a video into the library, indexing its transcript when one is
available.

Examples:
  # Save with a timestamped transcript (JSON array of {text,start,duration})
  librarian save --video-id dQw4w9WgXcQ --title "Raft Explained" --segments segments.json

  # Save with a plain transcript file
  librarian save --video-id dQw4w9WgXcQ --title "Raft Explained" --transcript transcript.txt

  # Save a link without a transcript (description required)
  librarian save --video-id dQw4w9WgXcQ --title "Raft Explained" --description "Consensus walkthrough"`,
	Run: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)

	saveCmd.Flags().StringVar(&saveVideoID, "video-id", "", "Video id or URL (required)")
	saveCmd.Flags().StringVar(&saveTitle, "title", "", "Video title")
	saveCmd.Flags().StringVar(&saveDescription, "description", "", "Video description")
	saveCmd.Flags().StringVar(&saveURL, "url", "", "Video URL")
	saveCmd.Flags().StringVar(&saveGoal, "goal", "", "Focus goal this video was saved under")
	saveCmd.Flags().Float64Var(&saveScore, "score", 0, "Relevance score for the goal")
	saveCmd.Flags().StringVar(&saveTranscriptFile, "transcript", "", "Path to a plain-text transcript file")
	saveCmd.Flags().StringVar(&saveSegmentsFile, "segments", "", "Path to a JSON file of timestamped segments")
	saveCmd.Flags().StringVar(&saveSummary, "summary", "", "Save a user-visible summary instead of a transcript")
	saveCmd.Flags().StringVarP(&saveModel, "model", "m", embeddingModelDefault, "Embedding model to use")
	saveCmd.Flags().DurationVar(&saveTimeout, "timeout", 5*time.Minute, "Timeout for the entire operation")

	if err := saveCmd.MarkFlagRequired("video-id"); err != nil {
		return
	}
}

func runSave(_ *cobra.Command, _ []string) {
	logger := util.NewLogger(zerolog.InfoLevel)

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	stack, err := newStack(saveModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer stack.Close()

	if saveSummary != "" {
		result := stack.indexer.SaveVideoSummary(ctx, saveVideoID, saveTitle, saveSummary, saveGoal)
		printSaveResult(logger, result)
		return
	}

	req := services.IndexRequest{
		VideoID:     saveVideoID,
		Title:       saveTitle,
		Goal:        saveGoal,
		Score:       saveScore,
		Description: saveDescription,
		VideoURL:    saveURL,
		Manual:      true,
	}

	if saveTranscriptFile != "" {
		content, err := os.ReadFile(saveTranscriptFile)
		if err != nil {
			logger.Fatal().Err(err).Str("transcript_file", saveTranscriptFile).Msg("Failed to read transcript file")
		}
		req.Transcript = string(content)
	}
	if saveSegmentsFile != "" {
		content, err := os.ReadFile(saveSegmentsFile)
		if err != nil {
			logger.Fatal().Err(err).Str("segments_file", saveSegmentsFile).Msg("Failed to read segments file")
		}
		var segments []chunkers.Segment
		if err := json.Unmarshal(content, &segments); err != nil {
			logger.Fatal().Err(err).Msg("Failed to parse segments JSON")
		}
		req.Segments = segments
	}

	printSaveResult(logger, stack.indexer.SaveVideoItem(ctx, req))
}

func printSaveResult(logger zerolog.Logger, result services.SaveResult) {
	if !result.Success {
		logger.Fatal().Str("message", result.Message).Msg("Save failed")
	}
	logger.Info().
		Str("video_id", result.VideoID).
		Str("save_mode", result.SaveMode).
		Msg("Video saved successfully!")
}
