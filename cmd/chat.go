package cmd

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/internal/librarian/services"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	chatFocus       string
	chatHistoryFile string
	chatModel       string
	chatTimeout     time.Duration
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask the librarian about your saved videos",
	Long: `Ask a question over the library. The librarian retrieves relevant
transcript passages, builds source cards and generates an answer.

Examples:
  librarian chat "what did the raft video say about leader election?"
  librarian chat "do i have any saved videos about git?"
  librarian chat "summarize the caching video" --focus dQw4w9WgXcQ`,
	Args: cobra.ExactArgs(1),
	Run:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatFocus, "focus", "", "Focus the conversation on one video id")
	chatCmd.Flags().StringVar(&chatHistoryFile, "history", "", "Path to a JSON file of prior chat messages")
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", embeddingModelDefault, "Embedding model to use")
	chatCmd.Flags().DurationVar(&chatTimeout, "timeout", 2*time.Minute, "Timeout for the entire operation")
}

func runChat(_ *cobra.Command, args []string) {
	logger := util.NewLogger(zerolog.InfoLevel)

	ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
	defer cancel()

	stack, err := newStack(chatModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer stack.Close()

	req := services.ChatRequest{Query: args[0], FocusVideoID: chatFocus}
	if chatHistoryFile != "" {
		content, err := os.ReadFile(chatHistoryFile)
		if err != nil {
			logger.Fatal().Err(err).Str("history_file", chatHistoryFile).Msg("Failed to read history file")
		}
		var history []models.ChatMessage
		if err := json.Unmarshal(content, &history); err != nil {
			logger.Fatal().Err(err).Msg("Failed to parse history JSON")
		}
		req.History = history
	}

	response := stack.chat.Chat(ctx, req)

	jsonOutput, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to marshal JSON")
	}
	logger.Info().RawJSON("response", jsonOutput).Msg("Chat completed")
}
