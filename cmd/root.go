package cmd

import (
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "A CLI for the TubeFocus librarian memory engine",
	Long: `librarian indexes YouTube transcripts into a hierarchical chunk store
and answers questions about saved videos, highlights and notes.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger := util.NewLogger(zerolog.ErrorLevel)
		logger.Fatal().Err(err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	logger := util.NewLogger(zerolog.ErrorLevel)
	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("No .env file found, relying on process environment")
	}
}
