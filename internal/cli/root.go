package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath string
	debug  bool
)

var rootCmd = &cobra.Command{
	Use:   "vity-loop",
	Short: "Vity Referral Loop - a client-side growth experiment engine",
	Long: `Vity Referral Loop watches a chat session for sent messages, decides when
to present a referral prompt, assigns one of four message variants, and
records behavioral events for later analysis.

Running without a subcommand starts the interactive simulator (same as
'vity-loop simulate').`,
	RunE: runSimulate, // Default action is the interactive simulator
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("VITY_DB_PATH", "./vity-loop.db"), "database path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", os.Getenv("VITY_DEBUG") == "true", "verbose logging")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
