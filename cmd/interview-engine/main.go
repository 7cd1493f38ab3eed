package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time.
var version = "(devel)"

// logLevel is raised or lowered once the configuration is loaded
var logLevel = new(slog.LevelVar)

var rootCmd = &cobra.Command{
	Use:   "interview-engine",
	Short: "Mock technical interview backend",
	Long:  "interview-engine generates interview questions with an LLM, runs timed interview sessions and scores the answers.",
	RunE:  runServe,
	// errors are logged by main
	SilenceErrors: true,
	SilenceUsage:  true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("interview-engine", version)
	},
}

func init() {
	// serving is the default command, so its flags live on the root
	rootCmd.PersistentFlags().Bool("skip-migrations", false, "Do not apply pending migrations on startup")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("interview-engine failed", "error", err)
		os.Exit(1)
	}
}
