// Package main provides the candidate-ranker CLI and HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "candidate-ranker",
	Short:        "Score, filter and rank parsed candidate records",
	Long:         "Candidate Ranker scores parsed resumes against job requirements with Vertex AI and serves filtered, sorted views of the candidate pool over HTTP or as JSON/Excel reports.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config JSON file (default ~/.config/CandidateRanker/config.json)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
