// Package main implements the quizify CLI: the HTTP server and one-shot quiz generation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/challasaiteja/gemini-quizify/internal/config"
	"github.com/challasaiteja/gemini-quizify/internal/version"
)

var (
	// env selects config/{env}.yaml
	env string
	// logLevel overrides the configured log level
	logLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "quizify",
	Short: "Generate multiple-choice quizzes from your documents",
	Long: `quizify chunks and embeds uploaded documents, retrieves the passages relevant
to a topic and asks a language model for unique multiple-choice questions.

Configuration is read from config/{env}.yaml; ${VAR} references are expanded
from the environment.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "configuration environment (local, dev, prod)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.SetVersionTemplate(version.String() + "\n")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd prints build metadata
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the quizify version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}
