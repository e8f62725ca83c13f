// Package cli implements the minex command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "minex",
	Short: "minex — mining-task coordination service",
	Long: `minex coordinates mining tasks between Miners, Brokers, and Minters.
Each task is a persistent, message-addressed resource driven through its
lifecycle by permission-gated actions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
