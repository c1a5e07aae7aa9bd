// Package cli implements the loaddriver command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// NewRootCmd builds the command tree. Each call returns a fresh tree so
// tests can execute commands with their own arguments and writers.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "loaddriver",
		Short:   "Drive a fixed number of virtual users against one HTTP endpoint",
		Version: version,
		Long: `loaddriver runs a constant number of virtual users for a fixed duration.
Each virtual user POSTs to the target endpoint, checks for a 200 response
and pauses before the next iteration. Failed checks are reported in the
summary and never change the exit code.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	return root
}

// Execute runs the root command with os.Args and prints any error to stderr.
// This is called by main.main().
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
