package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "0.1.0"
	gitCommit = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "group-roster",
		Short: "Collect the complete member list of a group",
		Long: `group-roster walks the paginated groups API and returns every member of a
group exactly once, sorted by user id.

Connectivity failures and rate limits are waited out and the same page is
requested again. With --redis, progress is checkpointed so that an interrupted
run resumes where it stopped.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, gitCommit),
	}

	rootCmd.SetVersionTemplate(`group-roster {{.Version}}
Go Version: ` + runtime.Version() + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(newFetchCmd())
	return rootCmd
}
