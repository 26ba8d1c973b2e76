// Package cmd is the conflict-marker command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "conflict-marker",
	Short: "Label open pull requests that have merge conflicts",
	Long: `conflict-marker runs one reconciliation pass over a repository's open pull
requests.

Pull requests that conflict with their base branch get a comment mentioning
the author and the conflict label. Pull requests that no longer conflict lose
the label. Mergeability the platform is still computing is re-fetched a
bounded number of times and otherwise left alone.

Configuration comes from the environment, an optional YAML file (--config)
and flags, in increasing order of precedence. Run "conflict-marker env" for
the environment variables.

Exit codes:
  0  success, or another run holds the lock
  1  the run failed
  2  configuration or usage error`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runReconcile,
}

func init() {
	addRunFlags(rootCmd.PersistentFlags())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, os.Args[1:])
}

func execute(ctx context.Context, args []string) int {
	// cobra reads os.Args when given nil
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !isSilent(err) {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return ExitCode(err)
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if ExitCode(err) == ExitUsage {
		fmt.Fprintln(w, `Run "conflict-marker --help" for usage.`)
	}
}
