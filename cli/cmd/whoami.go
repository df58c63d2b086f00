// ABOUTME: Whoami command printing the resolved identity and strategy
// ABOUTME: Resolves the session the same way bootstrap does, without a TUI

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

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runWhoami(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

// runWhoami resolves the session and returns exit code
func runWhoami(ctx context.Context, w io.Writer) int {
	rt := newSessionRuntime()
	defer rt.Close()

	o := rt.resolver.Resolve(ctx)
	if !o.Authenticated() {
		fmt.Fprintln(w, "Error: session resolution canceled")
		return exitError
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(newOutcomeReport(o)))
	} else {
		fmt.Fprintln(w, formatOutcomeHuman(o))
	}
	return exitOK
}
