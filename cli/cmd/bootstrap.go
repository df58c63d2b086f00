// ABOUTME: Bootstrap command resolving the session from two independent consumers
// ABOUTME: Shows a spinner on a terminal and verifies both consumers converge

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/codersneeded/miniapp/cli/internal/auth"
	"github.com/codersneeded/miniapp/cli/internal/logging"
	"github.com/codersneeded/miniapp/cli/internal/tui/bootstrap"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Establish a session",
	Long: `Establish an authenticated session, resuming a saved one when it is still valid.

Strategies are tried in order: saved credential, Telegram init data, development
login. If all fail an offline read-only session is used and a warning is shown.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runBootstrap(ctx, os.Stdout, isInteractive())
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
}

// runBootstrap resolves the session from the screen and the provider
// concurrently and returns exit code
func runBootstrap(ctx context.Context, w io.Writer, interactive bool) int {
	rt := newSessionRuntime()
	defer rt.Close()

	provider := make(chan *auth.Outcome, 1)
	go func() {
		provider <- rt.resolver.Resolve(ctx)
	}()

	var screen *auth.Outcome
	if interactive {
		if restore, err := logging.ToFile(GetStateDir(), verbose); err == nil {
			defer restore()
		} else {
			slog.Warn("Debug log unavailable", "error", err)
		}
		m, err := bootstrap.Run(ctx, rt.resolver, w)
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
		screen = m.Outcome()
	} else {
		screen = rt.resolver.Resolve(ctx)
	}

	var shared *auth.Outcome
	select {
	case shared = <-provider:
	case <-ctx.Done():
	}

	if !screen.Authenticated() || !shared.Authenticated() {
		fmt.Fprintln(w, "Error: session resolution canceled")
		return exitError
	}

	converged := screen == shared
	if !converged {
		slog.Error("Session consumers diverged", "screen", screen.Strategy, "provider", shared.Strategy)
	}

	switch {
	case IsJSONOutput():
		report := newOutcomeReport(screen)
		report.Converged = &converged
		report.Resolutions = rt.resolver.Runs()
		fmt.Fprintln(w, formatJSON(report))
	case !interactive:
		fmt.Fprintln(w, formatOutcomeHuman(screen))
	}

	if !converged {
		return exitError
	}
	return exitOK
}
