// ABOUTME: Logout command ending the server session and clearing the saved one
// ABOUTME: Asks for confirmation on a terminal unless --yes is given

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/codersneeded/miniapp/cli/internal/session"
)

var logoutYes bool

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		confirm := confirmLogout
		if logoutYes || !isInteractive() {
			confirm = nil
		}
		exitCode := runLogout(ctx, os.Stdout, confirm)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	logoutCmd.Flags().BoolVarP(&logoutYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(logoutCmd)
}

func confirmLogout(who string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Sign out %s?", who)).
		Description("The saved session will be removed from this machine.").
		Affirmative("Sign out").
		Negative("Cancel").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// runLogout signs out and returns exit code. confirm may be nil to skip the prompt.
func runLogout(ctx context.Context, w io.Writer, confirm func(who string) (bool, error)) int {
	rt := newSessionRuntime()
	defer rt.Close()

	rec, err := rt.store.Load()
	if err != nil && !errors.Is(err, session.ErrCorruptState) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	if rec == nil {
		fmt.Fprintln(w, "Not signed in.")
		return exitOK
	}

	if confirm != nil {
		ok, err := confirm(rec.Identity.DisplayName())
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
		if !ok {
			fmt.Fprintln(w, "Canceled.")
			return exitRejected
		}
	}

	err = rt.client.Logout(ctx)
	rt.resolver.Invalidate()
	if err != nil {
		// The local session is gone either way.
		fmt.Fprintf(w, "Signed out locally; server logout failed: %v\n", err)
		return exitOK
	}
	fmt.Fprintln(w, "Signed out.")
	return exitOK
}
