// ABOUTME: Session command showing the persisted session without network access
// ABOUTME: Reports the stored identity and credential expiry

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/codersneeded/miniapp/cli/internal/host"
	"github.com/codersneeded/miniapp/cli/internal/models"
	"github.com/codersneeded/miniapp/cli/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the saved session",
	Long: `Show the session saved on disk without contacting the backend.

Exits 1 when no session is saved.`,
	Run: func(cmd *cobra.Command, args []string) {
		exitCode := runSession(os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}

// sessionReport is the JSON shape of the saved session.
type sessionReport struct {
	Path       string           `json:"path"`
	Saved      bool             `json:"saved"`
	Identity   *models.Identity `json:"identity,omitempty"`
	Credential string           `json:"credential,omitempty"`
	ExpiresAt  *time.Time       `json:"credential_expires_at,omitempty"`
	Expired    bool             `json:"expired,omitempty"`
	HostUser   string           `json:"host_user,omitempty"`
}

// runSession reads the saved session and returns exit code
func runSession(w io.Writer) int {
	store := session.NewFileStore(GetStateDir())
	report := sessionReport{Path: store.Path()}

	if data := GetInitData(); data != "" {
		if u, ok := host.NewWebApp(data, nil).UnsafeUser(); ok {
			report.HostUser = u.DisplayName()
		}
	}

	rec, err := store.Load()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		if errors.Is(err, session.ErrCorruptState) {
			fmt.Fprintln(w, "The damaged session was removed; run bootstrap to sign in again.")
		}
		return exitError
	}

	if rec != nil {
		report.Saved = true
		report.Identity = &rec.Identity
		report.Credential = rec.Credential.Redacted()
		if exp, ok := rec.Credential.ExpiresAt(); ok {
			report.ExpiresAt = &exp
			report.Expired = time.Now().After(exp)
		}
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(report))
	} else {
		fmt.Fprintln(w, formatSessionHuman(report))
	}

	if !report.Saved {
		return exitRejected
	}
	return exitOK
}

// formatSessionHuman formats the saved session for human readability
func formatSessionHuman(r sessionReport) string {
	out := fmt.Sprintf("File:       %s\n", r.Path)
	if r.HostUser != "" {
		out += fmt.Sprintf("Host user:  %s (unverified)\n", r.HostUser)
	}
	if !r.Saved {
		return out + "No saved session."
	}
	out += fmt.Sprintf("User:       %s\n", r.Identity.DisplayName())
	out += fmt.Sprintf("Role:       %s\n", r.Identity.Role)
	out += fmt.Sprintf("Credential: %s", r.Credential)
	if r.ExpiresAt != nil {
		state := "valid until"
		if r.Expired {
			state = "expired"
		}
		out += fmt.Sprintf("\nExpiry:     %s %s", state, r.ExpiresAt.Local().Format(time.RFC1123))
	}
	return out
}
