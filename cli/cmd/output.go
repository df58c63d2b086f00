// ABOUTME: Shared formatting of session outcomes for human and JSON output
// ABOUTME: Used by bootstrap, whoami and session commands

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/codersneeded/miniapp/cli/internal/auth"
	"github.com/codersneeded/miniapp/cli/internal/models"
)

const emergencyWarning = "Could not sign in; continuing with an offline read-only session"

// outcomeReport is the JSON shape of a resolved session.
type outcomeReport struct {
	Kind        auth.Kind       `json:"kind"`
	Strategy    auth.Strategy   `json:"strategy"`
	Identity    models.Identity `json:"identity"`
	ExpiresAt   *time.Time      `json:"credential_expires_at,omitempty"`
	Converged   *bool           `json:"converged,omitempty"`
	Resolutions int64           `json:"resolutions,omitempty"`
	Warning     string          `json:"warning,omitempty"`
}

func newOutcomeReport(o *auth.Outcome) outcomeReport {
	r := outcomeReport{Kind: o.Kind, Strategy: o.Strategy, Identity: o.Identity}
	if exp, ok := o.Credential.ExpiresAt(); ok {
		r.ExpiresAt = &exp
	}
	if o.Kind == auth.KindEmergencyFallback {
		r.Warning = emergencyWarning
	}
	return r
}

// formatOutcomeHuman formats a session outcome for human readability
func formatOutcomeHuman(o *auth.Outcome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User:     %s\n", o.Identity.DisplayName())
	fmt.Fprintf(&sb, "ID:       %d\n", o.Identity.ID)
	fmt.Fprintf(&sb, "Role:     %s\n", o.Identity.Role)
	fmt.Fprintf(&sb, "Session:  %s (%s)", o.Kind, o.Strategy)
	if exp, ok := o.Credential.ExpiresAt(); ok {
		fmt.Fprintf(&sb, "\nExpires:  %s", exp.Local().Format(time.RFC1123))
	}
	if o.Kind == auth.KindEmergencyFallback {
		fmt.Fprintf(&sb, "\nWarning:  %s", emergencyWarning)
	}
	return sb.String()
}

func formatJSON(v interface{}) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}

// isInteractive reports whether the TUI may take over the terminal.
func isInteractive() bool {
	return !IsJSONOutput() && term.IsTerminal(int(os.Stdout.Fd()))
}
