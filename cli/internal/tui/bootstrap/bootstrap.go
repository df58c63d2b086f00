// ABOUTME: Bootstrap screen showing session resolution progress with a spinner
// ABOUTME: Quits once the shared resolution reaches a terminal outcome

package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/codersneeded/miniapp/cli/internal/auth"
	"github.com/codersneeded/miniapp/cli/internal/tui/styles"
)

// Resolver is the part of *auth.Resolver the screen drives.
type Resolver interface {
	Resolve(ctx context.Context) *auth.Outcome
	State() auth.State
}

// resolvedMsg is sent when the resolution finishes
type resolvedMsg struct {
	outcome *auth.Outcome
}

// Model is the bootstrap screen.
type Model struct {
	ctx      context.Context
	resolver Resolver
	spinner  spinner.Model
	state    auth.State
	outcome  *auth.Outcome
	canceled bool
}

// New creates the screen. Resolution starts on Init.
func New(ctx context.Context, resolver Resolver) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner
	return &Model{ctx: ctx, resolver: resolver, spinner: s, state: resolver.State()}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.resolve())
}

func (m *Model) resolve() tea.Cmd {
	return func() tea.Msg {
		return resolvedMsg{outcome: m.resolver.Resolve(m.ctx)}
	}
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.canceled = true
			return m, tea.Quit
		}
		return m, nil

	case resolvedMsg:
		m.outcome = msg.outcome
		m.state = m.resolver.State()
		return m, tea.Quit

	case spinner.TickMsg:
		m.state = m.resolver.State()
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m *Model) View() string {
	if m.outcome != nil {
		return RenderOutcome(m.outcome) + "\n"
	}
	if m.canceled {
		return styles.Subtitle.Render("Canceled.") + "\n"
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), styles.Subtitle.Render(stateLabel(m.state)))
}

// Outcome returns the resolved outcome, or nil if the screen was canceled first.
func (m *Model) Outcome() *auth.Outcome {
	return m.outcome
}

// Canceled reports whether the user quit before resolution finished.
func (m *Model) Canceled() bool {
	return m.canceled
}

func stateLabel(s auth.State) string {
	switch s {
	case auth.Idle:
		return "Starting session..."
	case auth.CheckingExistingCredential:
		return "Checking saved session..."
	case auth.AttemptingPlatformAuth:
		return "Signing in with Telegram..."
	case auth.AttemptingLocalFallbackAuth:
		return "Signing in with development login..."
	default:
		return "Finishing..."
	}
}

// RenderOutcome draws the identity panel for a terminal outcome.
func RenderOutcome(o *auth.Outcome) string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render("Signed in"))
	sb.WriteString("\n")

	rows := []string{
		styles.Field("User", o.Identity.DisplayName()),
		styles.Field("Role", string(o.Identity.Role)),
		styles.Field("Strategy", styles.Strategy(string(o.Strategy))),
	}
	if exp, ok := o.Credential.ExpiresAt(); ok {
		rows = append(rows, styles.Field("Expires", exp.Local().Format("2006-01-02 15:04")))
	}
	sb.WriteString(styles.Panel.Render(strings.Join(rows, "\n")))

	if o.Kind == auth.KindEmergencyFallback {
		sb.WriteString("\n")
		sb.WriteString(styles.WarningPanel.Render(
			styles.StatusWarning.Render("Offline session") + "\n" +
				"Could not sign in. Browsing is available, changes are disabled."))
	}
	return sb.String()
}

// Run shows the screen on out until the resolution completes or the user quits.
func Run(ctx context.Context, resolver Resolver, out io.Writer) (*Model, error) {
	m := New(ctx, resolver)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(out))
	if _, err := p.Run(); err != nil {
		return m, err
	}
	return m, nil
}
