// ABOUTME: Root command for the jobboard CLI
// ABOUTME: Handles global flags, logging and session wiring shared by subcommands

package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/codersneeded/miniapp/cli/internal/auth"
	"github.com/codersneeded/miniapp/cli/internal/client"
	"github.com/codersneeded/miniapp/cli/internal/host"
	"github.com/codersneeded/miniapp/cli/internal/logging"
	"github.com/codersneeded/miniapp/cli/internal/session"
)

// Exit codes shared by all commands.
const (
	exitOK       = 0
	exitRejected = 1
	exitError    = 2
)

var (
	apiURL     string
	stateDir   string
	initData   string
	jsonOutput bool
	verbose    bool
	ephemeral  bool
	timeout    time.Duration
)

const defaultAPIURL = "http://localhost:3000/api"

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "jobboard",
	Short: "Terminal client for the job board",
	Long: `jobboard bootstraps an authenticated job board session and issues API
calls through the edge gateway.

Environment Variables:
  JOBBOARD_API_URL     API URL behind the gateway (default: http://localhost:3000/api)
  JOBBOARD_STATE_DIR   Directory holding session.json (default: $XDG_STATE_HOME/jobboard)
  TELEGRAM_INIT_DATA   Signed init data from the Telegram host, if launched by it`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(os.Stderr, verbose)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API URL (overrides JOBBOARD_API_URL)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "Session state directory (overrides JOBBOARD_STATE_DIR)")
	rootCmd.PersistentFlags().StringVar(&initData, "init-data", "", "Telegram init data (overrides TELEGRAM_INIT_DATA)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug detail to stderr")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep the session in memory for this run only")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "Per-request timeout")
}

// GetAPIURL returns the API URL from flag, env, or default (in priority order)
func GetAPIURL() string {
	if apiURL != "" {
		return apiURL
	}
	if envURL := os.Getenv("JOBBOARD_API_URL"); envURL != "" {
		return envURL
	}
	return defaultAPIURL
}

// GetStateDir returns the session directory from flag, env, or the XDG default.
func GetStateDir() string {
	if stateDir != "" {
		return stateDir
	}
	if env := os.Getenv("JOBBOARD_STATE_DIR"); env != "" {
		return env
	}
	return session.DefaultStateDir()
}

// GetInitData returns the host assertion from flag or env.
func GetInitData() string {
	if initData != "" {
		return initData
	}
	return os.Getenv("TELEGRAM_INIT_DATA")
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// sessionRuntime is the process-wide session wiring. Every command builds
// exactly one, so all resolutions in a process share one resolver.
type sessionRuntime struct {
	store    session.Store
	bridge   host.Bridge
	client   *client.Client
	resolver *auth.Resolver
	viewport *host.TerminalViewport
}

func newSessionRuntime() *sessionRuntime {
	rt := &sessionRuntime{}
	if ephemeral {
		rt.store = session.NewMemoryStore()
	} else {
		rt.store = session.NewFileStore(GetStateDir())
	}

	if data := GetInitData(); data != "" {
		rt.viewport = host.NewTerminalViewport(os.Stdout)
		rt.bridge = host.Detect(data, rt.viewport)
	} else {
		rt.bridge = host.Absent()
	}

	rt.client = client.New(GetAPIURL(), rt.store)
	if timeout > 0 {
		rt.client.SetTimeout(timeout)
	}
	rt.resolver = auth.NewResolver(rt.store, rt.bridge, rt.client)
	rt.client.OnUnauthorized(rt.resolver.Invalidate)
	return rt
}

// Close releases the resize observer, if any.
func (rt *sessionRuntime) Close() {
	if rt.viewport != nil {
		rt.viewport.Close()
	}
}
