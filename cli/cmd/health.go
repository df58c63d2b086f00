// ABOUTME: Health command for the jobboard CLI
// ABOUTME: Checks the edge gateway and reports its configured backend

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codersneeded/miniapp/cli/internal/client"
	"github.com/codersneeded/miniapp/cli/internal/session"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check gateway connectivity",
	Long:  `Check connectivity to the edge gateway and show which backend it forwards to.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runHealth(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// runHealth executes the health check and returns exit code
func runHealth(ctx context.Context, w io.Writer) int {
	url := GetAPIURL()
	c := client.New(url, session.NewMemoryStore())
	if timeout > 0 {
		c.SetTimeout(timeout)
	}

	resp, err := c.Health(ctx)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatHealthJSON(url, resp))
	} else {
		fmt.Fprintln(w, formatHealthHuman(url, resp))
	}

	if resp.Status != "ok" {
		return exitRejected
	}
	return exitOK
}

// formatHealthHuman formats health response for human readability
func formatHealthHuman(url string, resp *client.HealthResponse) string {
	proxy := "direct"
	if resp.Proxy {
		proxy = "socks5"
	}
	return fmt.Sprintf(`Gateway:   %s
Status:    %s
Backend:   %s
Transport: %s`, url, resp.Status, resp.Backend, proxy)
}

// formatHealthJSON formats health response as JSON
func formatHealthJSON(url string, resp *client.HealthResponse) string {
	output := map[string]interface{}{
		"gateway": url,
		"status":  resp.Status,
		"backend": resp.Backend,
		"proxy":   resp.Proxy,
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	return string(data)
}
