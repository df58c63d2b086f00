// ABOUTME: Api command issuing arbitrary calls through the authenticated client
// ABOUTME: Builds JSON, text or multipart bodies from flags

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codersneeded/miniapp/cli/internal/auth"
	"github.com/codersneeded/miniapp/cli/internal/client"
)

// apiOptions holds the body and header flags of the api command.
type apiOptions struct {
	data    string
	fields  []string
	files   []string
	headers []string
}

var apiOpts apiOptions

var apiCmd = &cobra.Command{
	Use:   "api METHOD PATH",
	Short: "Call the job board API",
	Long: `Call the job board API with the current session.

PATH is relative to the API URL; a trailing slash is added automatically.
--field values are sent as a JSON object, or as multipart form fields when
--file is also given.

Exits 1 when the backend rejects the call.`,
	Example: `  jobboard api GET jobs
  jobboard api POST jobs --field title="Go engineer" --field location=Remote
  jobboard api POST applications --field job_id=3 --file resume=./cv.pdf`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runAPI(ctx, os.Stdout, args[0], args[1], apiOpts)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	apiCmd.Flags().StringVarP(&apiOpts.data, "data", "d", "", "Raw request body; sent as JSON when it parses as JSON")
	apiCmd.Flags().StringArrayVarP(&apiOpts.fields, "field", "F", nil, "Body field as key=value (repeatable)")
	apiCmd.Flags().StringArrayVar(&apiOpts.files, "file", nil, "File upload as field=path (repeatable)")
	apiCmd.Flags().StringArrayVarP(&apiOpts.headers, "header", "H", nil, "Extra header as 'Name: value' (repeatable)")
	rootCmd.AddCommand(apiCmd)
}

var apiMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
}

// runAPI resolves the session, issues the call and returns exit code
func runAPI(ctx context.Context, w io.Writer, method, path string, opts apiOptions) int {
	method = strings.ToUpper(method)
	if !apiMethods[method] {
		fmt.Fprintf(w, "Error: unsupported method %s\n", method)
		return exitError
	}
	body, err := buildBody(opts)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	headers, err := parseHeaders(opts.headers)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}

	rt := newSessionRuntime()
	defer rt.Close()

	o := rt.resolver.Resolve(ctx)
	if err := o.Permits(method); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		if errors.Is(err, auth.ErrReadOnlySession) {
			return exitRejected
		}
		return exitError
	}

	resp, err := rt.client.Request(ctx, method, path, body, headers)
	if errors.Is(err, client.ErrUnauthorized) {
		again := rt.resolver.Resolve(ctx)
		fmt.Fprintf(w, "Error: session expired; signed in again (%s). Retry the request.\n", again.Strategy)
		return exitRejected
	}
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(map[string]interface{}{
			"status": resp.StatusCode,
			"body":   jsonOrString(resp.Body),
		}))
	} else if len(resp.Body) > 0 {
		fmt.Fprintln(w, prettyBody(resp.Body))
	}

	if !resp.OK() {
		if !IsJSONOutput() {
			fmt.Fprintf(w, "Error: %v\n", resp.Err())
		}
		return exitRejected
	}
	return exitOK
}

// buildBody turns the body flags into a value accepted by client.Request.
func buildBody(opts apiOptions) (interface{}, error) {
	if opts.data != "" && (len(opts.fields) > 0 || len(opts.files) > 0) {
		return nil, fmt.Errorf("--data cannot be combined with --field or --file")
	}
	if opts.data != "" {
		if json.Valid([]byte(opts.data)) {
			return json.RawMessage(opts.data), nil
		}
		return opts.data, nil
	}

	if len(opts.files) > 0 {
		form := client.NewMultipart()
		for _, f := range opts.fields {
			k, v, err := splitPair(f, "=")
			if err != nil {
				return nil, err
			}
			form.AddField(k, v)
		}
		for _, f := range opts.files {
			field, path, err := splitPair(f, "=")
			if err != nil {
				return nil, err
			}
			if err := form.AddFilePath(field, path); err != nil {
				return nil, err
			}
		}
		return form, nil
	}

	if len(opts.fields) > 0 {
		obj := make(map[string]string, len(opts.fields))
		for _, f := range opts.fields {
			k, v, err := splitPair(f, "=")
			if err != nil {
				return nil, err
			}
			obj[k] = v
		}
		return obj, nil
	}
	return nil, nil
}

func parseHeaders(raw []string) (http.Header, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	h := make(http.Header)
	for _, line := range raw {
		k, v, err := splitPair(line, ":")
		if err != nil {
			return nil, err
		}
		h.Add(k, v)
	}
	return h, nil
}

func splitPair(s, sep string) (string, string, error) {
	k, v, ok := strings.Cut(s, sep)
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", fmt.Errorf("invalid %q: expected key%svalue", s, sep)
	}
	return k, strings.TrimSpace(v), nil
}

func jsonOrString(body []byte) interface{} {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}

func prettyBody(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err == nil {
		return buf.String()
	}
	return string(body)
}
