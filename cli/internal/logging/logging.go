// ABOUTME: slog setup for the CLI, stderr by default and a file while a TUI runs
// ABOUTME: Keeps log lines from tearing the spinner or interleaving with output

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LogFileName is created under the state directory by ToFile.
const LogFileName = "debug.log"

var (
	mu      sync.Mutex
	logFile *os.File
)

// Level maps the verbose flag to a slog level. Quiet runs only show warnings.
func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// New returns a text logger tagged with component=cli.
func New(w io.Writer, level slog.Level) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("component", "cli")
}

// Init installs the default logger writing to w.
func Init(w io.Writer, verbose bool) {
	slog.SetDefault(New(w, Level(verbose)))
}

// ToFile redirects the default logger to <dir>/debug.log until the returned
// restore func is called, which reinstates logging to stderr.
func ToFile(dir string, verbose bool) (restore func(), err error) {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open debug log: %w", err)
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	// Files always get debug detail.
	slog.SetDefault(New(f, slog.LevelDebug))

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if logFile == f {
			logFile.Close()
			logFile = nil
		}
		Init(os.Stderr, verbose)
	}, nil
}
