// ABOUTME: Viewport abstraction the bridge initializes once per process
// ABOUTME: TerminalViewport reads the terminal size and observes resizes

package host

import (
	"errors"
	"os"
	"sync"

	"golang.org/x/term"
)

// Size is a viewport size in cells.
type Size struct {
	Width  int
	Height int
}

// Viewport is the host surface the bridge prepares on first access.
type Viewport interface {
	// Expand claims the full available area and reports its size.
	Expand() (Size, error)
	// OnResize registers fn to be called with the new size after each resize.
	OnResize(fn func(Size)) error
}

// ErrNotTerminal is returned when the viewport's descriptor is not a terminal.
var ErrNotTerminal = errors.New("not a terminal")

// TerminalViewport is a Viewport backed by a terminal file descriptor.
type TerminalViewport struct {
	fd int

	mu   sync.Mutex
	stop chan struct{}
}

// NewTerminalViewport observes f, typically os.Stdout.
func NewTerminalViewport(f *os.File) *TerminalViewport {
	return &TerminalViewport{fd: int(f.Fd())}
}

// Expand reports the current terminal size.
func (t *TerminalViewport) Expand() (Size, error) {
	if !term.IsTerminal(t.fd) {
		return Size{}, ErrNotTerminal
	}
	w, h, err := term.GetSize(t.fd)
	if err != nil {
		return Size{}, err
	}
	return Size{Width: w, Height: h}, nil
}

// Close stops the resize observer, if one was registered.
func (t *TerminalViewport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}
