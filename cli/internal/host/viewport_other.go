//go:build !unix

package host

// OnResize is not supported without SIGWINCH; the initial size stays current.
func (t *TerminalViewport) OnResize(fn func(Size)) error {
	_, err := t.Expand()
	return err
}
