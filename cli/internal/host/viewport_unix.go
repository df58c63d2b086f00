//go:build unix

package host

import (
	"os"
	"os/signal"
	"syscall"
)

// OnResize calls fn with the new size on every SIGWINCH until Close.
func (t *TerminalViewport) OnResize(fn func(Size)) error {
	if _, err := t.Expand(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return nil
	}
	stop := make(chan struct{})
	t.stop = stop

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGWINCH)
	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-stop:
				return
			case <-sigs:
				if size, err := t.Expand(); err == nil {
					fn(size)
				}
			}
		}
	}()
	return nil
}
