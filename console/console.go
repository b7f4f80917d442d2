// Package console attaches to the controlling terminal so a keypress can
// unblock the event wait. Stdin is already consumed by the watch list, so
// the terminal is opened separately via /dev/tty.
package console

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Console is the interactive control stream. Its readiness is multiplexed
// into the event wait; the bytes themselves carry no meaning and are
// discarded.
type Console struct {
	f *os.File
}

// Open returns the control stream, or nil when the process has no
// terminal (stderr is probed since stdin is the watch list).
func Open() *Console {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	f, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
	if err != nil {
		return nil
	}
	if err := unix.SetNonblock(int(f.Fd()), true); err != nil {
		f.Close()
		return nil
	}
	return &Console{f: f}
}

// FD returns the descriptor to multiplex into the event wait, or -1 when
// there is no terminal.
func (c *Console) FD() int {
	if c == nil {
		return -1
	}
	return int(c.f.Fd())
}

// Drain discards pending input so the readiness poll does not fire again.
func (c *Console) Drain() {
	if c == nil {
		return
	}
	var buf [64]byte
	for {
		n, err := unix.Read(int(c.f.Fd()), buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (c *Console) Close() error {
	if c == nil || c.f == nil {
		return nil
	}
	return c.f.Close()
}
