// Package fifoout delivers changed filenames over a named pipe for a
// downstream consumer instead of spawning a command.
package fifoout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/justin-molloy/onsave/watchfile"
)

// Target is a named pipe that receives one line per qualifying change.
type Target struct {
	Path string

	mu   sync.Mutex
	file *os.File
}

func New(path string) *Target {
	return &Target{Path: path}
}

// Create makes the pipe with owner-only permissions and opens it for
// writing. The open blocks until a reader attaches to the other end;
// callers that need to abandon the wait run Create on its own goroutine
// and call Close from theirs.
func (t *Target) Create() error {
	if err := unix.Mkfifo(t.Path, 0o600); err != nil {
		return fmt.Errorf("mkfifo %q: %w", t.Path, err)
	}
	f, err := os.OpenFile(t.Path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open fifo %q: %w", t.Path, err)
	}
	t.mu.Lock()
	t.file = f
	t.mu.Unlock()
	return nil
}

func (t *Target) Deliver(f *watchfile.File) error {
	return t.WriteName(f.Path)
}

// WriteName writes the path followed by a newline. A slow or absent
// reader blocks the write; backpressure is the OS pipe buffer.
func (t *Target) WriteName(name string) error {
	t.mu.Lock()
	f := t.file
	t.mu.Unlock()
	if f == nil {
		return fmt.Errorf("fifo %q is not open", t.Path)
	}
	if _, err := f.WriteString(name + "\n"); err != nil {
		return fmt.Errorf("write fifo %q: %w", t.Path, err)
	}
	// Best effort; pipe writes are already unbuffered and some kernels
	// reject fsync on a fifo.
	_ = f.Sync()
	return nil
}

func (t *Target) PerEvent() bool {
	return true
}

// Close closes the write end and unlinks the pipe from the filesystem.
// It is safe to call while Create is still blocked waiting for a reader;
// the pipe may not exist yet in that case.
func (t *Target) Close() error {
	t.mu.Lock()
	f := t.file
	t.file = nil
	t.mu.Unlock()

	var closeErr error
	if f != nil {
		closeErr = f.Close()
	}
	if err := os.Remove(t.Path); err != nil && !os.IsNotExist(err) && closeErr == nil {
		closeErr = err
	}
	return closeErr
}
