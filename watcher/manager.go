package watcher

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/justin-molloy/onsave/backend"
	"github.com/justin-molloy/onsave/watchfile"
)

const (
	defaultOpenRetries = 20
	defaultRetryDelay  = 100 * time.Millisecond
)

// Manager registers files with the notification backend and replaces stale
// registrations after a watched file has been deleted and recreated.
type Manager struct {
	Backend  backend.Backend
	Registry *watchfile.Registry

	// Open retry policy. A watched file that stays missing past the
	// retries is treated as unrecoverable by the caller.
	OpenRetries int
	RetryDelay  time.Duration
}

func NewManager(b backend.Backend, reg *watchfile.Registry) *Manager {
	return &Manager{
		Backend:     b,
		Registry:    reg,
		OpenRetries: defaultOpenRetries,
		RetryDelay:  defaultRetryDelay,
	}
}

// Watch opens the file read-only and installs a change notification for
// it. Editors that save via rename leave a short window where the path
// does not exist, so the open is retried before giving up.
func (m *Manager) Watch(f *watchfile.File) error {
	fd := -1
	var lastErr error
	for i := 0; i < m.OpenRetries; i++ {
		var err error
		fd, err = unix.Open(f.Path, unix.O_RDONLY, 0)
		if err == nil {
			break
		}
		fd = -1
		lastErr = err
		time.Sleep(m.RetryDelay)
	}
	if fd < 0 {
		return fmt.Errorf("cannot open %q after %d attempts: %w", f.Path, m.OpenRetries, lastErr)
	}

	if err := m.Backend.Register(f, fd); err != nil {
		unix.Close(fd)
		return fmt.Errorf("register %q: %w", f.Path, err)
	}
	slog.Debug("Watching file", "path", f.Path, "handle", f.Handle)
	return nil
}

// Rewatch releases the stale registration and repeats the open+register
// sequence, giving the file a fresh native handle.
func (m *Manager) Rewatch(f *watchfile.File) error {
	if err := m.Backend.Unregister(f); err != nil {
		return err
	}
	return m.Watch(f)
}

func (m *Manager) WatchAll() error {
	for _, f := range m.Registry.Files() {
		if err := m.Watch(f); err != nil {
			return err
		}
	}
	return nil
}
