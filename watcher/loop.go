package watcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/justin-molloy/onsave/backend"
	"github.com/justin-molloy/onsave/watchfile"
)

// eventBufSize bounds how many events one wait call can return.
const eventBufSize = 32

// A Deliverer is invoked when a watched file changes. PerEvent reports
// whether every qualifying event in a batch gets its own delivery (FIFO
// mode) or only the first one does (command mode).
type Deliverer interface {
	Deliver(f *watchfile.File) error
	PerEvent() bool
}

// A Drainer consumes pending bytes from the interactive control stream
// after its readiness has woken up the wait call.
type Drainer interface {
	Drain()
}

// Loop blocks for batches of change events and dispatches each one: files
// that were deleted are re-registered first (an atomic editor save is a
// delete followed by a recreate), then qualifying changes are delivered.
type Loop struct {
	Manager *Manager
	Backend backend.Backend
	Deliver Deliverer
	Console Drainer // may be nil

	// Once stops after a single dispatch pass. Used by tests only.
	Once bool
}

func (l *Loop) Run(ctx context.Context) error {
	events := make([]backend.Event, eventBufSize)
	scratch := make([]backend.Event, eventBufSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := l.Backend.Wait(events, -1)
		if err != nil {
			return fmt.Errorf("event wait: %w", err)
		}

		delivered := false
		for _, event := range events[:n] {
			slog.Debug("Dispatch event", "kind", event.Kind, "flags", event.Flags)

			// A ready control stream exists only to unblock the wait.
			if event.File == nil {
				if l.Console != nil {
					l.Console.Drain()
				}
				continue
			}
			f := event.File

			// Re-register before the delivery check so a delete-then-recreate
			// shows up as a single change with a fresh handle.
			if event.Flags&backend.FlagDelete != 0 {
				if err := l.Manager.Rewatch(f); err != nil {
					return fmt.Errorf("rewatch %q: %w", f.Path, err)
				}
			}

			if event.Flags&(backend.FlagDelete|backend.FlagWrite|backend.FlagExtend) == 0 {
				continue
			}

			if l.Deliver.PerEvent() {
				if err := l.Deliver.Deliver(f); err != nil {
					return fmt.Errorf("deliver %q: %w", f.Path, err)
				}
				continue
			}

			if delivered {
				continue
			}
			delivered = true
			if err := l.Deliver.Deliver(f); err != nil {
				return fmt.Errorf("deliver %q: %w", f.Path, err)
			}
			// Flush notifications that piled up while the command ran so
			// they don't queue extra invocations.
			if _, err := l.Backend.Wait(scratch, 0); err != nil {
				return fmt.Errorf("event drain: %w", err)
			}
		}

		if l.Once {
			return nil
		}
	}
}
