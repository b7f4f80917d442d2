package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sys/unix"

	"github.com/justin-molloy/onsave/watchfile"
)

// portableBackend adapts fsnotify's channel-based delivery to the blocking
// batch contract. fsnotify watches paths rather than descriptors, so
// handles are synthetic and events resolve by name. It does not multiplex
// the console stream; platforms with a native backend never use it.
type portableBackend struct {
	w      *fsnotify.Watcher
	events chan Event

	mu         sync.Mutex
	byPath     map[string]*watchfile.File
	nextHandle int
}

func NewPortable() (Backend, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	b := &portableBackend{
		w:      w,
		events: make(chan Event, 64),
		byPath: make(map[string]*watchfile.File),
	}
	go b.pump()
	return b, nil
}

func (b *portableBackend) pump() {
	for {
		select {
		case event, ok := <-b.w.Events:
			if !ok {
				return
			}

			slog.Debug("Filesystem event", "Op", event.Op, "Name", event.Name)

			flags := translateOp(event.Op)
			if flags == 0 {
				continue
			}
			// Snapshot the handle while holding the lock; a concurrent
			// rewatch may reassign it between lookup and send.
			b.mu.Lock()
			f := b.byPath[event.Name]
			var handle int
			if f != nil {
				handle = f.Handle
			}
			b.mu.Unlock()
			if f == nil {
				continue
			}
			b.events <- Event{Handle: handle, Kind: KindVnode, Flags: flags, File: f}

		case err, ok := <-b.w.Errors:
			if !ok {
				return
			}
			slog.Error("Watcher error", "error", err)
		}
	}
}

func (b *portableBackend) Register(f *watchfile.File, fd int) error {
	// fsnotify works on paths; the plain descriptor is not needed.
	unix.Close(fd)
	if err := b.w.Add(f.Path); err != nil {
		return fmt.Errorf("add watch for %q: %w", f.Path, err)
	}
	b.mu.Lock()
	b.nextHandle++
	f.Handle = b.nextHandle
	b.byPath[f.Path] = f
	b.mu.Unlock()
	return nil
}

func (b *portableBackend) Unregister(f *watchfile.File) error {
	if f.Handle == watchfile.NoHandle {
		return nil
	}
	// The watch vanishes with the file on most platforms; that is fine.
	if err := b.w.Remove(f.Path); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		return fmt.Errorf("remove watch for %q: %w", f.Path, err)
	}
	b.mu.Lock()
	delete(b.byPath, f.Path)
	b.mu.Unlock()
	f.Invalidate()
	return nil
}

func (b *portableBackend) Wait(buf []Event, timeout time.Duration) (int, error) {
	var first Event
	if timeout < 0 {
		event, ok := <-b.events
		if !ok {
			return 0, errors.New("watcher closed")
		}
		first = event
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case event, ok := <-b.events:
			if !ok {
				return 0, errors.New("watcher closed")
			}
			first = event
		case <-timer.C:
			return 0, nil
		}
	}

	count := coalesce(buf, 0, first)
	for count < len(buf) {
		select {
		case event := <-b.events:
			count = coalesce(buf, count, event)
		default:
			return count, nil
		}
	}
	return count, nil
}

func translateOp(op fsnotify.Op) Flag {
	var flags Flag
	if op.Has(fsnotify.Remove) {
		flags |= FlagDelete
	}
	if op.Has(fsnotify.Write) {
		flags |= FlagWrite
	}
	if op.Has(fsnotify.Create) {
		flags |= FlagWrite
	}
	if op.Has(fsnotify.Rename) {
		flags |= FlagRename
	}
	if op.Has(fsnotify.Chmod) {
		flags |= FlagAttrib
	}
	return flags
}

func (b *portableBackend) Close() error {
	return b.w.Close()
}
