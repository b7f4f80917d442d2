// Package backend provides a mechanism for waiting on file change events.
// It prefers the platform's native notification facility (kqueue or
// inotify) and falls back to an fsnotify-based implementation, all wrapped
// up in a common interface so the dispatch loop never has to care which is
// in use.
package backend

import (
	"time"

	"github.com/justin-molloy/onsave/watchfile"
)

// Flag is the unified change-notification bitset.
type Flag uint32

const (
	FlagDelete Flag = 1 << iota
	FlagWrite
	FlagExtend
	FlagRename
	FlagAttrib
)

func (f Flag) String() string {
	names := []struct {
		bit  Flag
		name string
	}{
		{FlagDelete, "DELETE"},
		{FlagWrite, "WRITE"},
		{FlagExtend, "EXTEND"},
		{FlagRename, "RENAME"},
		{FlagAttrib, "ATTRIB"},
	}
	s := ""
	for _, n := range names {
		if f&n.bit == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += n.name
	}
	if s == "" {
		return "NONE"
	}
	return s
}

// Kind separates file change events from control-stream wake-ups.
type Kind int

const (
	KindVnode Kind = iota
	KindReadReady
)

func (k Kind) String() string {
	if k == KindReadReady {
		return "READ_READY"
	}
	return "VNODE"
}

// Event is one unified notification. File is nil for KindReadReady.
type Event struct {
	Handle int
	Kind   Kind
	Flags  Flag
	File   *watchfile.File
}

// Backend is the portable notification interface. Register installs a
// vnode watch for a file whose descriptor the caller has already opened
// and stores the resulting native handle on the file. Wait blocks until at
// least one event arrives or the timeout elapses; a negative timeout waits
// forever. Interrupted system calls are retried internally, never
// surfaced.
type Backend interface {
	Register(f *watchfile.File, fd int) error
	Unregister(f *watchfile.File) error
	Wait(buf []Event, timeout time.Duration) (int, error)
	Close() error
}

// New tries the native backend first and falls back to the portable one.
// consoleFD is an optional secondary input stream whose readiness is
// multiplexed into Wait as KindReadReady; pass -1 when there is none.
func New(reg *watchfile.Registry, consoleFD int) (Backend, error) {
	if b, err := newNative(reg, consoleFD); err == nil {
		return b, nil
	}
	return NewPortable()
}

// coalesce adds ev to buf, merging it into the immediately preceding event
// when that event is for the same watch handle. Bursty notifications for
// one file collapse into a single event this way. Returns the new count;
// events beyond the buffer's capacity are dropped.
func coalesce(buf []Event, n int, ev Event) int {
	if n > 0 && buf[n-1].Kind == KindVnode && ev.Kind == KindVnode && buf[n-1].Handle == ev.Handle {
		buf[n-1].Flags |= ev.Flags
		return n
	}
	if n >= len(buf) {
		return n
	}
	buf[n] = ev
	return n + 1
}
