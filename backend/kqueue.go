//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package backend

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/justin-molloy/onsave/watchfile"
)

const noteMask = unix.NOTE_DELETE | unix.NOTE_WRITE | unix.NOTE_EXTEND |
	unix.NOTE_RENAME | unix.NOTE_ATTRIB

// kqueueBackend is a thin pass-through to kevent(2). The watched file's
// descriptor doubles as its native handle, and the console descriptor is
// registered for read readiness alongside the vnode filters.
type kqueueBackend struct {
	kq        int
	consoleFD int
	reg       *watchfile.Registry
}

func newNative(reg *watchfile.Registry, consoleFD int) (Backend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("create kqueue: %w", err)
	}
	if consoleFD >= 0 {
		var kev [1]unix.Kevent_t
		unix.SetKevent(&kev[0], consoleFD, unix.EVFILT_READ, unix.EV_ADD)
		if _, err := unix.Kevent(kq, kev[:], nil, nil); err != nil {
			unix.Close(kq)
			return nil, fmt.Errorf("register console input: %w", err)
		}
	}
	return &kqueueBackend{kq: kq, consoleFD: consoleFD, reg: reg}, nil
}

func (b *kqueueBackend) Register(f *watchfile.File, fd int) error {
	var kev [1]unix.Kevent_t
	unix.SetKevent(&kev[0], fd, unix.EVFILT_VNODE, unix.EV_ADD|unix.EV_CLEAR)
	kev[0].Fflags = noteMask
	if _, err := unix.Kevent(b.kq, kev[:], nil, nil); err != nil {
		return fmt.Errorf("register vnode events for %q: %w", f.Path, err)
	}
	f.Handle = fd
	return nil
}

func (b *kqueueBackend) Unregister(f *watchfile.File) error {
	if f.Handle == watchfile.NoHandle {
		return nil
	}
	var kev [1]unix.Kevent_t
	unix.SetKevent(&kev[0], f.Handle, unix.EVFILT_VNODE, unix.EV_DELETE)
	// ENOENT means a close already cleared the event.
	if _, err := unix.Kevent(b.kq, kev[:], nil, nil); err != nil && err != unix.ENOENT {
		return fmt.Errorf("remove vnode events for %q: %w", f.Path, err)
	}
	unix.Close(f.Handle)
	f.Invalidate()
	return nil
}

func (b *kqueueBackend) Wait(buf []Event, timeout time.Duration) (int, error) {
	kevs := make([]unix.Kevent_t, len(buf))
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	var n int
	for {
		var err error
		n, err = unix.Kevent(b.kq, nil, kevs, ts)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("kevent: %w", err)
		}
		break
	}

	count := 0
	for i := 0; i < n; i++ {
		ident := int(kevs[i].Ident)
		if b.consoleFD >= 0 && ident == b.consoleFD {
			count = coalesce(buf, count, Event{Handle: ident, Kind: KindReadReady})
			continue
		}
		flags := translateNote(uint32(kevs[i].Fflags))
		if flags == 0 {
			continue
		}
		f, ok := b.reg.Lookup(ident)
		if !ok {
			continue
		}
		count = coalesce(buf, count, Event{Handle: ident, Kind: KindVnode, Flags: flags, File: f})
	}
	return count, nil
}

func translateNote(fflags uint32) Flag {
	var flags Flag
	if fflags&unix.NOTE_DELETE != 0 {
		flags |= FlagDelete
	}
	if fflags&unix.NOTE_WRITE != 0 {
		flags |= FlagWrite
	}
	if fflags&unix.NOTE_EXTEND != 0 {
		flags |= FlagExtend
	}
	if fflags&unix.NOTE_RENAME != 0 {
		flags |= FlagRename
	}
	if fflags&unix.NOTE_ATTRIB != 0 {
		flags |= FlagAttrib
	}
	return flags
}

func (b *kqueueBackend) Close() error {
	return unix.Close(b.kq)
}
