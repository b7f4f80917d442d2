//go:build linux

package backend

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/justin-molloy/onsave/watchfile"
)

// watchMask covers every change we care about on a single file. IN_MODIFY
// is included so partial writes keep the kernel queue warm, but it
// translates to no unified flag; delivery waits for the close-after-write.
const watchMask = unix.IN_CLOSE_WRITE | unix.IN_DELETE_SELF | unix.IN_MODIFY |
	unix.IN_MOVE_SELF | unix.IN_ATTRIB | unix.IN_CREATE

// repollInterval is how often the wait loop re-polls while neither input
// source is ready.
const repollInterval = 50 * time.Millisecond

// inotifyBackend emulates the kqueue contract on Linux. inotify watches
// are inode-based and identified by watch descriptors, so events resolve
// back to files through the registry, and the secondary console stream is
// multiplexed in with poll(2).
type inotifyBackend struct {
	fd        int
	consoleFD int
	reg       *watchfile.Registry
	raw       [4096]byte
}

func newNative(reg *watchfile.Registry, consoleFD int) (Backend, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify init: %w", err)
	}
	return &inotifyBackend{fd: fd, consoleFD: consoleFD, reg: reg}, nil
}

func (b *inotifyBackend) Register(f *watchfile.File, fd int) error {
	wd, err := unix.InotifyAddWatch(b.fd, f.Path, watchMask)
	if err != nil {
		return fmt.Errorf("add watch for %q: %w", f.Path, err)
	}
	// The watch follows the inode; the plain descriptor is no longer needed.
	unix.Close(fd)
	f.Handle = wd
	return nil
}

func (b *inotifyBackend) Unregister(f *watchfile.File) error {
	if f.Handle == watchfile.NoHandle {
		return nil
	}
	// EINVAL means the kernel already dropped the watch after a delete.
	if _, err := unix.InotifyRmWatch(b.fd, uint32(f.Handle)); err != nil && err != unix.EINVAL {
		return fmt.Errorf("remove watch for %q: %w", f.Path, err)
	}
	f.Invalidate()
	return nil
}

func (b *inotifyBackend) Wait(buf []Event, timeout time.Duration) (int, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	fds := []unix.PollFd{{Fd: int32(b.fd), Events: unix.POLLIN}}
	if b.consoleFD >= 0 {
		fds = append(fds, unix.PollFd{Fd: int32(b.consoleFD), Events: unix.POLLIN})
	}

	for {
		wait := repollInterval
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			if remaining < wait {
				wait = remaining
			}
		}

		for i := range fds {
			fds[i].Revents = 0
		}
		n, err := unix.Poll(fds, int(wait.Milliseconds()))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("poll: %w", err)
		}

		if n > 0 {
			// Console readiness takes priority and short-circuits the batch.
			if len(fds) > 1 && fds[1].Revents&unix.POLLIN != 0 {
				buf[0] = Event{Handle: b.consoleFD, Kind: KindReadReady}
				return 1, nil
			}
			if fds[0].Revents&unix.POLLIN != 0 {
				count, err := b.readEvents(buf)
				if err != nil {
					return 0, err
				}
				// Every record may have been informational-only; if so,
				// keep waiting.
				if count > 0 {
					return count, nil
				}
			}
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return 0, nil
		}
	}
}

// readEvents drains one buffer of raw inotify records and translates them
// into unified events, coalescing per watch descriptor and dropping
// records that resolve to no flags or to no registered file.
func (b *inotifyBackend) readEvents(buf []Event) (int, error) {
	var n int
	for {
		var err error
		n, err = unix.Read(b.fd, b.raw[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("read inotify events: %w", err)
		}
		break
	}

	count := 0
	offset := 0
	for offset+unix.SizeofInotifyEvent <= n {
		rec := (*unix.InotifyEvent)(unsafe.Pointer(&b.raw[offset]))
		offset += unix.SizeofInotifyEvent + int(rec.Len)

		flags := translateMask(rec.Mask)
		if flags == 0 {
			continue
		}
		f, ok := b.reg.Lookup(int(rec.Wd))
		if !ok {
			continue
		}
		count = coalesce(buf, count, Event{
			Handle: int(rec.Wd),
			Kind:   KindVnode,
			Flags:  flags,
			File:   f,
		})
	}
	return count, nil
}

func translateMask(mask uint32) Flag {
	var flags Flag
	if mask&unix.IN_DELETE_SELF != 0 {
		flags |= FlagDelete
	}
	if mask&unix.IN_CLOSE_WRITE != 0 {
		flags |= FlagWrite
	}
	if mask&unix.IN_CREATE != 0 {
		flags |= FlagWrite
	}
	if mask&unix.IN_MOVE_SELF != 0 {
		flags |= FlagRename
	}
	if mask&unix.IN_ATTRIB != 0 {
		flags |= FlagAttrib
	}
	return flags
}

func (b *inotifyBackend) Close() error {
	return unix.Close(b.fd)
}
