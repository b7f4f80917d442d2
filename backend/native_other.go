//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package backend

import (
	"errors"

	"github.com/justin-molloy/onsave/watchfile"
)

// No native event queue here; New falls back to the portable backend.
func newNative(reg *watchfile.Registry, consoleFD int) (Backend, error) {
	return nil, errors.ErrUnsupported
}
