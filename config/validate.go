package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the parsed options and returns a single error describing
// all issues.
func Validate(opts Options, flags FlagOptions) error {
	var errs multiErr

	switch opts.Mode {
	case ModeFIFO:
		if strings.TrimSpace(opts.FifoPath) == "" {
			errs.addf("fifo path is empty")
		}
	case ModeCommand:
		if strings.TrimSpace(opts.Command) == "" {
			errs.addf("command is empty")
		}
	}

	if !isValidLogLevel(flags.LogLevel) {
		errs.addf("invalid loglevel %q (allowed: debug, info, warn, error)", flags.LogLevel)
	}

	if errs.len() > 0 {
		return errs.err()
	}
	return nil
}

// ---- helpers ----

type multiErr struct {
	list []string
}

func (m *multiErr) addf(format string, a ...any) {
	m.list = append(m.list, fmt.Sprintf(format, a...))
}
func (m *multiErr) len() int { return len(m.list) }
func (m *multiErr) err() error {
	return errors.New(strings.Join(m.list, "; "))
}

func isValidLogLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "info", "warn", "warning", "error", "":
		return true
	default:
		return false
	}
}
