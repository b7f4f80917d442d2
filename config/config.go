package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Mode selects what happens when a watched file changes.
type Mode int

const (
	// ModeCommand spawns the configured command.
	ModeCommand Mode = iota
	// ModeFIFO writes changed paths to a named pipe.
	ModeFIFO
)

type FlagOptions struct {
	LogLevel string
}

// Options is the parsed positional contract: either a command with its
// arguments, or a FIFO path taken from a leading '+' operand.
type Options struct {
	Mode     Mode
	FifoPath string
	Command  string
	Args     []string
}

func ParseFlags() FlagOptions {
	var flags FlagOptions

	flag.StringVar(&flags.LogLevel, "loglevel", "warn", "Log level (debug, info, warn, error)")

	flag.Usage = func() { Usage(os.Stderr) }
	flag.Parse()
	return flags
}

func Usage(w io.Writer) {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "usage: %s [flags] command [args] < filenames\n", prog)
	fmt.Fprintf(w, "       %s [flags] +fifo < filenames\n", prog)
}

// ParseArgs interprets the positional operands. A leading '+' on the
// first operand switches to FIFO mode with the remainder as the pipe
// path; anything else is the command and its verbatim argument list.
func ParseArgs(operands []string) (Options, error) {
	if len(operands) == 0 {
		return Options{}, fmt.Errorf("no command or fifo given")
	}
	if strings.HasPrefix(operands[0], "+") {
		return Options{Mode: ModeFIFO, FifoPath: operands[0][1:]}, nil
	}
	return Options{Mode: ModeCommand, Command: operands[0], Args: operands[1:]}, nil
}

// SetupLogger points slog at stderr with the requested level. Diagnostics
// must never land on stdout, which belongs to the spawned command.
func SetupLogger(level string) {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelWarn // fallback
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel,
	})
	slog.SetDefault(slog.New(handler))
}
