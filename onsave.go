package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/justin-molloy/onsave/backend"
	"github.com/justin-molloy/onsave/config"
	"github.com/justin-molloy/onsave/console"
	"github.com/justin-molloy/onsave/fifoout"
	"github.com/justin-molloy/onsave/inputs"
	"github.com/justin-molloy/onsave/runner"
	"github.com/justin-molloy/onsave/watcher"
	"github.com/justin-molloy/onsave/watchfile"
)

// maxWatchedFiles caps the watch list when the descriptor limit is
// unlimited or absurd.
const maxWatchedFiles = 65536

func main() {
	flags := config.ParseFlags()

	opts, err := config.ParseArgs(flag.Args())
	if err != nil {
		config.Usage(os.Stderr)
		os.Exit(1)
	}

	config.SetupLogger(flags.LogLevel)

	if err := config.Validate(opts, flags); err != nil {
		slog.Error("Invalid options", "error", err)
		os.Exit(1)
	}

	// The descriptor limit bounds how many files one invocation can watch.
	limit := raiseFileLimit()

	// The watch list arrives on stdin, one path per line.

	reg := watchfile.NewRegistry()
	n, err := inputs.ReadFileList(os.Stdin, reg, limit)
	if err != nil {
		slog.Error("Failed to read watch list", "error", err)
		os.Exit(1)
	}
	if n == 0 {
		config.Usage(os.Stderr)
		os.Exit(1)
	}
	slog.Info("Watching files", "count", n)

	// Interrupts cancel the loop cooperatively; nothing is torn down from
	// inside a signal handler. The handler is installed before the FIFO
	// open, which blocks until a reader attaches, so an interrupt during
	// that wait still unlinks the pipe and exits cleanly.

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		slog.Info("Interrupted", "signal", sig.String())
		cancel()
	}()

	// Pick the delivery strategy. The FIFO is created up front so a setup
	// failure aborts before any watches are installed. In command mode the
	// controlling terminal becomes the secondary wake-up source.

	var deliver watcher.Deliverer
	var fifo *fifoout.Target
	var cons *console.Console

	if opts.Mode == config.ModeFIFO {
		fifo = fifoout.New(opts.FifoPath)
		createDone := make(chan error, 1)
		go func() { createDone <- fifo.Create() }()
		select {
		case err := <-createDone:
			if err != nil {
				slog.Error("Failed to create fifo", "error", err)
				os.Exit(1)
			}
		case <-ctx.Done():
			// The open is still waiting for a reader; abandon it.
			cleanup(fifo, cons)
			os.Exit(0)
		}
		deliver = fifo
	} else {
		deliver = &runner.Runner{Name: opts.Command, Args: opts.Args}
		cons = console.Open()
	}

	be, err := backend.New(reg, cons.FD())
	if err != nil {
		slog.Error("Cannot create event queue", "error", err)
		cleanup(fifo, cons)
		os.Exit(1)
	}

	mgr := watcher.NewManager(be, reg)
	if err := mgr.WatchAll(); err != nil {
		slog.Error("Failed to watch files", "error", err)
		cleanup(fifo, cons)
		os.Exit(1)
	}

	loop := &watcher.Loop{
		Manager: mgr,
		Backend: be,
		Deliver: deliver,
		Console: cons,
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	var runErr error
	select {
	case <-ctx.Done():
		// Graceful interrupt. The loop may still be blocked in the wait
		// call; its native state is reclaimed on process exit.
	case runErr = <-done:
	}

	cleanup(fifo, cons)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("Watch loop failed", "error", runErr)
		os.Exit(1)
	}
}

func cleanup(fifo *fifoout.Target, cons *console.Console) {
	if fifo != nil {
		if err := fifo.Close(); err != nil {
			slog.Warn("Failed to remove fifo", "error", err)
		}
	}
	if cons != nil {
		cons.Close()
	}
}

// raiseFileLimit lifts the soft descriptor limit to the hard limit and
// returns the resulting bound on the watch list.
func raiseFileLimit() int {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		slog.Warn("Failed to read descriptor limit", "error", err)
		return maxWatchedFiles
	}
	rl.Cur = rl.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		slog.Debug("Failed to raise descriptor limit", "error", err)
	}

	limit := int(rl.Cur)
	if limit <= 0 || limit > maxWatchedFiles {
		limit = maxWatchedFiles
	}
	return limit
}
