package runner

import (
	"log/slog"
	"os"
	"os/exec"

	"github.com/justin-molloy/onsave/watchfile"
)

// Runner executes the configured command once per change batch. The
// argument list is passed through verbatim (no filename substitution) and
// the child inherits stdin, stdout and stderr.
type Runner struct {
	Name string
	Args []string
}

func (r *Runner) Deliver(f *watchfile.File) error {
	slog.Debug("Running command", "command", r.Name, "trigger", f.Path)

	cmd := exec.Command(r.Name, r.Args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// The child's exit status does not stop the watch.
	if err := cmd.Run(); err != nil {
		slog.Warn("Command exited with error", "command", r.Name, "error", err)
	}
	return nil
}

func (r *Runner) PerEvent() bool {
	return false
}
