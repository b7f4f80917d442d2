package config

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseArgsCommandMode(t *testing.T) {
	opts, err := ParseArgs([]string{"make", "test", "-v"})
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}

	if opts.Mode != ModeCommand {
		t.Errorf("Expected command mode, got %v", opts.Mode)
	}
	if opts.Command != "make" {
		t.Errorf("Expected command 'make', got %q", opts.Command)
	}
	if len(opts.Args) != 2 || opts.Args[0] != "test" || opts.Args[1] != "-v" {
		t.Errorf("Expected verbatim args [test -v], got %v", opts.Args)
	}
}

func TestParseArgsFifoMode(t *testing.T) {
	opts, err := ParseArgs([]string{"+/tmp/notify"})
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}

	if opts.Mode != ModeFIFO {
		t.Errorf("Expected fifo mode, got %v", opts.Mode)
	}
	if opts.FifoPath != "/tmp/notify" {
		t.Errorf("Expected fifo path /tmp/notify, got %q", opts.FifoPath)
	}
}

func TestParseArgsNoOperands(t *testing.T) {
	if _, err := ParseArgs(nil); err == nil {
		t.Error("Expected an error with no operands")
	}
}

func TestValidateEmptyFifoPath(t *testing.T) {
	opts := Options{Mode: ModeFIFO, FifoPath: ""}

	err := Validate(opts, FlagOptions{LogLevel: "info"})
	if err == nil {
		t.Fatal("Expected validation to reject an empty fifo path")
	}
	if !strings.Contains(err.Error(), "fifo path") {
		t.Errorf("Expected fifo path message, got: %v", err)
	}
}

func TestValidateBadLogLevel(t *testing.T) {
	opts := Options{Mode: ModeCommand, Command: "make"}

	err := Validate(opts, FlagOptions{LogLevel: "loud"})
	if err == nil {
		t.Fatal("Expected validation to reject an unknown loglevel")
	}
	if !strings.Contains(err.Error(), "loglevel") {
		t.Errorf("Expected loglevel message, got: %v", err)
	}
}

func TestValidateAccumulatesIssues(t *testing.T) {
	opts := Options{Mode: ModeFIFO, FifoPath: " "}

	err := Validate(opts, FlagOptions{LogLevel: "loud"})
	if err == nil {
		t.Fatal("Expected validation errors")
	}
	if !strings.Contains(err.Error(), ";") {
		t.Errorf("Expected both issues in one error, got: %v", err)
	}
}

func TestUsageShowsBothForms(t *testing.T) {
	var buf bytes.Buffer
	Usage(&buf)

	out := buf.String()
	if !strings.Contains(out, "command [args]") {
		t.Errorf("Usage is missing the command form:\n%s", out)
	}
	if !strings.Contains(out, "+fifo") {
		t.Errorf("Usage is missing the fifo form:\n%s", out)
	}
}
