package inputs

import (
	"strings"
	"testing"

	"github.com/justin-molloy/onsave/watchfile"
)

func TestReadFileListOnePathPerLine(t *testing.T) {
	reg := watchfile.NewRegistry()

	n, err := ReadFileList(strings.NewReader("a.txt\nb.txt\n"), reg, 100)
	if err != nil {
		t.Fatalf("ReadFileList failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("Expected 2 files, got %d", n)
	}
	if reg.Files()[0].Path != "a.txt" || reg.Files()[1].Path != "b.txt" {
		t.Errorf("Unexpected paths: %v, %v", reg.Files()[0].Path, reg.Files()[1].Path)
	}
}

func TestReadFileListSkipsBlankLines(t *testing.T) {
	reg := watchfile.NewRegistry()

	n, err := ReadFileList(strings.NewReader("a.txt\n\n\nb.txt\n"), reg, 100)
	if err != nil {
		t.Fatalf("ReadFileList failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected blank lines to be skipped, got %d entries", n)
	}
}

func TestReadFileListStopsAtLimit(t *testing.T) {
	reg := watchfile.NewRegistry()

	n, err := ReadFileList(strings.NewReader("a.txt\nb.txt\nc.txt\n"), reg, 2)
	if err != nil {
		t.Fatalf("ReadFileList failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected the limit to cap the list at 2, got %d", n)
	}
	if reg.Len() != 2 {
		t.Errorf("Expected 2 registry entries, got %d", reg.Len())
	}
}

func TestReadFileListEmptyInput(t *testing.T) {
	reg := watchfile.NewRegistry()

	n, err := ReadFileList(strings.NewReader(""), reg, 100)
	if err != nil {
		t.Fatalf("ReadFileList failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no files, got %d", n)
	}
}
