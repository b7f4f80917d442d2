package inputs

import (
	"bufio"
	"fmt"
	"io"

	"github.com/justin-molloy/onsave/watchfile"
)

// ReadFileList reads the watch list from r, one path per line, into the
// registry. Blank lines are skipped and reading stops once max entries
// have been taken (the caller derives max from the descriptor limit).
// Returns the number of files added.
func ReadFileList(r io.Reader, reg *watchfile.Registry, max int) (int, error) {
	scanner := bufio.NewScanner(r)
	count := 0
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		reg.Add(line)
		count++
		if count >= max {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read file list: %w", err)
	}
	return count, nil
}
