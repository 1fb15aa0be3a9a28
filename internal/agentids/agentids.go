// Package agentids reads and normalizes the agent identifiers an operator
// hands to archeck.
package agentids

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const maxLineBytes = 1 << 20

// Read collects one identifier per line until EOF. Surrounding whitespace is
// trimmed and blank lines are skipped. A positive width zero-pads numeric
// identifiers; width 0 keeps them as given. Input order is preserved.
func Read(r io.Reader, width int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	var ids []string
	line := 0
	for scanner.Scan() {
		line++
		id := Normalize(scanner.Text(), width)
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read agent ids (line %d): %w", line+1, err)
	}
	return ids, nil
}

// FromArgs normalizes identifiers given on the command line, dropping blanks.
func FromArgs(args []string, width int) []string {
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		if id := Normalize(arg, width); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Normalize trims id and left-pads purely numeric identifiers with zeros up
// to width, so "7" becomes "007" for width 3. Non-numeric identifiers and
// identifiers already at least width long are returned trimmed. A width of
// zero or less disables padding.
func Normalize(id string, width int) string {
	id = strings.TrimSpace(id)
	if id == "" || width <= 0 || len(id) >= width || !isDigits(id) {
		return id
	}
	return strings.Repeat("0", width-len(id)) + id
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
