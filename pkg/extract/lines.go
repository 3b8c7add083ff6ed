package extract

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ruleLinePattern accepts a YAML-style list item holding one domain:
//
//	- example.com
//	- '+.example.com'
//	-   "example.com"   # trailing comment
//
// The domain is the run of [A-Za-z0-9.-] after the optional quote and "+."
// marker. Anything else on the line besides a closing quote, blanks or a
// comment makes the line a non-match.
var ruleLinePattern = regexp.MustCompile(`^-\s*['"]?(?:\+\.)?([A-Za-z0-9.-]+)['"]?\s*(?:#.*)?$`)

// RuleLine extracts the domain from a single line of a line-oriented list.
func RuleLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}
	m := ruleLinePattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// maxLineBytes bounds a single line. Longer lines are skipped whole.
const maxLineBytes = 1 << 20

// ScanLines calls fn for every line of r that is neither blank nor a comment.
// Lines are passed with surrounding whitespace removed.
func ScanLines(r io.Reader, fn func(line string)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var buf []byte
	skip := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("scan lines: %w", err)
		}
		if !skip {
			if len(buf)+len(chunk) > maxLineBytes {
				skip = true
			} else {
				buf = append(buf, chunk...)
			}
		}
		if isPrefix {
			continue
		}
		if !skip {
			if line := strings.TrimSpace(string(buf)); line != "" && !strings.HasPrefix(line, "#") {
				fn(line)
			}
		}
		buf = buf[:0]
		skip = false
	}
}
