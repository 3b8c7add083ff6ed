package extract

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   string
		wantOK bool
	}{
		{"bare", "- example.com", "example.com", true},
		{"single quoted", "  - 'icloud.com'", "icloud.com", true},
		{"double quoted", `- "apple.com"`, "apple.com", true},
		{"wildcard quoted", "  - '+.apple.com'", "apple.com", true},
		{"wildcard bare", "-+.mzstatic.com", "mzstatic.com", true},
		{"no space after dash", "-'example.org'", "example.org", true},
		{"trailing comment", "- 'example.org' # mirror", "example.org", true},
		{"hyphenated", "- 'my-host.example.org'", "my-host.example.org", true},
		{"blank", "   ", "", false},
		{"comment", "# - 'example.com'", "", false},
		{"indented comment", "   # note", "", false},
		{"header", "payload:", "", false},
		{"no list marker", "example.com", "", false},
		{"cidr", "- '10.0.0.0/8'", "", false},
		{"dash inside text", "foo-bar.com", "", false},
		{"illegal character", "- 'exa_mple.com'", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RuleLine(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanLines(t *testing.T) {
	input := "# header\n\n  first  \n\t# indented comment\nsecond\r\n\n"
	var got []string
	err := ScanLines(strings.NewReader(input), func(line string) { got = append(got, line) })
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestScanLinesSkipsOverlongLine(t *testing.T) {
	input := "- 'before.example'\n" + strings.Repeat("x", maxLineBytes+10) + "\n- 'after.example'\n" +
		strings.Repeat("y", maxLineBytes) + "\n- last.example"
	domains, err := RuleLineDomains(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"before.example", "after.example", "last.example"}, domains)

	var got []string
	err = ScanLines(strings.NewReader("a\n"+strings.Repeat("z", 3*maxLineBytes)+"\nb"), func(line string) { got = append(got, line) })
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestScanLinesReadError(t *testing.T) {
	r := io.MultiReader(strings.NewReader("ok\n"), errReader{})
	err := ScanLines(r, func(string) {})
	assert.ErrorIs(t, err, errBroken)
}

var errBroken = errors.New("broken pipe")

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errBroken }
