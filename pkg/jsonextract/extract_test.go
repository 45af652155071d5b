package jsonextract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare object",
			input:    `{"title":"A"}`,
			expected: `{"title":"A"}`,
		},
		{
			name:     "json fence",
			input:    "```json\n{\"title\":\"A\"}\n```",
			expected: `{"title":"A"}`,
		},
		{
			name:     "untagged fence with surrounding whitespace",
			input:    "  \n```\n[1, 2]\n```  \n",
			expected: `[1, 2]`,
		},
		{
			name:     "leading and trailing prose",
			input:    "Sure! Here is your scene:\n{\"sceneDescription\":\"A door.\"}\nLet me know if you need more.",
			expected: `{"sceneDescription":"A door."}`,
		},
		{
			name:     "brackets enclosing braces choose the array",
			input:    `Items: [{"a":1},{"b":2}] done`,
			expected: `[{"a":1},{"b":2}]`,
		},
		{
			name:     "longer array wins when not enclosing",
			input:    `Result: [1, 2, 3] and {}`,
			expected: `[1, 2, 3]`,
		},
		{
			name:     "tie goes to the object",
			input:    `{"a":1} [1,2,3]`,
			expected: `{"a":1}`,
		},
		{
			name:     "object containing arrays",
			input:    `{"choices":[{"text":"Go"}],"x":[1]}`,
			expected: `{"choices":[{"text":"Go"}],"x":[1]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.input, false)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtract_IdempotentOnBareJSON(t *testing.T) {
	inputs := []string{
		`{"a":1}`,
		`[{"a":[1,2]},{"b":{"c":null}}]`,
		`{"sceneDescription":"He said \"hi\"","choices":[]}`,
		"```json\n{\"a\":true}\n```",
	}

	for _, input := range inputs {
		first, err := Extract(input, false)
		require.NoError(t, err)

		again, err := Extract(Candidate(input), false)
		require.NoError(t, err)
		assert.Equal(t, first, again)

		bare, err := Extract(first, false)
		require.NoError(t, err)
		assert.Equal(t, first, bare, "extraction of already-bare JSON must be a no-op")
	}
}

func TestExtract_TruncatedJSON(t *testing.T) {
	raw := `{"sceneDescription": "A door.", "choices": [`

	_, err := Extract(raw, false)
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, raw, perr.RawText)
	assert.NotEmpty(t, perr.ParserMessage)
	assert.False(t, perr.FixAttempt)
	assert.Contains(t, perr.Diagnostic, raw, "short text is quoted in full")
	assert.Contains(t, perr.Diagnostic, "provider response")
}

func TestExtract_FixAttemptDiagnostic(t *testing.T) {
	_, err := Extract("no json here", true)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.FixAttempt)
	assert.Contains(t, perr.Diagnostic, "repaired provider response")
}

func TestExcerpt(t *testing.T) {
	short := strings.Repeat("a", ExcerptLimit-1)
	assert.Equal(t, short, Excerpt(short))

	long := strings.Repeat("h", 200) + strings.Repeat("m", 200) + strings.Repeat("t", 200)
	ex := Excerpt(long)
	assert.Less(t, len(ex), len(long))
	assert.True(t, strings.HasPrefix(ex, strings.Repeat("h", 150)))
	assert.True(t, strings.HasSuffix(ex, strings.Repeat("t", 80)))
	assert.Contains(t, ex, " ... ")
}

func TestCandidate_NoBrackets(t *testing.T) {
	assert.Equal(t, "plain text", Candidate("  plain text \n"))
}
