// Package jsonextract pulls a JSON payload out of free-form model output.
//
// Providers are instructed to answer with bare JSON but regularly wrap it in
// markdown fences or surround it with prose. Extraction is a best-effort
// heuristic, not a grammar: it unwraps a fence when present, otherwise it
// takes the widest {...} or [...] span, and finally requires the candidate
// to parse strictly.
package jsonextract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	// ExcerptLimit is the length below which diagnostics quote the full text.
	ExcerptLimit = 250
	excerptHead  = 150
	excerptTail  = 80
)

var fencePattern = regexp.MustCompile("(?s)^```(?:json|JSON)?[ \t]*\r?\n?(.*?)\r?\n?[ \t]*```$")

// ParseError reports that no strictly valid JSON could be extracted. RawText
// is the untouched provider output, kept so a repair request can resubmit it.
type ParseError struct {
	Diagnostic    string
	ParserMessage string
	RawText       string
	Candidate     string
	FixAttempt    bool
}

func (e *ParseError) Error() string {
	return e.Diagnostic
}

// Candidate returns the substring most likely to hold the JSON payload
// without checking that it parses.
func Candidate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}

	object, hasObject := span(trimmed, '{', '}')
	array, hasArray := span(trimmed, '[', ']')

	switch {
	case hasObject && hasArray:
		if array.start < object.start && array.end > object.end {
			return trimmed[array.start : array.end+1]
		}
		if array.len() > object.len() {
			return trimmed[array.start : array.end+1]
		}
		return trimmed[object.start : object.end+1]
	case hasObject:
		return trimmed[object.start : object.end+1]
	case hasArray:
		return trimmed[array.start : array.end+1]
	default:
		return trimmed
	}
}

// Extract returns a strictly valid JSON document found in raw. isFixAttempt
// marks output produced by a repair request and only changes the wording of
// the diagnostic.
func Extract(raw string, isFixAttempt bool) (string, error) {
	candidate := Candidate(raw)

	var probe any
	err := json.Unmarshal([]byte(candidate), &probe)
	if err == nil {
		return candidate, nil
	}

	what := "provider response"
	if isFixAttempt {
		what = "repaired provider response"
	}
	return "", &ParseError{
		Diagnostic:    fmt.Sprintf("failed to parse JSON from %s: %v. Text: %s", what, err, Excerpt(raw)),
		ParserMessage: err.Error(),
		RawText:       raw,
		Candidate:     candidate,
		FixAttempt:    isFixAttempt,
	}
}

// Excerpt shortens text for logs and diagnostics: the full text when it is
// shorter than ExcerptLimit, otherwise its head and tail.
func Excerpt(text string) string {
	r := []rune(text)
	if len(r) < ExcerptLimit {
		return text
	}
	return string(r[:excerptHead]) + " ... " + string(r[len(r)-excerptTail:])
}

type bounds struct {
	start, end int
}

func (b bounds) len() int {
	return b.end - b.start + 1
}

// span locates the outermost open/close pair: the first open and the last
// close after it.
func span(s string, open, close byte) (bounds, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return bounds{}, false
	}
	end := strings.LastIndexByte(s, close)
	if end <= start {
		return bounds{}, false
	}
	return bounds{start: start, end: end}, true
}
