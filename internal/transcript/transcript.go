// Package transcript merges per-artifact transcripts into the single text
// that extraction and question answering work on.
package transcript

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// NoTranscript is returned by Aggregate when no artifact has any text
const NoTranscript = "No valid transcript available."

// TruncationMarker is appended to text cut by Truncate
const TruncationMarker = "... [truncated]"

// Aggregate merges transcripts in the given order. Empty entries are dropped
// and exact duplicates keep only their first occurrence
func Aggregate(texts []string) string {
	seen := make(map[string]struct{}, len(texts))
	unique := make([]string, 0, len(texts))

	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		unique = append(unique, text)
	}

	if len(unique) == 0 {
		return NoTranscript
	}
	return strings.Join(unique, "\n")
}

// IsEmpty reports whether text carries no usable transcript
func IsEmpty(text string) bool {
	return strings.TrimSpace(text) == "" || text == NoTranscript
}

// DedupeLines removes blank lines and repeated lines, keeping first occurrences
func DedupeLines(text string) string {
	lines := strings.Split(text, "\n")
	seen := make(map[string]struct{}, len(lines))
	unique := lines[:0]

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		unique = append(unique, line)
	}

	return strings.Join(unique, "\n")
}

// Truncate limits text to maxChars characters and appends TruncationMarker
// when anything was cut. maxChars <= 0 disables truncation
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	cut, n := 0, 0
	for i := range text {
		if n == maxChars {
			cut = i
			break
		}
		n++
	}

	return text[:cut] + TruncationMarker
}

// Prepare applies line dedupe and truncation, returning whether text was cut
func Prepare(text string, maxChars int) (string, bool) {
	deduped := DedupeLines(text)
	prepared := Truncate(deduped, maxChars)
	return prepared, prepared != deduped
}

// Turn is one speaker line from a transcript
type Turn struct {
	Speaker string
	Text    string
}

// Matches "Name (Role): text" and "Name: text"
var speakerLine = regexp.MustCompile(`^\s*([A-Za-z .'-]+?)\s*(?:\([^)]*\))?\s*:\s*(.+)$`)

// Timeline extracts speaker turns from a transcript, skipping lines that do
// not start with a speaker label
func Timeline(text string) []Turn {
	var turns []Turn
	for line := range strings.Lines(text) {
		m := speakerLine.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
		if m == nil {
			continue
		}
		turns = append(turns, Turn{
			Speaker: strings.TrimSpace(m[1]),
			Text:    strings.TrimSpace(m[2]),
		})
	}
	return turns
}
