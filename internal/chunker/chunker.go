// Package chunker splits page text into bounded passages on ". " boundaries.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the advisory chunk length in characters.
const DefaultMaxLength = 500

// Delimiter separates sentence-like units. It is re-appended after every unit.
const Delimiter = ". "

// Split greedily packs the ". "-separated units of text into chunks.
//
// A unit is appended to the running buffer while len(buffer)+len(unit) stays below
// maxLength; otherwise the buffer is closed and the unit starts a new one. A single
// unit longer than maxLength is never split, so the bound is advisory. Lengths are
// counted in runes. Empty or blank text yields no chunks.
func Split(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if bufLen == 0 {
			return
		}
		if s := strings.TrimSpace(buf.String()); s != "" {
			chunks = append(chunks, s)
		}
		buf.Reset()
		bufLen = 0
	}

	for _, unit := range strings.Split(text, Delimiter) {
		unitLen := utf8.RuneCountInString(unit)
		if bufLen+unitLen >= maxLength {
			flush()
		}
		buf.WriteString(unit)
		buf.WriteString(Delimiter)
		bufLen += unitLen + len(Delimiter)
	}
	flush()

	return chunks
}
