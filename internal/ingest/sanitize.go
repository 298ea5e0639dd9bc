package ingest

import (
	"strings"
	"unicode"
)

// sanitize drops the BOM, replacement runes and non-printable characters,
// keeping newlines and tabs.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\uFEFF', r == unicode.ReplacementChar:
			continue
		case r == '\n', r == '\t':
		case r == '\r':
			continue
		case !unicode.IsPrint(r):
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
