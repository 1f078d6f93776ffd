// Package slug normalizes manuscript titles into URL/path-safe directory
// names for the remote repository layout.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks left over after NFD decomposition,
// turning "é" into "e".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make converts a manuscript title into its slug: lowercase, diacritics
// stripped, anything outside [a-z0-9 space -] dropped, whitespace collapsed
// to single dashes, repeated dashes collapsed, leading/trailing dashes
// trimmed. Make is pure and idempotent, so a re-sync after a title rename
// resolves to the same directory.
func Make(title string) string {
	s := strings.ToLower(title)

	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	s = strings.Join(fields, "-")

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}
