package bibtex

import (
	"regexp"
	"strings"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
)

// markdownCitationPattern matches [@key] citations in Markdown.
var markdownCitationPattern = regexp.MustCompile(`\[@([a-zA-Z][a-zA-Z0-9_\-:.]*)\]`)

// ExtractCitationKeys returns each distinct reference id exactly once,
// preserving first-occurrence order, regardless of duplicates in the input.
func ExtractCitationKeys(refs []manuscript.Reference) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, ref := range refs {
		if ref.ID == "" || seen[ref.ID] {
			continue
		}
		seen[ref.ID] = true
		keys = append(keys, ref.ID)
	}
	return keys
}

// Lookup finds a reference by citation key, case-insensitive exact match.
// The first match wins; duplicate keys shadow later entries.
func Lookup(refs []manuscript.Reference, key string) (*manuscript.Reference, bool) {
	for i := range refs {
		if strings.EqualFold(refs[i].ID, key) {
			return &refs[i], true
		}
	}
	return nil, false
}

// MarkdownCitations returns the citation keys used in a Markdown document
// via [@key] syntax, deduplicated in first-occurrence order.
func MarkdownCitations(markdown string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range markdownCitationPattern.FindAllStringSubmatch(markdown, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		keys = append(keys, m[1])
	}
	return keys
}
