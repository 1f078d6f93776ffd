// Package bibtex converts between bibliography references and BibTeX text.
//
// Parsing is field-by-field pattern extraction, not a full BibTeX grammar:
// each known field is matched independently by a permissive regex tolerating
// {...} or "..." delimiters and case-insensitive field names. That covers
// the limited grammar the editor produces and consumes; exotic constructs
// (string macros, nested braces, concatenation) are out of scope.
package bibtex

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
)

// ErrIncompleteEntry is returned when an entry lacks one of the mandatory
// parts: type, id, title, or author.
var ErrIncompleteEntry = errors.New("incomplete BibTeX entry")

// entryHeaderPattern matches "@type{id," at the start of an entry.
var entryHeaderPattern = regexp.MustCompile(`@\s*([a-zA-Z]+)\s*\{\s*([^,\s{}]+)\s*,`)

// optionalFields lists every optional field in serialization order.
// Title, author, and year are handled separately; everything here defaults
// to empty when absent.
var optionalFields = []string{
	"journal", "booktitle", "volume", "number", "pages", "month",
	"doi", "url", "publisher", "editor", "address", "edition",
	"series", "chapter", "school", "institution", "organization",
	"note", "abstract", "keywords", "issn", "isbn",
}

// fieldPatterns caches one permissive regex per known field name.
var fieldPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, name := range append([]string{"title", "author", "year"}, optionalFields...) {
		fieldPatterns[name] = regexp.MustCompile(
			`(?i)\b` + name + `\s*=\s*(?:\{([^{}]*)\}|"([^"]*)")`)
	}
}

// extractField returns the value of a field in the entry text, or "".
func extractField(entry, name string) string {
	m := fieldPatterns[name].FindStringSubmatch(entry)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[2])
}

// ParseEntry parses a single @type{id, field=value, ...} entry.
// Type, id, title, and author are mandatory; the remaining fields are
// optional and stay empty when not present.
func ParseEntry(text string) (*manuscript.Reference, error) {
	header := entryHeaderPattern.FindStringSubmatch(text)
	if header == nil {
		return nil, fmt.Errorf("%w: missing @type{id, header", ErrIncompleteEntry)
	}

	ref := manuscript.Reference{
		Type:   strings.ToLower(header[1]),
		ID:     header[2],
		Title:  extractField(text, "title"),
		Author: extractField(text, "author"),
		Year:   extractField(text, "year"),
	}
	if ref.Title == "" || ref.Author == "" {
		return nil, fmt.Errorf("%w: %s missing title or author", ErrIncompleteEntry, ref.ID)
	}

	ref.Journal = extractField(text, "journal")
	ref.Booktitle = extractField(text, "booktitle")
	ref.Volume = extractField(text, "volume")
	ref.Number = extractField(text, "number")
	ref.Pages = extractField(text, "pages")
	ref.Month = extractField(text, "month")
	ref.DOI = extractField(text, "doi")
	ref.URL = extractField(text, "url")
	ref.Publisher = extractField(text, "publisher")
	ref.Editor = extractField(text, "editor")
	ref.Address = extractField(text, "address")
	ref.Edition = extractField(text, "edition")
	ref.Series = extractField(text, "series")
	ref.Chapter = extractField(text, "chapter")
	ref.School = extractField(text, "school")
	ref.Institution = extractField(text, "institution")
	ref.Organization = extractField(text, "organization")
	ref.Note = extractField(text, "note")
	ref.Abstract = extractField(text, "abstract")
	ref.Keywords = extractField(text, "keywords")
	ref.ISSN = extractField(text, "issn")
	ref.ISBN = extractField(text, "isbn")

	return &ref, nil
}

// Parse parses a .bib document by splitting on the @ delimiter and parsing
// each fragment independently. Fragments that fail to parse are dropped.
func Parse(text string) []manuscript.Reference {
	var refs []manuscript.Reference
	for _, fragment := range strings.Split(text, "@") {
		if strings.TrimSpace(fragment) == "" {
			continue
		}
		ref, err := ParseEntry("@" + fragment)
		if err != nil {
			continue
		}
		refs = append(refs, *ref)
	}
	return refs
}
