package bibtex

import (
	"fmt"
	"strings"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
)

// Serialize converts a reference to one BibTeX block. Fields are emitted in
// a fixed order: title, author, year, then optional fields only if present.
// Round-trip is not lossless: fields outside the known set are never carried.
func Serialize(ref manuscript.Reference) string {
	entryType := ref.Type
	if entryType == "" {
		entryType = "article"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, ref.ID))
	b.WriteString(fmt.Sprintf("  title = {%s},\n", ref.Title))
	b.WriteString(fmt.Sprintf("  author = {%s},\n", ref.Author))
	if ref.Year != "" {
		b.WriteString(fmt.Sprintf("  year = {%s},\n", ref.Year))
	}

	for _, field := range optionalFields {
		if v := optionalValue(ref, field); v != "" {
			b.WriteString(fmt.Sprintf("  %s = {%s},\n", field, v))
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// SerializeAll converts references to BibTeX, one block per reference,
// blocks separated by blank lines.
func SerializeAll(refs []manuscript.Reference) string {
	var blocks []string
	for _, ref := range refs {
		blocks = append(blocks, Serialize(ref))
	}
	return strings.Join(blocks, "\n")
}

func optionalValue(ref manuscript.Reference, field string) string {
	switch field {
	case "journal":
		return ref.Journal
	case "booktitle":
		return ref.Booktitle
	case "volume":
		return ref.Volume
	case "number":
		return ref.Number
	case "pages":
		return ref.Pages
	case "month":
		return ref.Month
	case "doi":
		return ref.DOI
	case "url":
		return ref.URL
	case "publisher":
		return ref.Publisher
	case "editor":
		return ref.Editor
	case "address":
		return ref.Address
	case "edition":
		return ref.Edition
	case "series":
		return ref.Series
	case "chapter":
		return ref.Chapter
	case "school":
		return ref.School
	case "institution":
		return ref.Institution
	case "organization":
		return ref.Organization
	case "note":
		return ref.Note
	case "abstract":
		return ref.Abstract
	case "keywords":
		return ref.Keywords
	case "issn":
		return ref.ISSN
	case "isbn":
		return ref.ISBN
	}
	return ""
}
