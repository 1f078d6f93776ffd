// Package pdfref drafts bibliography entries from uploaded PDF files by
// scanning their leading pages for a DOI and a title.
package pdfref

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
)

// doiPattern matches 10.<registrant>/<suffix> DOIs embedded in page text.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// scanPages bounds how deep into the document we look. DOIs and titles sit
// on the first page of nearly every published article.
const scanPages = 3

// ExtractDOI returns the first DOI found in the leading pages, or "" when
// none is present. A DOI-less PDF is not an error.
func ExtractDOI(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	pages := min(scanPages, r.NumPage())
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if doi := findDOI(text); doi != "" {
			return doi, nil
		}
	}
	return "", nil
}

// ExtractTitle guesses the document title: the first substantial line of the
// first page that does not look like a running header.
func ExtractTitle(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return "", nil
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			return line, nil
		}
	}
	return "", nil
}

// NewReference builds a draft bibliography entry from a PDF. Title and DOI
// come from the document when found; author and year are left for the user
// to complete.
func NewReference(filePath string) (manuscript.Reference, error) {
	doi, err := ExtractDOI(filePath)
	if err != nil {
		return manuscript.Reference{}, err
	}
	title, err := ExtractTitle(filePath)
	if err != nil {
		return manuscript.Reference{}, err
	}

	ref := manuscript.Reference{
		ID:    CitationKey(title),
		Type:  "article",
		Title: title,
		DOI:   doi,
	}
	return ref, nil
}

// CitationKey derives a valid citation key from a title: the first word,
// lowercased and stripped to letters and digits, suffixed with the current
// year. Falls back to a generic key for unusable titles.
func CitationKey(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsSpace(r) {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	word := b.String()
	if word == "" || !unicode.IsLetter(rune(word[0])) {
		word = "ref"
	}
	key := fmt.Sprintf("%s%d", word, time.Now().Year())
	if !manuscript.ValidCitationKey(key) {
		return fmt.Sprintf("ref%d", time.Now().Year())
	}
	return key
}

// findDOI returns the first plausible DOI in text, with trailing punctuation
// trimmed.
func findDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// isValidDOI rejects matches too short or malformed to be a real DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash != -1 && slash < len(doi)-1
}

// isHeaderLine filters lines that are running headers rather than titles.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"):
		return true
	case strings.Contains(lower, "volume") && strings.Contains(lower, "issue"):
		return true
	case strings.Contains(lower, "copyright"):
		return true
	case strings.Contains(lower, "downloaded from"):
		return true
	}
	return false
}
