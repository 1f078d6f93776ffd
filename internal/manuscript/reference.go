// Package manuscript defines the core domain types for a manuscript:
// the locally persisted draft, its metadata, and bibliography references.
package manuscript

import "regexp"

// Reference represents a single bibliography entry.
// ID is the citation key used from Markdown via [@id]. Title and Author are
// mandatory; every other bibliographic field is optional and left empty when
// the source entry does not carry it.
type Reference struct {
	ID     string `json:"id" yaml:"id"`
	Type   string `json:"type" yaml:"type"`
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`
	Year   string `json:"year,omitempty" yaml:"year,omitempty"`

	Journal      string `json:"journal,omitempty" yaml:"journal,omitempty"`
	Booktitle    string `json:"booktitle,omitempty" yaml:"booktitle,omitempty"`
	Volume       string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Number       string `json:"number,omitempty" yaml:"number,omitempty"`
	Pages        string `json:"pages,omitempty" yaml:"pages,omitempty"`
	Month        string `json:"month,omitempty" yaml:"month,omitempty"`
	DOI          string `json:"doi,omitempty" yaml:"doi,omitempty"`
	URL          string `json:"url,omitempty" yaml:"url,omitempty"`
	Publisher    string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Editor       string `json:"editor,omitempty" yaml:"editor,omitempty"`
	Address      string `json:"address,omitempty" yaml:"address,omitempty"`
	Edition      string `json:"edition,omitempty" yaml:"edition,omitempty"`
	Series       string `json:"series,omitempty" yaml:"series,omitempty"`
	Chapter      string `json:"chapter,omitempty" yaml:"chapter,omitempty"`
	School       string `json:"school,omitempty" yaml:"school,omitempty"`
	Institution  string `json:"institution,omitempty" yaml:"institution,omitempty"`
	Organization string `json:"organization,omitempty" yaml:"organization,omitempty"`
	Note         string `json:"note,omitempty" yaml:"note,omitempty"`
	Abstract     string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Keywords     string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	ISSN         string `json:"issn,omitempty" yaml:"issn,omitempty"`
	ISBN         string `json:"isbn,omitempty" yaml:"isbn,omitempty"`
}

// citationKeyPattern is the key-format invariant: keys citable via [@id].
var citationKeyPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-:.]*$`)

// ValidCitationKey reports whether key can be used as a citation key.
func ValidCitationKey(key string) bool {
	return citationKeyPattern.MatchString(key)
}
