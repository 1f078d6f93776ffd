package bibtex

import (
	"strings"
	"testing"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
)

func TestParseEntry_BasicArticle(t *testing.T) {
	entry := `@article{smith2024,
  title = {A Study of Things},
  author = {Smith, John and Doe, Jane},
  year = {2024},
  journal = {Nature},
  volume = {12},
  pages = {100--110},
  doi = {10.1234/abcd}
}`

	ref, err := ParseEntry(entry)
	if err != nil {
		t.Fatalf("ParseEntry() error = %v", err)
	}

	if ref.ID != "smith2024" {
		t.Errorf("ID = %q, want smith2024", ref.ID)
	}
	if ref.Type != "article" {
		t.Errorf("Type = %q, want article", ref.Type)
	}
	if ref.Title != "A Study of Things" {
		t.Errorf("Title = %q", ref.Title)
	}
	if ref.Author != "Smith, John and Doe, Jane" {
		t.Errorf("Author = %q", ref.Author)
	}
	if ref.Year != "2024" {
		t.Errorf("Year = %q, want 2024", ref.Year)
	}
	if ref.Journal != "Nature" {
		t.Errorf("Journal = %q, want Nature", ref.Journal)
	}
	if ref.Volume != "12" {
		t.Errorf("Volume = %q, want 12", ref.Volume)
	}
	if ref.DOI != "10.1234/abcd" {
		t.Errorf("DOI = %q", ref.DOI)
	}
}

func TestParseEntry_QuotedValuesAndCase(t *testing.T) {
	entry := `@Book{Lamport86,
  TITLE = "LaTeX: A Document Preparation System",
  Author = "Lamport, Leslie",
  YEAR = "1986",
  Publisher = "Addison-Wesley"
}`

	ref, err := ParseEntry(entry)
	if err != nil {
		t.Fatalf("ParseEntry() error = %v", err)
	}
	if ref.Type != "book" {
		t.Errorf("Type = %q, want book (lowercased)", ref.Type)
	}
	if ref.Title != "LaTeX: A Document Preparation System" {
		t.Errorf("Title = %q", ref.Title)
	}
	if ref.Author != "Lamport, Leslie" {
		t.Errorf("Author = %q", ref.Author)
	}
	if ref.Publisher != "Addison-Wesley" {
		t.Errorf("Publisher = %q", ref.Publisher)
	}
}

func TestParseEntry_MandatoryFieldsMissing(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{
			name:  "no header",
			entry: "title = {Orphan}, author = {Nobody}",
		},
		{
			name:  "missing title",
			entry: `@article{key1, author = {Smith, J}, year = {2020}}`,
		},
		{
			name:  "missing author",
			entry: `@article{key1, title = {No Author}, year = {2020}}`,
		},
		{
			name:  "empty",
			entry: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseEntry(tt.entry)
			if err == nil {
				t.Errorf("ParseEntry() = %+v, want error", ref)
			}
		})
	}
}

func TestParseEntry_OptionalFieldsStayEmpty(t *testing.T) {
	entry := `@misc{minimal, title = {Minimal}, author = {A}}`

	ref, err := ParseEntry(entry)
	if err != nil {
		t.Fatalf("ParseEntry() error = %v", err)
	}
	if ref.Year != "" || ref.Journal != "" || ref.DOI != "" || ref.Publisher != "" {
		t.Errorf("optional fields should stay empty, got %+v", ref)
	}
}

func TestParse_DropsBadFragments(t *testing.T) {
	text := `@article{good1, title = {First}, author = {A}}

@article{broken, year = {2020}}

@article{good2, title = {Second}, author = {B}}`

	refs := Parse(text)
	if len(refs) != 2 {
		t.Fatalf("Parse() returned %d refs, want 2", len(refs))
	}
	if refs[0].ID != "good1" || refs[1].ID != "good2" {
		t.Errorf("Parse() ids = %q, %q", refs[0].ID, refs[1].ID)
	}
}

func TestParse_Empty(t *testing.T) {
	if refs := Parse("   \n  "); refs != nil {
		t.Errorf("Parse(blank) = %v, want nil", refs)
	}
}

func TestSerialize_FieldOrderAndOptionals(t *testing.T) {
	ref := manuscript.Reference{
		ID:     "doe2023",
		Type:   "article",
		Title:  "On Serialization",
		Author: "Doe, Jane",
		Year:   "2023",
		DOI:    "10.5555/x",
	}

	got := Serialize(ref)

	if !strings.HasPrefix(got, "@article{doe2023,\n") {
		t.Errorf("Serialize() should start with @article{doe2023, got:\n%s", got)
	}

	titleIdx := strings.Index(got, "title = ")
	authorIdx := strings.Index(got, "author = ")
	yearIdx := strings.Index(got, "year = ")
	if !(titleIdx < authorIdx && authorIdx < yearIdx) {
		t.Errorf("Serialize() field order wrong:\n%s", got)
	}

	if !strings.Contains(got, "doi = {10.5555/x}") {
		t.Errorf("Serialize() missing doi:\n%s", got)
	}
	if strings.Contains(got, "journal = ") {
		t.Errorf("Serialize() should omit unset journal:\n%s", got)
	}
}

func TestSerialize_DefaultType(t *testing.T) {
	got := Serialize(manuscript.Reference{ID: "x", Title: "T", Author: "A"})
	if !strings.HasPrefix(got, "@article{x,") {
		t.Errorf("Serialize() empty type should default to article:\n%s", got)
	}
}

func TestSerializeAll_BlankLineSeparated(t *testing.T) {
	refs := []manuscript.Reference{
		{ID: "a", Title: "First", Author: "A"},
		{ID: "b", Title: "Second", Author: "B"},
	}
	got := SerializeAll(refs)

	if !strings.Contains(got, "}\n\n@") {
		t.Errorf("SerializeAll() blocks should be separated by a blank line:\n%s", got)
	}
}

func TestRoundTrip(t *testing.T) {
	orig := manuscript.Reference{
		ID:        "garcia2022-x",
		Type:      "inproceedings",
		Title:     "Round Trips Considered",
		Author:    "García, María and Chen, Wei",
		Year:      "2022",
		Booktitle: "Proceedings of Somewhere",
		Pages:     "1--9",
		URL:       "https://example.org/paper",
	}

	parsed, err := ParseEntry(Serialize(orig))
	if err != nil {
		t.Fatalf("re-parsing serialized entry: %v", err)
	}

	if parsed.ID != orig.ID || parsed.Type != orig.Type {
		t.Errorf("identity changed: got %s/%s", parsed.Type, parsed.ID)
	}
	if parsed.Title != orig.Title || parsed.Author != orig.Author || parsed.Year != orig.Year {
		t.Errorf("mandatory fields changed: %+v", parsed)
	}
	if parsed.Booktitle != orig.Booktitle || parsed.Pages != orig.Pages || parsed.URL != orig.URL {
		t.Errorf("populated optional fields changed: %+v", parsed)
	}
	if parsed.Journal != "" || parsed.DOI != "" || parsed.Note != "" {
		t.Errorf("unset optional fields should remain unset: %+v", parsed)
	}
}

func TestExtractCitationKeys(t *testing.T) {
	refs := []manuscript.Reference{
		{ID: "alpha"},
		{ID: "beta"},
		{ID: "alpha"},
		{ID: ""},
		{ID: "gamma"},
		{ID: "beta"},
	}

	got := ExtractCitationKeys(refs)
	want := []string{"alpha", "beta", "gamma"}
	if len(got) != len(want) {
		t.Fatalf("ExtractCitationKeys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExtractCitationKeys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLookup(t *testing.T) {
	refs := []manuscript.Reference{
		{ID: "Smith2020", Title: "first"},
		{ID: "smith2020", Title: "shadowed"},
	}

	ref, ok := Lookup(refs, "SMITH2020")
	if !ok {
		t.Fatal("Lookup() should match case-insensitively")
	}
	if ref.Title != "first" {
		t.Errorf("Lookup() should return the first match, got %q", ref.Title)
	}

	if _, ok := Lookup(refs, "unknown"); ok {
		t.Error("Lookup() should miss on unknown key")
	}
}

func TestMarkdownCitations(t *testing.T) {
	md := "Intro [@smith2020] and more [@doe2021]; again [@smith2020]. Not a cite: [@2bad]."

	got := MarkdownCitations(md)
	want := []string{"smith2020", "doe2021"}
	if len(got) != len(want) {
		t.Fatalf("MarkdownCitations() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MarkdownCitations()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValidCitationKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"smith2020", true},
		{"Smith_2020-a:b.c", true},
		{"a", true},
		{"2020smith", false},
		{"", false},
		{"_lead", false},
		{"has space", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := manuscript.ValidCitationKey(tt.key); got != tt.want {
				t.Errorf("ValidCitationKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
