package manuscript

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Metadata holds the manuscript front matter written to metadata.yml.
type Metadata struct {
	Title        string        `json:"title" yaml:"title"`
	Subtitle     string        `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Author       AuthorList    `json:"author" yaml:"author"`
	Abstract     string        `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Funding      string        `json:"funding,omitempty" yaml:"funding,omitempty"`
	Keywords     []string      `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Affiliations []Affiliation `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`
}

// AuthorMeta describes one author in the multi-author form.
type AuthorMeta struct {
	Name          string           `json:"name" yaml:"name"`
	Corresponding bool             `json:"corresponding,omitempty" yaml:"corresponding,omitempty"`
	Email         string           `json:"email,omitempty" yaml:"email,omitempty"`
	Affiliations  []AffiliationRef `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`
	Roles         []string         `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// AffiliationRef points at an entry in Metadata.Affiliations by id.
type AffiliationRef struct {
	Ref string `json:"ref" yaml:"ref"`
}

// Affiliation describes an institution authors can reference.
type Affiliation struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// AuthorList is the author field, which source documents write either as a
// single name string or as a list of author records. The variant is resolved
// once here, at the decode boundary; consumers only ever see Authors.
type AuthorList struct {
	// Single holds the bare-string form; empty when Authors is populated.
	Single string
	// Authors holds the structured form; nil when Single is populated.
	Authors []AuthorMeta
}

// IsList reports whether the structured multi-author form is in use.
func (a AuthorList) IsList() bool { return a.Authors != nil }

// Names returns the author display names regardless of variant.
func (a AuthorList) Names() []string {
	if !a.IsList() {
		if a.Single == "" {
			return nil
		}
		return []string{a.Single}
	}
	names := make([]string, len(a.Authors))
	for i, m := range a.Authors {
		names[i] = m.Name
	}
	return names
}

// Corresponding returns the corresponding authors in the structured form.
// A corresponding author without an email is still returned; rendering
// degrades gracefully when the email is absent.
func (a AuthorList) Corresponding() []AuthorMeta {
	var out []AuthorMeta
	for _, m := range a.Authors {
		if m.Corresponding {
			out = append(out, m)
		}
	}
	return out
}

// UnmarshalYAML accepts either a scalar name or a sequence of author records.
func (a *AuthorList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		a.Authors = nil
		return value.Decode(&a.Single)
	case yaml.SequenceNode:
		a.Single = ""
		return value.Decode(&a.Authors)
	default:
		return fmt.Errorf("author: expected string or sequence, got yaml kind %d", value.Kind)
	}
}

// MarshalYAML emits the variant that was decoded.
func (a AuthorList) MarshalYAML() (interface{}, error) {
	if a.IsList() {
		return a.Authors, nil
	}
	return a.Single, nil
}

// UnmarshalJSON accepts either a string or an array of author records.
func (a *AuthorList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Single = s
		a.Authors = nil
		return nil
	}
	var metas []AuthorMeta
	if err := json.Unmarshal(data, &metas); err != nil {
		return fmt.Errorf("author: expected string or array: %w", err)
	}
	a.Single = ""
	a.Authors = metas
	return nil
}

// MarshalJSON emits the variant that was decoded.
func (a AuthorList) MarshalJSON() ([]byte, error) {
	if a.IsList() {
		return json.Marshal(a.Authors)
	}
	return json.Marshal(a.Single)
}

// EncodeMetadataYAML renders metadata as the metadata.yml document.
func EncodeMetadataYAML(m Metadata) ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return data, nil
}

// DecodeMetadataYAML parses a metadata.yml document.
func DecodeMetadataYAML(data []byte) (Metadata, error) {
	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("parsing metadata: %w", err)
	}
	return m, nil
}
