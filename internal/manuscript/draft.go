package manuscript

import "time"

// Draft is the locally persisted snapshot of in-progress manuscript state.
// Exactly one draft exists per workspace, stored in a fixed slot.
// Dirty means local content has not been confirmed pushed to GitHub since
// the last edit.
type Draft struct {
	Markdown   string      `json:"markdown"`
	Metadata   Metadata    `json:"metadata"`
	References []Reference `json:"references"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	Dirty      bool        `json:"dirty"`
}

// FindReference returns the first reference whose ID matches key exactly.
// Duplicate keys are not rejected at write time; consumers resolve citations
// against the first match.
func (d *Draft) FindReference(key string) (*Reference, bool) {
	for i := range d.References {
		if d.References[i].ID == key {
			return &d.References[i], true
		}
	}
	return nil, false
}
