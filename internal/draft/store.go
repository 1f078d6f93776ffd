// Package draft persists the manuscript draft in a single fixed storage
// slot, with a debounced autosaver providing the only implicit durability
// point between explicit user actions.
package draft

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/kvstore"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
)

// SlotKey is the fixed key holding the draft JSON.
const SlotKey = "pubcraft_draft"

// Store reads and writes the draft slot. Writes are last-write-wins with no
// merge; reads of a corrupt slot degrade to "no draft" rather than failing.
type Store struct {
	kv  *kvstore.Store
	now func() time.Time
}

// NewStore creates a draft store on top of the workspace slot store.
func NewStore(kv *kvstore.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Save stamps UpdatedAt and Dirty on the draft and writes the full object
// to the slot, overwriting any prior value.
func (s *Store) Save(d *manuscript.Draft) error {
	d.UpdatedAt = s.now()
	d.Dirty = true

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	if err := s.kv.Put(kvstore.Persistent, SlotKey, string(data)); err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}
	return nil
}

// Load returns the stored draft, or nil if the slot is absent. A corrupt
// slot is treated as absent: the parse failure is logged, not returned.
func (s *Store) Load() (*manuscript.Draft, error) {
	raw, ok, err := s.kv.Get(kvstore.Persistent, SlotKey)
	if err != nil {
		return nil, fmt.Errorf("reading draft: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var d manuscript.Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: discarding corrupt draft slot: %v\n", err)
		return nil, nil
	}
	return &d, nil
}

// Clear removes the draft slot.
func (s *Store) Clear() error {
	return s.kv.Delete(kvstore.Persistent, SlotKey)
}

// MarkSynced flips the dirty flag to false on the stored draft.
// This is a plain read-modify-write; writes are assumed to originate from a
// single logical thread of execution, so no coordination is applied.
func (s *Store) MarkSynced() error {
	d, err := s.Load()
	if err != nil {
		return err
	}
	if d == nil {
		return nil
	}

	d.Dirty = false
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	return s.kv.Put(kvstore.Persistent, SlotKey, string(data))
}
