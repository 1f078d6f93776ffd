package draft

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/kvstore"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
)

func newTestStore(t *testing.T) (*Store, *kvstore.Store) {
	t.Helper()
	kv, err := kvstore.Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("opening kvstore: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return NewStore(kv), kv
}

func TestSaveLoad(t *testing.T) {
	store, _ := newTestStore(t)

	d := manuscript.Draft{
		Markdown: "# Hello [@smith2020]",
		Metadata: manuscript.Metadata{Title: "My Paper"},
		References: []manuscript.Reference{
			{ID: "smith2020", Type: "article", Title: "T", Author: "Smith"},
		},
	}
	before := time.Now()
	if err := store.Save(&d); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !d.Dirty {
		t.Error("Save() should mark the draft dirty")
	}
	if d.UpdatedAt.Before(before) {
		t.Error("Save() should stamp UpdatedAt")
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil {
		t.Fatal("Load() returned nil after Save()")
	}
	if got.Markdown != d.Markdown || got.Metadata.Title != "My Paper" {
		t.Errorf("Load() = %+v", got)
	}
	if len(got.References) != 1 || got.References[0].ID != "smith2020" {
		t.Errorf("Load() references = %+v", got.References)
	}
	if !got.Dirty {
		t.Error("loaded draft should be dirty")
	}
}

func TestLoad_Absent(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != nil {
		t.Errorf("Load() on empty store = %+v, want nil", got)
	}
}

func TestLoad_CorruptTreatedAsAbsent(t *testing.T) {
	store, kv := newTestStore(t)

	if err := kv.Put(kvstore.Persistent, SlotKey, "{not json"); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() corrupt slot should not error, got %v", err)
	}
	if got != nil {
		t.Errorf("Load() corrupt slot = %+v, want nil", got)
	}
}

func TestSave_LastWriteWins(t *testing.T) {
	store, _ := newTestStore(t)

	first := manuscript.Draft{Markdown: "v1"}
	second := manuscript.Draft{Markdown: "v2"}
	if err := store.Save(&first); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(&second); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Load()
	if got.Markdown != "v2" {
		t.Errorf("Load() = %q, want v2", got.Markdown)
	}
}

func TestClear(t *testing.T) {
	store, _ := newTestStore(t)

	d := manuscript.Draft{Markdown: "x"}
	store.Save(&d)
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	got, _ := store.Load()
	if got != nil {
		t.Errorf("Load() after Clear() = %+v, want nil", got)
	}
}

func TestMarkSynced(t *testing.T) {
	store, _ := newTestStore(t)

	d := manuscript.Draft{Markdown: "x"}
	store.Save(&d)

	if err := store.MarkSynced(); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}

	got, _ := store.Load()
	if got.Dirty {
		t.Error("MarkSynced() should clear the dirty flag")
	}
	if got.Markdown != "x" {
		t.Errorf("MarkSynced() should preserve content, got %q", got.Markdown)
	}
}

func TestMarkSynced_NoDraft(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.MarkSynced(); err != nil {
		t.Errorf("MarkSynced() with no draft should be a no-op, got %v", err)
	}
}
