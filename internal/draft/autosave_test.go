package draft

import (
	"sync"
	"testing"
	"time"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
)

// countingSaver records every save it receives.
type countingSaver struct {
	mu     sync.Mutex
	drafts []manuscript.Draft
}

func (c *countingSaver) Save(d *manuscript.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drafts = append(c.drafts, *d)
	return nil
}

func (c *countingSaver) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.drafts)
}

func (c *countingSaver) last() manuscript.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drafts[len(c.drafts)-1]
}

func TestAutosaver_BurstCollapsesToOneSave(t *testing.T) {
	saver := &countingSaver{}
	quiet := 30 * time.Millisecond
	a := NewAutosaver(saver, quiet)
	defer a.Stop()

	// A burst of edits inside the quiet window
	for i := 0; i < 5; i++ {
		a.Edit(manuscript.Draft{Markdown: string(rune('a' + i))})
		time.Sleep(quiet / 5)
	}

	// Wait past the quiet period measured from the last edit
	time.Sleep(quiet * 3)

	if got := saver.count(); got != 1 {
		t.Fatalf("burst of 5 edits produced %d saves, want 1", got)
	}
	if saver.last().Markdown != "e" {
		t.Errorf("save should carry the last edit, got %q", saver.last().Markdown)
	}
}

func TestAutosaver_SeparateBurstsSaveSeparately(t *testing.T) {
	saver := &countingSaver{}
	quiet := 20 * time.Millisecond
	a := NewAutosaver(saver, quiet)
	defer a.Stop()

	a.Edit(manuscript.Draft{Markdown: "first"})
	time.Sleep(quiet * 3)
	a.Edit(manuscript.Draft{Markdown: "second"})
	time.Sleep(quiet * 3)

	if got := saver.count(); got != 2 {
		t.Fatalf("two separated edits produced %d saves, want 2", got)
	}
}

func TestAutosaver_FlushSavesImmediately(t *testing.T) {
	saver := &countingSaver{}
	a := NewAutosaver(saver, time.Hour)
	defer a.Stop()

	a.Edit(manuscript.Draft{Markdown: "pending"})
	if err := a.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if saver.count() != 1 {
		t.Fatalf("Flush() produced %d saves, want 1", saver.count())
	}

	// Nothing left pending; a second flush is a no-op.
	if err := a.Flush(); err != nil {
		t.Fatal(err)
	}
	if saver.count() != 1 {
		t.Errorf("second Flush() should not re-save, got %d saves", saver.count())
	}
}

func TestAutosaver_StopDropsPending(t *testing.T) {
	saver := &countingSaver{}
	quiet := 20 * time.Millisecond
	a := NewAutosaver(saver, quiet)

	a.Edit(manuscript.Draft{Markdown: "doomed"})
	a.Stop()
	time.Sleep(quiet * 3)

	if saver.count() != 0 {
		t.Errorf("Stop() should drop the pending edit, got %d saves", saver.count())
	}
}

func TestAutosaver_EndToEndDirtyFlag(t *testing.T) {
	store, _ := newTestStore(t)
	a := NewAutosaver(store, 10*time.Millisecond)
	defer a.Stop()

	a.Edit(manuscript.Draft{Markdown: "content"})
	time.Sleep(50 * time.Millisecond)

	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("autosave never persisted the draft")
	}
	if !got.Dirty {
		t.Error("autosaved draft should be dirty")
	}
}
