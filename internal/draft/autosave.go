package draft

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
)

// DefaultQuietPeriod is the autosave debounce window: a burst of edits
// collapses to one save this long after the last edit.
const DefaultQuietPeriod = 2 * time.Second

// Saver persists a draft. *Store satisfies it.
type Saver interface {
	Save(d *manuscript.Draft) error
}

// Autosaver debounces draft saves. Each Edit replaces the pending snapshot
// and restarts the quiet-period timer; the save fires once the timer runs
// out. Edits from a single goroutine are the expected usage, but Autosaver
// is safe for concurrent callers.
type Autosaver struct {
	saver Saver
	quiet time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *manuscript.Draft
}

// NewAutosaver creates an autosaver with the given quiet period.
// A zero or negative quiet period falls back to DefaultQuietPeriod.
func NewAutosaver(saver Saver, quiet time.Duration) *Autosaver {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Autosaver{saver: saver, quiet: quiet}
}

// Edit records the latest draft state and (re)starts the debounce timer.
func (a *Autosaver) Edit(d manuscript.Draft) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = &d
	if a.timer == nil {
		a.timer = time.AfterFunc(a.quiet, a.fire)
	} else {
		a.timer.Reset(a.quiet)
	}
}

// fire saves the pending snapshot when the quiet period elapses.
func (a *Autosaver) fire() {
	a.mu.Lock()
	d := a.pending
	a.pending = nil
	a.mu.Unlock()

	if d == nil {
		return
	}
	if err := a.saver.Save(d); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: autosave failed: %v\n", err)
	}
}

// Flush saves any pending snapshot immediately and cancels the timer.
func (a *Autosaver) Flush() error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	d := a.pending
	a.pending = nil
	a.mu.Unlock()

	if d == nil {
		return nil
	}
	return a.saver.Save(d)
}

// Stop cancels the timer and drops any pending snapshot without saving.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}
	a.pending = nil
}
