package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/draft"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
)

func init() {
	draftCmd.AddCommand(draftWatchCmd)
}

var draftWatchCmd = &cobra.Command{
	Use:   "watch <file.md>",
	Short: "Watch a markdown file and autosave it into the draft",
	Long: `Watch a markdown file for changes and autosave its content into the
local draft. Bursts of writes collapse into one save two seconds after the
last change. Stop with Ctrl-C; a pending change is flushed on exit.`,
	Args: cobra.ExactArgs(1),
	RunE: runDraftWatch,
}

// touchesFile reports whether a watcher event concerns the watched file.
// Editors commonly save by writing a temp file and renaming it over the
// target, so Create and Rename count alongside Write.
func touchesFile(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != filepath.Clean(path) {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename)
}

func runDraftWatch(cmd *cobra.Command, args []string) error {
	path := args[0]

	root := mustFindWorkspace()
	kv := mustOpenStore(root)
	defer kv.Close()
	drafts := newDraftStore(kv)

	base, err := drafts.Load()
	if err != nil {
		exitWithError(ExitError, "loading draft: %v", err)
	}
	if base == nil {
		base = &manuscript.Draft{}
	}

	saver := draft.NewAutosaver(drafts, draft.DefaultQuietPeriod)
	defer saver.Flush()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		exitWithError(ExitError, "starting watcher: %v", err)
	}
	defer watcher.Close()

	// Watch the parent directory rather than the file itself: the
	// atomic-rename save pattern replaces the file's inode and would
	// silently detach a direct watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		exitWithError(ExitError, "watching %s: %v", filepath.Dir(path), err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	outputHuman("Watching %s (Ctrl-C to stop)\n", path)

	for {
		select {
		case <-sig:
			if err := saver.Flush(); err != nil {
				exitWithError(ExitError, "flushing draft: %v", err)
			}
			outputHuman("Stopped\n")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !touchesFile(event, path) {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			d := *base
			d.Markdown = string(data)
			saver.Edit(d)
			base = &d
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			outputHuman("Warning: watch error: %v\n", err)
		}
	}
}
