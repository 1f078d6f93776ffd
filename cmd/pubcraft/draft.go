package main

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/bibtex"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/draft"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
)

var (
	draftSaveFile  string
	draftSaveTitle string
	draftSaveBib   string
)

func init() {
	draftSaveCmd.Flags().StringVarP(&draftSaveFile, "file", "f", "", "Markdown file to save ('-' for stdin)")
	draftSaveCmd.Flags().StringVarP(&draftSaveTitle, "title", "t", "", "Set the manuscript title")
	draftSaveCmd.Flags().StringVarP(&draftSaveBib, "bib", "b", "", "BibTeX file whose entries replace the references")

	draftCmd.AddCommand(draftSaveCmd)
	draftCmd.AddCommand(draftShowCmd)
	draftCmd.AddCommand(draftStatusCmd)
	draftCmd.AddCommand(draftClearCmd)
	rootCmd.AddCommand(draftCmd)
}

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Manage the local manuscript draft",
}

var draftSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save manuscript content into the local draft",
	Long: `Save manuscript content into the local draft slot.

The draft is marked dirty until the next successful sync.

Example:
  pubcraft draft save --file paper.md --title "My Paper"`,
	Args: cobra.NoArgs,
	RunE: runDraftSave,
}

func runDraftSave(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	kv := mustOpenStore(root)
	defer kv.Close()
	drafts := newDraftStore(kv)

	d, err := drafts.Load()
	if err != nil {
		exitWithError(ExitError, "loading draft: %v", err)
	}
	if d == nil {
		d = &manuscript.Draft{}
	}

	if draftSaveFile != "" {
		var data []byte
		if draftSaveFile == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(draftSaveFile)
		}
		if err != nil {
			exitWithError(ExitDataError, "reading markdown: %v", err)
		}
		d.Markdown = string(data)
	}
	if draftSaveTitle != "" {
		d.Metadata.Title = draftSaveTitle
	}
	if draftSaveBib != "" {
		data, err := os.ReadFile(draftSaveBib)
		if err != nil {
			exitWithError(ExitDataError, "reading bibliography: %v", err)
		}
		d.References = bibtex.Parse(string(data))
	}

	if err := drafts.Save(d); err != nil {
		exitWithError(ExitError, "saving draft: %v", err)
	}

	if humanOutput {
		outputHuman("Draft saved (%d references)\n", len(d.References))
		return nil
	}
	return outputJSON(StatusResponse{Status: "saved"})
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the local draft",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()

		d := mustLoadDraft(newDraftStore(kv))
		if humanOutput {
			outputHuman("%s", d.Markdown)
			return nil
		}
		return outputJSON(d)
	},
}

// DraftStatus is the response for draft status.
type DraftStatus struct {
	Exists     bool      `json:"exists"`
	Title      string    `json:"title,omitempty"`
	Dirty      bool      `json:"dirty"`
	UpdatedAt  time.Time `json:"updatedAt,omitzero"`
	References int       `json:"references"`
}

var draftStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report draft state and sync dirtiness",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()

		d, err := newDraftStore(kv).Load()
		if err != nil {
			exitWithError(ExitError, "loading draft: %v", err)
		}

		status := DraftStatus{}
		if d != nil {
			status = DraftStatus{
				Exists:     true,
				Title:      d.Metadata.Title,
				Dirty:      d.Dirty,
				UpdatedAt:  d.UpdatedAt,
				References: len(d.References),
			}
		}

		if humanOutput {
			if !status.Exists {
				outputHuman("No draft\n")
				return nil
			}
			state := "synced"
			if status.Dirty {
				state = "dirty"
			}
			outputHuman("%s (%s, %d references, updated %s)\n",
				status.Title, state, status.References, status.UpdatedAt.Format(time.RFC3339))
			return nil
		}
		return outputJSON(status)
	},
}

var draftClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the local draft",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()

		if err := newDraftStore(kv).Clear(); err != nil {
			exitWithError(ExitError, "clearing draft: %v", err)
		}
		if humanOutput {
			outputHuman("Draft cleared\n")
			return nil
		}
		return outputJSON(StatusResponse{Status: "cleared"})
	},
}

// mustLoadDraft loads the draft, exits when none exists.
func mustLoadDraft(drafts *draft.Store) *manuscript.Draft {
	d, err := drafts.Load()
	if err != nil {
		exitWithError(ExitError, "loading draft: %v", err)
	}
	if d == nil {
		exitWithError(ExitDataError, "no draft (run 'pubcraft draft save' first)")
	}
	return d
}
