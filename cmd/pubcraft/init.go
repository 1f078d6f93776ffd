package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/config"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
)

var initTitle string

func init() {
	initCmd.Flags().StringVarP(&initTitle, "title", "t", "", "Manuscript title for the initial draft")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a manuscript workspace in the current directory",
	Long: `Initialize a manuscript workspace.

Creates the .pubcraft directory and the slot store. With --title, an initial
draft is saved.

Example:
  pubcraft init --title "My Paper: A Study"`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	if config.IsWorkspace(cwd) {
		exitWithError(ExitError, "workspace already initialized at %s", config.WorkspacePath(cwd))
	}
	if err := config.InitWorkspace(cwd); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	kv := mustOpenStore(cwd)
	defer kv.Close()

	if initTitle != "" {
		drafts := newDraftStore(kv)
		d := &manuscript.Draft{
			Markdown: "# " + initTitle + "\n",
			Metadata: manuscript.Metadata{Title: initTitle},
		}
		if err := drafts.Save(d); err != nil {
			exitWithError(ExitError, "saving initial draft: %v", err)
		}
	}

	if humanOutput {
		outputHuman("Initialized workspace at %s\n", config.WorkspacePath(cwd))
		return nil
	}
	return outputJSON(StatusResponse{Status: "initialized", Path: config.WorkspacePath(cwd)})
}
