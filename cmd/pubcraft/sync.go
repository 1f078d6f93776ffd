package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/remote"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/resolver"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/session"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push the local draft to the connected repository",
	Long: `Commit the local draft to the connected repository's working branch.

The manuscript file is written first, then the metadata and the
bibliography; an empty bibliography is skipped. When the title changed,
files under the old draft directory are removed best-effort.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	kv := mustOpenStore(root)
	defer kv.Close()

	mgr := session.NewManager(kv)
	sess := mustCurrentSession(mgr)

	gh := githubClient(mgr)
	res := resolver.New(gh, kv)
	syncer := remote.NewSyncer(gh, res, newDraftStore(kv))

	result, err := syncer.Sync(cmd.Context(), sess.User.ID)
	if err != nil {
		switch {
		case errors.Is(err, remote.ErrNothingToSync):
			exitWithError(ExitDataError, "%v", err)
		case errors.Is(err, resolver.ErrNoConnection):
			exitWithError(ExitConfigError, "%v (run 'pubcraft connect new' or 'pubcraft connect existing')", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		outputHuman("Synced %s\n", result.ManuscriptPath)
		if result.BibWritten {
			outputHuman("Synced %s\n", result.BibPath)
		}
		if result.RenamedFrom != "" {
			outputHuman("Renamed from %s\n", result.RenamedFrom)
		}
		for _, f := range result.DeleteFailures {
			outputHuman("Warning: could not remove %s: %s\n", f.Path, f.Reason)
		}
		return nil
	}
	return outputJSON(result)
}
