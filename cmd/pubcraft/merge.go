package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/github"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/remote"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/resolver"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/session"
)

func init() {
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Open a merge request from the draft branch to publish",
	Long: `Open a pull request from the connected working branch into the publish
branch, submitting the draft for publication review.`,
	Args: cobra.NoArgs,
	RunE: runMerge,
}

func runMerge(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	kv := mustOpenStore(root)
	defer kv.Close()

	mgr := session.NewManager(kv)
	sess := mustCurrentSession(mgr)

	gh := githubClient(mgr)
	res := resolver.New(gh, kv)
	syncer := remote.NewSyncer(gh, res, newDraftStore(kv))

	mr, err := syncer.CreateMergeRequest(cmd.Context(), sess.User.ID)
	if err != nil {
		switch {
		case errors.Is(err, remote.ErrNothingToSync):
			exitWithError(ExitDataError, "%v", err)
		case errors.Is(err, resolver.ErrNoConnection):
			exitWithError(ExitConfigError, "%v", err)
		case errors.Is(err, github.ErrConflict), errors.Is(err, github.ErrAPIError):
			// Typically an already-open request or no diff between branches
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		outputHuman("Opened merge request #%d (%s -> %s)\n%s\n", mr.Number, mr.Head, mr.Base, mr.URL)
		return nil
	}
	return outputJSON(mr)
}
