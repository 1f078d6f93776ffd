// Package main provides the pubcraft CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/config"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/draft"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/github"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/kvstore"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/session"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pubcraft",
	Short: "Manuscript workspace with GitHub-backed publishing",
	Long: `pubcraft manages a scientific manuscript workspace.

Core features:
  - Local draft persistence (Markdown body, YAML metadata, BibTeX references)
  - ORCID login and GitHub account linking
  - Repository connections with publish/draft branch layout
  - Sync to GitHub and merge requests for publication review

Drafts live in a local SQLite slot store under .pubcraft/.
All commands output JSON by default for scripting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// mustFindWorkspace finds the workspace root, exits on error.
func mustFindWorkspace() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}
	root, err := config.FindWorkspace(cwd)
	if err != nil {
		exitWithError(ExitConfigError, "%v\n\nRun 'pubcraft init' to create a workspace here.", err)
	}
	return root
}

// mustOpenStore opens the workspace slot store, exits on error.
// The caller is responsible for calling Close() on the returned store.
func mustOpenStore(root string) *kvstore.Store {
	kv, err := kvstore.Open(config.StorePath(root))
	if err != nil {
		exitWithError(ExitError, "opening store: %v", err)
	}
	return kv
}

// mustCurrentSession returns the active ORCID session, refreshing its
// activity timestamp. Exits when not logged in or the session has expired.
func mustCurrentSession(mgr *session.Manager) *session.Session {
	s, err := mgr.Current()
	if err != nil {
		exitWithError(ExitError, "reading session: %v", err)
	}
	if s == nil {
		exitWithError(ExitAuthError, "not logged in (run 'pubcraft login orcid')")
	}
	if err := mgr.Touch(); err != nil {
		exitWithError(ExitError, "refreshing session: %v", err)
	}
	return s
}

// githubClient builds an API client, preferring the linked account's token
// over the global config token. The client itself falls back to the
// GITHUB_TOKEN environment variable.
func githubClient(mgr *session.Manager) *github.Client {
	if link, err := mgr.GitHub(); err == nil && link != nil && link.Token != "" {
		return github.NewClient(github.WithToken(link.Token))
	}
	if token := config.GetGitHubToken(); token != "" {
		return github.NewClient(github.WithToken(token))
	}
	return github.NewClient()
}

// newDraftStore opens the draft store for the current workspace.
func newDraftStore(kv *kvstore.Store) *draft.Store {
	return draft.NewStore(kv)
}
