package main

import (
	"errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/resolver"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/session"
)

var (
	connectNewName    string
	connectNewOrg     string
	connectNewPrivate bool

	connectExistingOwner  string
	connectExistingRepo   string
	connectExistingBranch string
	connectExistingFile   string

	connectBranchesOwner string
	connectBranchesRepo  string

	connectFilesOwner  string
	connectFilesRepo   string
	connectFilesBranch string
)

func init() {
	// Load .env if present (for GITHUB_TOKEN)
	_ = godotenv.Load()

	connectNewCmd.Flags().StringVarP(&connectNewName, "name", "n", "", "Repository name (required)")
	connectNewCmd.Flags().StringVar(&connectNewOrg, "org", "", "Owning organization (default: personal account)")
	connectNewCmd.Flags().BoolVar(&connectNewPrivate, "private", false, "Create a private repository")
	connectNewCmd.MarkFlagRequired("name")

	connectExistingCmd.Flags().StringVar(&connectExistingOwner, "owner", "", "Repository owner (required)")
	connectExistingCmd.Flags().StringVar(&connectExistingRepo, "repo", "", "Repository name (required)")
	connectExistingCmd.Flags().StringVar(&connectExistingBranch, "branch", "", "Branch to work on (required)")
	connectExistingCmd.Flags().StringVar(&connectExistingFile, "file", "", "Markdown file to edit (required)")
	connectExistingCmd.MarkFlagRequired("owner")
	connectExistingCmd.MarkFlagRequired("repo")
	connectExistingCmd.MarkFlagRequired("branch")
	connectExistingCmd.MarkFlagRequired("file")

	connectBranchesCmd.Flags().StringVar(&connectBranchesOwner, "owner", "", "Repository owner (required)")
	connectBranchesCmd.Flags().StringVar(&connectBranchesRepo, "repo", "", "Repository name (required)")
	connectBranchesCmd.MarkFlagRequired("owner")
	connectBranchesCmd.MarkFlagRequired("repo")

	connectCmd.AddCommand(connectNewCmd)
	connectCmd.AddCommand(connectExistingCmd)
	connectCmd.AddCommand(connectReposCmd)
	connectCmd.AddCommand(connectOrgsCmd)
	connectFilesCmd.Flags().StringVar(&connectFilesOwner, "owner", "", "Repository owner (required)")
	connectFilesCmd.Flags().StringVar(&connectFilesRepo, "repo", "", "Repository name (required)")
	connectFilesCmd.Flags().StringVar(&connectFilesBranch, "branch", "", "Branch to list (required)")
	connectFilesCmd.MarkFlagRequired("owner")
	connectFilesCmd.MarkFlagRequired("repo")
	connectFilesCmd.MarkFlagRequired("branch")

	connectCmd.AddCommand(connectBranchesCmd)
	connectCmd.AddCommand(connectFilesCmd)
	connectCmd.AddCommand(connectShowCmd)
	rootCmd.AddCommand(connectCmd)
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the workspace to a GitHub repository",
}

var connectNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a repository and connect to it",
	Long: `Create a repository, set up the publish and draft branches, and seed the
manuscript file layout under draft/<slug>/.

The draft branch name derives from the logged-in user's first name. The
manuscript title comes from the local draft.

Example:
  pubcraft connect new --name my-paper --private`,
	Args: cobra.NoArgs,
	RunE: runConnectNew,
}

func runConnectNew(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	kv := mustOpenStore(root)
	defer kv.Close()

	mgr := session.NewManager(kv)
	sess := mustCurrentSession(mgr)
	d := mustLoadDraft(newDraftStore(kv))

	res := resolver.New(githubClient(mgr), kv)
	conn, err := res.CreateRepository(cmd.Context(), resolver.NewRepositoryParams{
		Org:         connectNewOrg,
		Name:        connectNewName,
		Private:     connectNewPrivate,
		Title:       d.Metadata.Title,
		DisplayName: sess.User.Name,
		UserID:      sess.User.ID,
	})
	if err != nil {
		if errors.Is(err, resolver.ErrMissingInput) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		outputHuman("Connected to %s/%s on %s (%s)\n", conn.Owner, conn.Repo, conn.Branch, conn.MarkdownFile)
		return nil
	}
	return outputJSON(conn)
}

var connectExistingCmd = &cobra.Command{
	Use:   "existing",
	Short: "Connect to an existing repository",
	Long: `Connect to a repository the user already has. Missing publish or draft
branches are created from the default branch, and the manuscript file layout
is seeded when branches had to be created.

Example:
  pubcraft connect existing --owner jane --repo thesis --branch draft-jane \
    --file draft/thesis/pubcraft-manuscript.md`,
	Args: cobra.NoArgs,
	RunE: runConnectExisting,
}

func runConnectExisting(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	kv := mustOpenStore(root)
	defer kv.Close()

	mgr := session.NewManager(kv)
	sess := mustCurrentSession(mgr)
	d := mustLoadDraft(newDraftStore(kv))

	res := resolver.New(githubClient(mgr), kv)
	conn, err := res.ConnectExisting(cmd.Context(), resolver.ExistingRepositoryParams{
		Owner:        connectExistingOwner,
		Repo:         connectExistingRepo,
		Branch:       connectExistingBranch,
		MarkdownFile: connectExistingFile,
		Title:        d.Metadata.Title,
		DisplayName:  sess.User.Name,
		UserID:       sess.User.ID,
	})
	if err != nil {
		if errors.Is(err, resolver.ErrMissingInput) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		outputHuman("Connected to %s/%s on %s (%s)\n", conn.Owner, conn.Repo, conn.Branch, conn.MarkdownFile)
		return nil
	}
	return outputJSON(conn)
}

// RepoSummary is one row in connect repos output.
type RepoSummary struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"defaultBranch"`
}

var connectReposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List repositories available to the linked account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()

		mgr := session.NewManager(kv)
		mustCurrentSession(mgr)
		gh := githubClient(mgr)

		repos, err := gh.ListRepositories(cmd.Context())
		if err != nil {
			exitWithError(ExitError, "listing repositories: %v", err)
		}

		out := make([]RepoSummary, 0, len(repos))
		for _, r := range repos {
			out = append(out, RepoSummary{
				Owner:         r.Owner.Login,
				Name:          r.Name,
				Private:       r.Private,
				DefaultBranch: r.DefaultBranch,
			})
		}

		if humanOutput {
			for _, r := range out {
				visibility := "public"
				if r.Private {
					visibility = "private"
				}
				outputHuman("%s/%s (%s, default %s)\n", r.Owner, r.Name, visibility, r.DefaultBranch)
			}
			return nil
		}
		return outputJSON(out)
	},
}

var connectOrgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "List organizations the linked account belongs to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()

		mgr := session.NewManager(kv)
		mustCurrentSession(mgr)
		gh := githubClient(mgr)

		orgs, err := gh.ListOrganizations(cmd.Context())
		if err != nil {
			exitWithError(ExitError, "listing organizations: %v", err)
		}

		if humanOutput {
			for _, o := range orgs {
				outputHuman("%s\n", o.Login)
			}
			return nil
		}
		return outputJSON(orgs)
	},
}

var connectBranchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "List branches of a repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()

		mgr := session.NewManager(kv)
		mustCurrentSession(mgr)
		gh := githubClient(mgr)

		branches, err := gh.ListBranches(cmd.Context(), connectBranchesOwner, connectBranchesRepo)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}

		if humanOutput {
			for _, b := range branches {
				outputHuman("%s\n", b.Name)
			}
			return nil
		}
		return outputJSON(branches)
	},
}

var connectFilesCmd = &cobra.Command{
	Use:   "files",
	Short: "List root-level Markdown files on a branch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()

		mgr := session.NewManager(kv)
		mustCurrentSession(mgr)

		res := resolver.New(githubClient(mgr), kv)
		files, err := res.ListMarkdownFiles(cmd.Context(), connectFilesOwner, connectFilesRepo, connectFilesBranch)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}

		if humanOutput {
			for _, f := range files {
				outputHuman("%s\n", f)
			}
			return nil
		}
		return outputJSON(files)
	},
}

var connectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current repository connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()

		mgr := session.NewManager(kv)
		sess := mustCurrentSession(mgr)

		res := resolver.New(githubClient(mgr), kv)
		conn, err := res.LoadConnection(sess.User.ID)
		if err != nil {
			if errors.Is(err, resolver.ErrNoConnection) {
				exitWithError(ExitConfigError, "%v (run 'pubcraft connect new' or 'pubcraft connect existing')", err)
			}
			exitWithError(ExitError, "%v", err)
		}

		if humanOutput {
			outputHuman("%s/%s on %s (%s)\n", conn.Owner, conn.Repo, conn.Branch, conn.MarkdownFile)
			if !conn.LastSync.IsZero() {
				outputHuman("Last sync: %s\n", conn.LastSync.Format("2006-01-02 15:04:05"))
			}
			return nil
		}
		return outputJSON(conn)
	},
}
