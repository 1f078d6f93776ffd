// Package resolver establishes the remote target of all manuscript syncs:
// the (owner, repo, branch, markdownFile) tuple, the publish/draft branch
// pair, and the draft directory layout. Resolution happens once per editing
// session and is persisted per user until explicitly reconfigured.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/github"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/kvstore"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/slug"
)

// Branch and file layout conventions.
const (
	// PublishBranch is the fixed integration branch.
	PublishBranch = "publish"

	// ManuscriptFileName is the Markdown file inside the draft directory.
	ManuscriptFileName = "pubcraft-manuscript.md"
	// BibFileName is the bibliography file inside the draft directory.
	BibFileName = "pubcraft-reference.bib"
	// MetadataFileName is the metadata file inside the draft directory.
	MetadataFileName = "metadata.yml"
	// PlaceholderFileName keeps the draft directory present in git.
	PlaceholderFileName = ".gitkeep"

	// draftDirPrefix roots every manuscript directory.
	draftDirPrefix = "draft/"

	connectionKeyPrefix = "github_connection_"
)

// Errors.
var (
	ErrMissingInput = errors.New("missing required input")
	ErrNoConnection = errors.New("no repository connection configured")
)

// Connection is the resolved remote target. It is persisted per user and
// not invalidated if the remote repository or branch disappears; a stale
// connection surfaces as API errors on the next sync.
type Connection struct {
	Owner        string    `json:"owner"`
	Repo         string    `json:"repo"`
	Branch       string    `json:"branch"`
	MarkdownFile string    `json:"markdownFile"`
	LastSync     time.Time `json:"lastSync,omitzero"`
}

// DraftBranch derives the per-user draft branch name from a display name:
// the first name, lowercased, non-alphanumerics stripped.
func DraftBranch(displayName string) string {
	first := displayName
	if idx := strings.IndexFunc(displayName, func(r rune) bool { return r == ' ' || r == '\t' }); idx >= 0 {
		first = displayName[:idx]
	}

	var b strings.Builder
	for _, r := range strings.ToLower(first) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = "user"
	}
	return "draft-" + name
}

// ManuscriptDir returns the remote directory for a manuscript title.
func ManuscriptDir(title string) string {
	return draftDirPrefix + slug.Make(title)
}

// ManuscriptPath returns the remote path of the manuscript Markdown file.
func ManuscriptPath(title string) string {
	return ManuscriptDir(title) + "/" + ManuscriptFileName
}

// BibPath returns the remote path of the bibliography file.
func BibPath(title string) string {
	return ManuscriptDir(title) + "/" + BibFileName
}

// MetadataPath returns the remote path of the metadata file.
func MetadataPath(title string) string {
	return ManuscriptDir(title) + "/" + MetadataFileName
}

// Resolver drives connection setup against the GitHub API and persists the
// result.
type Resolver struct {
	gh *github.Client
	kv *kvstore.Store
}

// New creates a resolver.
func New(gh *github.Client, kv *kvstore.Store) *Resolver {
	return &Resolver{gh: gh, kv: kv}
}

// NewRepositoryParams describes the new-repository entry path.
type NewRepositoryParams struct {
	// Org is the owning organization; empty means the user's account.
	Org     string
	Name    string
	Private bool
	// Title is the manuscript title driving the directory layout.
	Title string
	// DisplayName is the user's display name, for the draft branch.
	DisplayName string
	// UserID keys the persisted connection.
	UserID string
}

// CreateRepository creates a repository, the publish/draft branch pair, and
// the seeded draft file set, then persists the resulting connection.
func (r *Resolver) CreateRepository(ctx context.Context, p NewRepositoryParams) (*Connection, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: repository name", ErrMissingInput)
	}
	if p.Title == "" {
		return nil, fmt.Errorf("%w: manuscript title", ErrMissingInput)
	}

	repo, err := r.gh.CreateRepository(ctx, p.Org, p.Name, p.Private)
	if err != nil {
		return nil, fmt.Errorf("creating repository: %w", err)
	}

	draftBranch := DraftBranch(p.DisplayName)
	if err := r.createBranchPair(ctx, repo.Owner.Login, repo.Name, repo.DefaultBranch, PublishBranch, draftBranch); err != nil {
		return nil, err
	}

	if err := r.seedFiles(ctx, repo.Owner.Login, repo.Name, draftBranch, p.Title); err != nil {
		return nil, err
	}

	conn := &Connection{
		Owner:        repo.Owner.Login,
		Repo:         repo.Name,
		Branch:       draftBranch,
		MarkdownFile: ManuscriptPath(p.Title),
	}
	if err := r.SaveConnection(p.UserID, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// ExistingRepositoryParams describes the existing-repository entry path.
// Repo, Branch, and MarkdownFile come from live-fetched lists.
type ExistingRepositoryParams struct {
	Owner        string
	Repo         string
	Branch       string
	MarkdownFile string
	Title        string
	DisplayName  string
	UserID       string
}

// ConnectExisting resolves a connection to a repository the user picked.
// When the repository lacks the publish or draft branch, both missing
// branches are created from the default branch before the chosen file is
// used, and the draft file set is seeded into the draft branch.
func (r *Resolver) ConnectExisting(ctx context.Context, p ExistingRepositoryParams) (*Connection, error) {
	if p.Owner == "" || p.Repo == "" {
		return nil, fmt.Errorf("%w: repository owner and name", ErrMissingInput)
	}
	if p.Branch == "" || p.MarkdownFile == "" {
		return nil, fmt.Errorf("%w: branch and markdown file", ErrMissingInput)
	}

	branches, err := r.gh.ListBranches(ctx, p.Owner, p.Repo)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	have := make(map[string]bool, len(branches))
	for _, b := range branches {
		have[b.Name] = true
	}

	draftBranch := DraftBranch(p.DisplayName)
	if !have[PublishBranch] || !have[draftBranch] {
		// Seeding lays files out under draft/<slug>/, so the title is
		// required whenever branches have to be created.
		if p.Title == "" {
			return nil, fmt.Errorf("%w: manuscript title", ErrMissingInput)
		}

		repo, err := r.gh.GetRepository(ctx, p.Owner, p.Repo)
		if err != nil {
			return nil, fmt.Errorf("fetching repository: %w", err)
		}

		var missing []string
		if !have[PublishBranch] {
			missing = append(missing, PublishBranch)
		}
		if !have[draftBranch] {
			missing = append(missing, draftBranch)
		}
		if err := r.createBranchPair(ctx, p.Owner, p.Repo, repo.DefaultBranch, missing...); err != nil {
			return nil, err
		}

		if err := r.seedFiles(ctx, p.Owner, p.Repo, draftBranch, p.Title); err != nil {
			return nil, err
		}
	}

	conn := &Connection{
		Owner:        p.Owner,
		Repo:         p.Repo,
		Branch:       p.Branch,
		MarkdownFile: p.MarkdownFile,
	}
	if err := r.SaveConnection(p.UserID, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// createBranchPair creates the named branches from the head of the default
// branch. Independent creations are issued concurrently and jointly awaited.
func (r *Resolver) createBranchPair(ctx context.Context, owner, repo, defaultBranch string, names ...string) error {
	base, err := r.gh.GetBranch(ctx, owner, repo, defaultBranch)
	if err != nil {
		return fmt.Errorf("resolving default branch %s: %w", defaultBranch, err)
	}

	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			errs[i] = r.gh.CreateBranch(ctx, owner, repo, name, base.Commit.SHA)
		}(i, name)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// seedFiles populates the draft branch with the fixed file set under
// draft/<slug>/.
func (r *Resolver) seedFiles(ctx context.Context, owner, repo, branch, title string) error {
	meta := manuscript.Metadata{
		Title:  title,
		Author: manuscript.AuthorList{},
	}
	metaYAML, err := manuscript.EncodeMetadataYAML(meta)
	if err != nil {
		return err
	}

	files := []struct {
		path    string
		content []byte
	}{
		{ManuscriptPath(title), []byte(SeedManuscript(title))},
		{MetadataPath(title), metaYAML},
		{BibPath(title), []byte("")},
		{ManuscriptDir(title) + "/" + PlaceholderFileName, []byte("")},
	}

	for _, f := range files {
		_, err := r.gh.PutFile(ctx, owner, repo, f.path, github.PutFileOptions{
			Message: "Initialize manuscript files",
			Content: f.content,
			Branch:  branch,
		})
		if err != nil {
			return fmt.Errorf("seeding %s: %w", f.path, err)
		}
	}
	return nil
}

// SeedManuscript is the initial manuscript document: a YAML-include header
// pointing at the sibling metadata file, then a title heading.
func SeedManuscript(title string) string {
	return fmt.Sprintf("---\nmetadata-file: %s\n---\n\n# %s\n", MetadataFileName, title)
}

// ListMarkdownFiles returns the root-level Markdown files on a branch.
func (r *Resolver) ListMarkdownFiles(ctx context.Context, owner, repo, branch string) ([]string, error) {
	entries, err := r.gh.ListDirectory(ctx, owner, repo, "", branch)
	if err != nil {
		return nil, fmt.Errorf("listing repository root: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.Type == "file" && strings.HasSuffix(strings.ToLower(e.Name), ".md") {
			files = append(files, e.Name)
		}
	}
	return files, nil
}

// SaveConnection persists a connection under the user's key.
func (r *Resolver) SaveConnection(userID string, conn *Connection) error {
	data, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("encoding connection: %w", err)
	}
	return r.kv.Put(kvstore.Persistent, connectionKeyPrefix+userID, string(data))
}

// LoadConnection returns the persisted connection for a user, or
// ErrNoConnection when none exists.
func (r *Resolver) LoadConnection(userID string) (*Connection, error) {
	raw, ok, err := r.kv.Get(kvstore.Persistent, connectionKeyPrefix+userID)
	if err != nil {
		return nil, fmt.Errorf("reading connection: %w", err)
	}
	if !ok {
		return nil, ErrNoConnection
	}

	var conn Connection
	if err := json.Unmarshal([]byte(raw), &conn); err != nil {
		return nil, fmt.Errorf("parsing connection: %w", err)
	}
	return &conn, nil
}

// ClearConnection removes the persisted connection for a user.
func (r *Resolver) ClearConnection(userID string) error {
	return r.kv.Delete(kvstore.Persistent, connectionKeyPrefix+userID)
}
