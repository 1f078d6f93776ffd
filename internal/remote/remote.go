// Package remote pushes the local draft to the connected GitHub repository
// and opens merge requests from the draft branch into the publish branch.
package remote

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/bibtex"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/draft"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/github"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/resolver"
)

// Commit messages for sync writes.
const (
	manuscriptCommitMessage = "Update manuscript"
	metadataCommitMessage   = "Update metadata"
	bibCommitMessage        = "Update bibliography"
	cleanupCommitMessage    = "Remove files for renamed manuscript"
)

// Errors.
var (
	// ErrNothingToSync is returned when no local draft exists.
	ErrNothingToSync = errors.New("no local draft to sync")
	// ErrIncompleteDraft is returned when the draft lacks a title or
	// content. Sync refuses it before touching the remote.
	ErrIncompleteDraft = errors.New("draft is incomplete")
)

// Syncer commits manuscript files and opens merge requests. now is
// injectable for tests.
type Syncer struct {
	gh     *github.Client
	res    *resolver.Resolver
	drafts *draft.Store
	now    func() time.Time
}

// NewSyncer creates a syncer.
func NewSyncer(gh *github.Client, res *resolver.Resolver, drafts *draft.Store) *Syncer {
	return &Syncer{gh: gh, res: res, drafts: drafts, now: time.Now}
}

// DeleteFailure records one file that could not be removed during a rename
// cleanup. Cleanup is best-effort, so failures are reported, not fatal.
type DeleteFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	ManuscriptPath string          `json:"manuscriptPath"`
	MetadataPath   string          `json:"metadataPath"`
	BibPath        string          `json:"bibPath,omitempty"`
	BibWritten     bool            `json:"bibWritten"`
	RenamedFrom    string          `json:"renamedFrom,omitempty"`
	DeleteFailures []DeleteFailure `json:"deleteFailures,omitempty"`
	SyncedAt       time.Time       `json:"syncedAt"`
}

// Sync commits the local draft to the user's connected repository. The
// manuscript file is always written before the bibliography; an empty
// bibliography is not written at all. When the title's slug has changed
// since the last sync, files under the old directory are removed first,
// best-effort. The stored connection and the local draft are updated only
// when every write succeeds.
func (s *Syncer) Sync(ctx context.Context, userID string) (*SyncResult, error) {
	d, err := s.drafts.Load()
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNothingToSync
	}

	// An empty title would collapse the slug to "draft/", and the rename
	// cleanup below would tear down the previous directory before the new
	// writes fail. Refuse the draft before any API call.
	title := d.Metadata.Title
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: missing manuscript title", ErrIncompleteDraft)
	}
	if strings.TrimSpace(d.Markdown) == "" {
		return nil, fmt.Errorf("%w: missing manuscript content", ErrIncompleteDraft)
	}

	conn, err := s.res.LoadConnection(userID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		ManuscriptPath: resolver.ManuscriptPath(title),
		MetadataPath:   resolver.MetadataPath(title),
	}

	// Title changed since the last sync: clear out the old directory first.
	// Cleanup is best-effort and never blocks the new writes.
	oldDir := path.Dir(conn.MarkdownFile)
	newDir := resolver.ManuscriptDir(title)
	if oldDir != newDir && strings.HasPrefix(oldDir, "draft/") {
		result.RenamedFrom = oldDir
		result.DeleteFailures = s.cleanupDir(ctx, conn, oldDir)
	}

	if err := s.commitFile(ctx, conn, result.ManuscriptPath, []byte(d.Markdown), manuscriptCommitMessage); err != nil {
		return nil, err
	}

	metaYAML, err := manuscript.EncodeMetadataYAML(d.Metadata)
	if err != nil {
		return nil, err
	}
	if err := s.commitFile(ctx, conn, result.MetadataPath, metaYAML, metadataCommitMessage); err != nil {
		return nil, err
	}

	bib := bibtex.SerializeAll(d.References)
	if strings.TrimSpace(bib) != "" {
		result.BibPath = resolver.BibPath(title)
		if err := s.commitFile(ctx, conn, result.BibPath, []byte(bib), bibCommitMessage); err != nil {
			return nil, err
		}
		result.BibWritten = true
	}

	conn.MarkdownFile = result.ManuscriptPath
	conn.LastSync = s.now()
	if err := s.res.SaveConnection(userID, conn); err != nil {
		return nil, err
	}
	if err := s.drafts.MarkSynced(); err != nil {
		return nil, err
	}

	result.SyncedAt = conn.LastSync
	return result, nil
}

// commitFile writes one file on the connection's branch, carrying the prior
// content SHA when the file already exists so the API rejects a write that
// races a newer remote version.
func (s *Syncer) commitFile(ctx context.Context, conn *resolver.Connection, filePath string, content []byte, message string) error {
	var sha string
	existing, err := s.gh.GetContents(ctx, conn.Owner, conn.Repo, filePath, conn.Branch)
	switch {
	case err == nil:
		sha = existing.SHA
	case errors.Is(err, github.ErrNotFound):
		// first write of this file
	default:
		return fmt.Errorf("checking %s: %w", filePath, err)
	}

	_, err = s.gh.PutFile(ctx, conn.Owner, conn.Repo, filePath, github.PutFileOptions{
		Message: message,
		Content: content,
		Branch:  conn.Branch,
		SHA:     sha,
	})
	return err
}

// cleanupDir deletes every file in a directory on the connection's branch,
// collecting failures instead of aborting.
func (s *Syncer) cleanupDir(ctx context.Context, conn *resolver.Connection, dir string) []DeleteFailure {
	entries, err := s.gh.ListDirectory(ctx, conn.Owner, conn.Repo, dir, conn.Branch)
	if err != nil {
		return []DeleteFailure{{Path: dir, Reason: err.Error()}}
	}

	var failures []DeleteFailure
	for _, e := range entries {
		if e.Type != "file" {
			continue
		}
		err := s.gh.DeleteFile(ctx, conn.Owner, conn.Repo, e.Path, github.DeleteFileOptions{
			Message: cleanupCommitMessage,
			SHA:     e.SHA,
			Branch:  conn.Branch,
		})
		if err != nil {
			failures = append(failures, DeleteFailure{Path: e.Path, Reason: err.Error()})
		}
	}
	return failures
}

// MergeRequest summarizes an opened merge request.
type MergeRequest struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	Head   string `json:"head"`
	Base   string `json:"base"`
}

// CreateMergeRequest opens a pull request from the user's draft branch into
// the publish branch.
func (s *Syncer) CreateMergeRequest(ctx context.Context, userID string) (*MergeRequest, error) {
	d, err := s.drafts.Load()
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNothingToSync
	}

	conn, err := s.res.LoadConnection(userID)
	if err != nil {
		return nil, err
	}

	title := d.Metadata.Title
	pr, err := s.gh.CreatePullRequest(ctx, conn.Owner, conn.Repo, github.NewPullRequest{
		Title: fmt.Sprintf("Publish: %s", title),
		Head:  conn.Branch,
		Base:  resolver.PublishBranch,
		Body:  fmt.Sprintf("Submits the latest draft of %q for publication review.", title),
	})
	if err != nil {
		return nil, err
	}

	return &MergeRequest{
		Number: pr.Number,
		URL:    pr.HTMLURL,
		Head:   conn.Branch,
		Base:   resolver.PublishBranch,
	}, nil
}
