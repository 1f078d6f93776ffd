package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Branch is a repository branch with its head commit.
type Branch struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// ListBranches returns the repository's branches.
func (c *Client) ListBranches(ctx context.Context, owner, repo string) ([]Branch, error) {
	var branches []Branch
	path := fmt.Sprintf("/repos/%s/%s/branches?per_page=100",
		url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodGet, path, nil, &branches); err != nil {
		return nil, fmt.Errorf("listing branches for %s/%s: %w", owner, repo, err)
	}
	return branches, nil
}

// GetBranch fetches one branch, including its head SHA.
func (c *Client) GetBranch(ctx context.Context, owner, repo, branch string) (*Branch, error) {
	var b Branch
	path := fmt.Sprintf("/repos/%s/%s/branches/%s",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch))
	if err := c.do(ctx, http.MethodGet, path, nil, &b); err != nil {
		return nil, fmt.Errorf("fetching branch %s: %w", branch, err)
	}
	return &b, nil
}

// createRefRequest is the git-refs payload for branch creation.
type createRefRequest struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// CreateBranch creates a branch pointing at fromSHA.
func (c *Client) CreateBranch(ctx context.Context, owner, repo, branch, fromSHA string) error {
	path := fmt.Sprintf("/repos/%s/%s/git/refs", url.PathEscape(owner), url.PathEscape(repo))
	body := createRefRequest{Ref: "refs/heads/" + branch, SHA: fromSHA}
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("creating branch %s: %w", branch, err)
	}
	return nil
}
