package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// PullRequest is a created pull request.
type PullRequest struct {
	Number  int    `json:"number"`
	State   string `json:"state"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
}

// NewPullRequest describes a pull request to open.
type NewPullRequest struct {
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body,omitempty"`
}

// CreatePullRequest opens a pull request. No mergeability pre-check is
// performed; the API response is the only error signal.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, pr NewPullRequest) (*PullRequest, error) {
	var created PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodPost, path, pr, &created); err != nil {
		return nil, fmt.Errorf("creating pull request %s -> %s: %w", pr.Head, pr.Base, err)
	}
	return &created, nil
}
