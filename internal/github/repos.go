package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// User is the authenticated GitHub user.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Repository is a GitHub repository.
type Repository struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	HTMLURL       string `json:"html_url"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// Organization is an organization the user belongs to.
type Organization struct {
	Login string `json:"login"`
}

// AuthenticatedUser returns the user the token belongs to.
func (c *Client) AuthenticatedUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return &user, nil
}

// ListRepositories returns the repositories the user can push to, most
// recently updated first.
func (c *Client) ListRepositories(ctx context.Context) ([]Repository, error) {
	var repos []Repository
	path := "/user/repos?per_page=100&sort=updated"
	if err := c.do(ctx, http.MethodGet, path, nil, &repos); err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	return repos, nil
}

// ListOrganizations returns the organizations the user belongs to.
func (c *Client) ListOrganizations(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	if err := c.do(ctx, http.MethodGet, "/user/orgs?per_page=100", nil, &orgs); err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	return orgs, nil
}

// GetRepository fetches a repository, including its default branch.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	var r Repository
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodGet, path, nil, &r); err != nil {
		return nil, fmt.Errorf("fetching repository %s/%s: %w", owner, repo, err)
	}
	return &r, nil
}

// createRepositoryRequest is the create-repository payload. AutoInit is
// always set: branch creation needs an initial commit to branch from.
type createRepositoryRequest struct {
	Name     string `json:"name"`
	Private  bool   `json:"private"`
	AutoInit bool   `json:"auto_init"`
}

// CreateRepository creates a repository under the user, or under org when
// org is non-empty. The private flag is fixed at creation time.
func (c *Client) CreateRepository(ctx context.Context, org, name string, private bool) (*Repository, error) {
	path := "/user/repos"
	if org != "" {
		path = fmt.Sprintf("/orgs/%s/repos", url.PathEscape(org))
	}

	var repo Repository
	body := createRepositoryRequest{Name: name, Private: private, AutoInit: true}
	if err := c.do(ctx, http.MethodPost, path, body, &repo); err != nil {
		return nil, fmt.Errorf("creating repository %s: %w", name, err)
	}
	return &repo, nil
}
