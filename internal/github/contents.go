package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ContentFile describes a file (or directory entry) in a repository tree.
type ContentFile struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Type     string `json:"type"` // file or dir
	Content  string `json:"content,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

// DecodedContent returns the file's content bytes. GitHub delivers file
// content base64-encoded with embedded newlines.
func (f *ContentFile) DecodedContent() ([]byte, error) {
	if f.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected content encoding %q", f.Encoding)
	}
	clean := strings.ReplaceAll(f.Content, "\n", "")
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decoding content of %s: %w", f.Path, err)
	}
	return data, nil
}

// contentsPath builds the contents endpoint path with an optional ref.
func contentsPath(owner, repo, filePath, ref string) string {
	p := fmt.Sprintf("/repos/%s/%s/contents/%s",
		url.PathEscape(owner), url.PathEscape(repo), escapePath(filePath))
	if ref != "" {
		p += "?ref=" + url.QueryEscape(ref)
	}
	return p
}

// escapePath escapes each path segment while keeping the separators.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// GetContents fetches a single file's metadata and content on a ref.
// A missing file surfaces as ErrNotFound.
func (c *Client) GetContents(ctx context.Context, owner, repo, filePath, ref string) (*ContentFile, error) {
	var file ContentFile
	if err := c.do(ctx, http.MethodGet, contentsPath(owner, repo, filePath, ref), nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// ListDirectory lists the entries of a directory on a ref. Pass "" for the
// repository root.
func (c *Client) ListDirectory(ctx context.Context, owner, repo, dir, ref string) ([]ContentFile, error) {
	var entries []ContentFile
	if err := c.do(ctx, http.MethodGet, contentsPath(owner, repo, dir, ref), nil, &entries); err != nil {
		return nil, fmt.Errorf("listing %s/%s:%s: %w", owner, repo, dir, err)
	}
	return entries, nil
}

// PutFileOptions carries a create-or-update contents call.
type PutFileOptions struct {
	Message string
	Content []byte
	Branch  string
	// SHA is the prior content hash; required by the API when updating an
	// existing file so a conflicting overwrite is rejected remotely.
	SHA string
}

type putFileRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

// putFileResponse is the subset of the contents response we use.
type putFileResponse struct {
	Content *ContentFile `json:"content"`
}

// PutFile creates or updates a file. Content is base64-encoded from raw
// bytes, which keeps multi-byte UTF-8 intact.
func (c *Client) PutFile(ctx context.Context, owner, repo, filePath string, opts PutFileOptions) (*ContentFile, error) {
	body := putFileRequest{
		Message: opts.Message,
		Content: base64.StdEncoding.EncodeToString(opts.Content),
		Branch:  opts.Branch,
		SHA:     opts.SHA,
	}

	var resp putFileResponse
	path := contentsPath(owner, repo, filePath, "")
	if err := c.do(ctx, http.MethodPut, path, body, &resp); err != nil {
		return nil, fmt.Errorf("writing %s: %w", filePath, err)
	}
	return resp.Content, nil
}

// DeleteFileOptions carries a contents delete call.
type DeleteFileOptions struct {
	Message string
	SHA     string
	Branch  string
}

type deleteFileRequest struct {
	Message string `json:"message"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch,omitempty"`
}

// DeleteFile removes a file on a branch.
func (c *Client) DeleteFile(ctx context.Context, owner, repo, filePath string, opts DeleteFileOptions) error {
	body := deleteFileRequest{Message: opts.Message, SHA: opts.SHA, Branch: opts.Branch}
	path := contentsPath(owner, repo, filePath, "")
	if err := c.do(ctx, http.MethodDelete, path, body, nil); err != nil {
		return fmt.Errorf("deleting %s: %w", filePath, err)
	}
	return nil
}
