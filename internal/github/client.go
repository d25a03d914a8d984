// Package github reads repository trees through the GitHub REST contents API.
//
// Client wraps the raw endpoints; Fetcher walks a repository depth-first,
// applies a path filter, and assembles the decoded file bodies into an
// aggregate document.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taigrr/contextgen/internal/types"
	"github.com/taigrr/contextgen/internal/uri"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com"
	// APIVersion is sent as X-GitHub-Api-Version on every request.
	APIVersion = "2022-11-28"
)

// Options configures a Client.
type Options struct {
	Token      string
	APIURL     string
	HTTPClient *http.Client
}

// Client provides access to the GitHub contents API.
type Client struct {
	token   string
	apiURL  string
	httpCli *http.Client
}

// rawHost serves download URLs for the public API.
const rawHost = "raw.githubusercontent.com"

// Content is one item returned by the contents API.
type Content struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
	HTMLURL     string `json:"html_url"`
	GitURL      string `json:"git_url"`
	DownloadURL string `json:"download_url"`
	Type        string `json:"type"`
	Content     string `json:"content,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
}

// Entry converts c to a tree entry.
func (c Content) Entry() types.TreeEntry {
	kind := types.EntryOther
	switch c.Type {
	case "file":
		kind = types.EntryFile
	case "dir":
		kind = types.EntryDir
	}
	return types.TreeEntry{
		Path: c.Path,
		Kind: kind,
		Size: c.Size,
		Ref:  c.DownloadURL,
	}
}

// NewClient creates a new GitHub client. A token is required.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, &types.ConfigurationError{
			Field: "github.token",
			Err:   fmt.Errorf("GitHub token must not be blank"),
		}
	}

	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if u, err := url.Parse(apiURL); err != nil || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing host in %q", apiURL)
		}
		return nil, &types.ConfigurationError{Field: "github.apiUrl", Err: err}
	}

	httpCli := opts.HTTPClient
	if httpCli == nil {
		httpCli = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{
		token:   strings.TrimSpace(opts.Token),
		apiURL:  strings.TrimRight(apiURL, "/"),
		httpCli: httpCli,
	}, nil
}

// ListContents lists a directory of the repository. An empty path lists
// the root.
func (c *Client) ListContents(ctx context.Context, repo types.RemoteSource, path string) ([]Content, error) {
	body, err := c.get(ctx, "listing", c.contentsURL(repo, path), path, true)
	if err != nil {
		return nil, err
	}

	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] != '[' {
		return nil, &types.RemoteAccessError{Op: "listing", Path: path, Err: fmt.Errorf("not a directory")}
	}

	var contents []Content
	if err := json.Unmarshal(body, &contents); err != nil {
		return nil, &types.RemoteAccessError{Op: "listing", Path: path, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return contents, nil
}

// GetFile fetches a single file, including its encoded body.
func (c *Client) GetFile(ctx context.Context, repo types.RemoteSource, path string) (Content, error) {
	body, err := c.get(ctx, "fetching", c.contentsURL(repo, path), path, true)
	if err != nil {
		return Content{}, err
	}

	var content Content
	if err := json.Unmarshal(body, &content); err != nil {
		return Content{}, &types.RemoteAccessError{Op: "fetching", Path: path, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return content, nil
}

// DownloadRaw fetches a file body from its download URL. The contents API
// omits inline content for large files; this is the fallback.
func (c *Client) DownloadRaw(ctx context.Context, downloadURL, path string) ([]byte, error) {
	return c.get(ctx, "downloading", downloadURL, path, c.trusted(downloadURL))
}

// trusted reports whether the token may be sent to rawURL: the API host
// itself, or raw.githubusercontent.com when talking to the public API.
func (c *Client) trusted(rawURL string) bool {
	target, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	api, err := url.Parse(c.apiURL)
	if err != nil {
		return false
	}

	if strings.EqualFold(target.Host, api.Host) && target.Scheme == api.Scheme {
		return true
	}
	return c.apiURL == DefaultAPIURL && target.Scheme == "https" && strings.EqualFold(target.Host, rawHost)
}

func (c *Client) contentsURL(repo types.RemoteSource, path string) string {
	u := c.apiURL + uri.ContentsPath(repo.Owner, repo.Repo, path)
	if repo.Ref != "" {
		u += "?ref=" + url.QueryEscape(repo.Ref)
	}
	return u
}

func (c *Client) get(ctx context.Context, op, rawURL, path string, auth bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.RemoteAccessError{Op: op, Path: path, Err: fmt.Errorf("creating request: %w", err)}
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", APIVersion)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, &types.RemoteAccessError{Op: op, Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.RemoteAccessError{Op: op, Path: path, Err: fmt.Errorf("reading response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &types.RemoteAccessError{Op: op, Path: path, Status: resp.StatusCode,
			Err: fmt.Errorf("authentication failed: %s", strings.TrimSpace(string(body)))}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &types.RemoteAccessError{Op: op, Path: path, Status: resp.StatusCode,
			Err: fmt.Errorf("not found")}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &types.RemoteAccessError{Op: op, Path: path, Status: resp.StatusCode,
			Err: fmt.Errorf("GitHub API error: %s", strings.TrimSpace(string(body)))}
	}

	return body, nil
}
