package hosting

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/easeaico/context-agent/internal/logging"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultTimeout bounds every API call.
	DefaultTimeout = 10 * time.Second

	userAgent    = "Mozilla/5.0"
	acceptJSON   = "application/vnd.github+json"
	apiVersion   = "2022-11-28"
	maxErrorBody = 64 << 10
)

// Options configures a Client.
type Options struct {
	Token      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the hosting REST API. Reads work without a token; every
// write operation fails with ErrCredentialRequired before touching the
// network when Token is empty.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		token:   opts.Token,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		logger:  logging.OrNop(opts.Logger),
	}
}

// CanWrite reports whether a write credential is configured.
func (c *Client) CanWrite() bool { return c.token != "" }

// DefaultBranch returns the repository's default branch ("main" when the
// API omits it).
func (c *Client) DefaultBranch(ctx context.Context, repo RepoRef) (string, error) {
	var out struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := c.do(ctx, "get repository", http.MethodGet, repoPath(repo), nil, nil, &out); err != nil {
		return "", err
	}
	if out.DefaultBranch == "" {
		return "main", nil
	}
	return out.DefaultBranch, nil
}

// BranchSHA returns the head commit sha of branch.
func (c *Client) BranchSHA(ctx context.Context, repo RepoRef, branch string) (string, error) {
	var out struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	if err := c.do(ctx, "get branch ref", http.MethodGet, repoPath(repo)+"/git/refs/heads/"+escapePath(branch), nil, nil, &out); err != nil {
		return "", err
	}
	if out.Object.SHA == "" {
		return "", fmt.Errorf("get branch ref: no sha for %q", branch)
	}
	return out.Object.SHA, nil
}

// LookupFileSHA returns the blob sha of path on branch. A missing file is
// reported as found == false with a nil error; any other failure is an error.
func (c *Client) LookupFileSHA(ctx context.Context, repo RepoRef, path, branch string) (sha string, found bool, err error) {
	var out struct {
		SHA  string `json:"sha"`
		Type string `json:"type"`
	}
	q := url.Values{}
	if branch != "" {
		q.Set("ref", branch)
	}

	err = c.do(ctx, "get file", http.MethodGet, contentsPath(repo, path), q, nil, &out)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if out.Type != "" && out.Type != "file" {
		return "", false, fmt.Errorf("get file: %q is a %s, not a file", path, out.Type)
	}
	return out.SHA, out.SHA != "", nil
}

// CreateBranch creates name pointing at the head of from. An empty from
// selects the repository's default branch. A taken name yields an error
// matching ErrBranchExists.
func (c *Client) CreateBranch(ctx context.Context, repo RepoRef, name, from string) (BranchRef, error) {
	if !c.CanWrite() {
		return BranchRef{}, ErrCredentialRequired
	}

	if from == "" {
		def, err := c.DefaultBranch(ctx, repo)
		if err != nil {
			return BranchRef{}, err
		}
		from = def
	}
	sha, err := c.BranchSHA(ctx, repo, from)
	if err != nil {
		return BranchRef{}, err
	}

	body := map[string]string{
		"ref": "refs/heads/" + name,
		"sha": sha,
	}
	err = c.do(ctx, "create branch", http.MethodPost, repoPath(repo)+"/git/refs", nil, body, nil)
	if errors.Is(err, ErrConflict) {
		return BranchRef{}, fmt.Errorf("%w: %q: %w", ErrBranchExists, name, err)
	}
	if err != nil {
		return BranchRef{}, err
	}

	c.logger.Info("branch created", zap.Stringer("repo", repo), zap.String("branch", name), zap.String("from", from))
	return BranchRef{Repo: repo, Name: name, From: from, SHA: sha}, nil
}

// CommitFile writes req.Content to req.Path on req.Branch. The current blob
// sha is looked up first and sent only when the file exists, so the provider
// rejects the write if the file changed in between. Such a rejection is
// returned as is and never retried.
func (c *Client) CommitFile(ctx context.Context, req CommitRequest) (CommitResult, error) {
	if !c.CanWrite() {
		return CommitResult{}, ErrCredentialRequired
	}

	priorSHA, found, err := c.LookupFileSHA(ctx, req.Repo, req.Path, req.Branch)
	if err != nil {
		return CommitResult{}, err
	}

	body := map[string]string{
		"message": req.Message,
		"content": base64.StdEncoding.EncodeToString(req.Content),
		"branch":  req.Branch,
	}
	if found {
		body["sha"] = priorSHA
	}

	var out struct {
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	if err := c.do(ctx, "put file", http.MethodPut, contentsPath(req.Repo, req.Path), nil, body, &out); err != nil {
		return CommitResult{}, err
	}

	res := CommitResult{Action: ActionCreated, Path: req.Path, Branch: req.Branch, CommitSHA: out.Commit.SHA}
	if found {
		res.Action = ActionUpdated
	}
	c.logger.Info("file committed",
		zap.Stringer("repo", req.Repo),
		zap.String("path", req.Path),
		zap.String("branch", req.Branch),
		zap.Stringer("action", res.Action))
	return res, nil
}

// CreatePullRequest opens a pull request from req.Head into req.Base (the
// default branch when empty).
func (c *Client) CreatePullRequest(ctx context.Context, req PullRequestRequest) (PullRequest, error) {
	if !c.CanWrite() {
		return PullRequest{}, ErrCredentialRequired
	}

	base := req.Base
	if base == "" {
		def, err := c.DefaultBranch(ctx, req.Repo)
		if err != nil {
			return PullRequest{}, err
		}
		base = def
	}

	body := map[string]string{
		"title": req.Title,
		"body":  req.Body,
		"head":  req.Head,
		"base":  base,
	}
	var pr PullRequest
	if err := c.do(ctx, "create pull request", http.MethodPost, repoPath(req.Repo)+"/pulls", nil, body, &pr); err != nil {
		return PullRequest{}, err
	}
	pr.Base = base

	c.logger.Info("pull request created", zap.Stringer("repo", req.Repo), zap.Int("number", pr.Number))
	return pr, nil
}

// do sends one API request. Non-2xx responses become *APIError carrying the
// response body; out, when non-nil, receives the decoded JSON response.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", acceptJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("hosting api call",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", op, err)
	}
	return nil
}

func repoPath(r RepoRef) string {
	return "/repos/" + url.PathEscape(r.Owner) + "/" + url.PathEscape(r.Repo)
}

func contentsPath(r RepoRef, path string) string {
	return repoPath(r) + "/contents/" + escapePath(strings.TrimLeft(path, "/"))
}

// escapePath escapes each segment of a slash separated path.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
