package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/easeaico/context-agent/internal/hosting"
	"github.com/easeaico/context-agent/internal/logging"
)

// ValidationError is a form that cannot be submitted. No request is made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Hosting is the write side of the hosting client.
type Hosting interface {
	CreateBranch(ctx context.Context, repo hosting.RepoRef, name, from string) (hosting.BranchRef, error)
	CommitFile(ctx context.Context, req hosting.CommitRequest) (hosting.CommitResult, error)
	CreatePullRequest(ctx context.Context, req hosting.PullRequestRequest) (hosting.PullRequest, error)
}

// BranchForm is the input of the create-branch command.
type BranchForm struct {
	RepoURL    string
	NewBranch  string
	FromBranch string // optional; default branch when empty
}

// CommitForm is the input of the commit-file command.
type CommitForm struct {
	RepoURL string
	Branch  string
	Path    string
	Content string
	Message string // optional; "Update <path>" when empty
}

// PullRequestForm is the input of the create-pull-request command.
type PullRequestForm struct {
	RepoURL string
	Head    string
	Base    string // optional; default branch when empty
	Title   string
	Body    string
}

// Commands runs the repository write commands. Each method returns the
// message to show the user; the error is non-nil whenever that message
// reports a failure.
type Commands struct {
	client  Hosting
	webHost string
	logger  *zap.Logger
}

// NewCommands creates Commands. webHost is the hosting web host repository
// URLs must point at.
func NewCommands(client Hosting, webHost string, logger *zap.Logger) *Commands {
	return &Commands{client: client, webHost: webHost, logger: logging.OrNop(logger)}
}

// CreateBranch validates f and creates the branch.
func (c *Commands) CreateBranch(ctx context.Context, f BranchForm) (string, error) {
	if blank(f.RepoURL, f.NewBranch) {
		return c.invalid("Please provide repository URL and new branch name")
	}
	repo, err := hosting.ParseRepoRef(f.RepoURL, c.webHost)
	if err != nil {
		return "Invalid GitHub repository URL", err
	}

	name := strings.TrimSpace(f.NewBranch)
	ref, err := c.client.CreateBranch(ctx, repo, name, strings.TrimSpace(f.FromBranch))
	switch {
	case err == nil:
		return fmt.Sprintf("Branch '%s' created from '%s'", ref.Name, ref.From), nil
	case errors.Is(err, hosting.ErrCredentialRequired):
		return "Error: GITHUB_TOKEN required to create branches", err
	case errors.Is(err, hosting.ErrBranchExists):
		return fmt.Sprintf("Branch '%s' already exists", name), err
	default:
		c.logger.Warn("create branch failed", zap.Stringer("repo", repo), zap.Error(err))
		return "Error creating branch: " + describe(err), err
	}
}

// CommitFile validates f and commits the file, creating or updating it.
func (c *Commands) CommitFile(ctx context.Context, f CommitForm) (string, error) {
	if blank(f.RepoURL, f.Branch, f.Path, f.Content) {
		return c.invalid("Please fill in all required fields")
	}
	repo, err := hosting.ParseRepoRef(f.RepoURL, c.webHost)
	if err != nil {
		return "Invalid GitHub repository URL", err
	}

	path := strings.TrimSpace(f.Path)
	msg := strings.TrimSpace(f.Message)
	if msg == "" {
		msg = "Update " + path
	}

	res, err := c.client.CommitFile(ctx, hosting.CommitRequest{
		Repo:    repo,
		Path:    path,
		Branch:  strings.TrimSpace(f.Branch),
		Message: msg,
		Content: []byte(f.Content),
	})
	switch {
	case err == nil:
		return fmt.Sprintf("%s '%s' on branch '%s'", res.Action, res.Path, res.Branch), nil
	case errors.Is(err, hosting.ErrCredentialRequired):
		return "Error: GITHUB_TOKEN required to create/update files", err
	default:
		c.logger.Warn("commit failed", zap.Stringer("repo", repo), zap.String("path", path), zap.Error(err))
		return "Error updating file: " + describe(err), err
	}
}

// CreatePullRequest validates f and opens the pull request.
func (c *Commands) CreatePullRequest(ctx context.Context, f PullRequestForm) (string, error) {
	if blank(f.RepoURL, f.Head, f.Title) {
		return c.invalid("Please provide repository URL, head branch, and PR title")
	}
	repo, err := hosting.ParseRepoRef(f.RepoURL, c.webHost)
	if err != nil {
		return "Invalid GitHub repository URL", err
	}

	pr, err := c.client.CreatePullRequest(ctx, hosting.PullRequestRequest{
		Repo:  repo,
		Title: strings.TrimSpace(f.Title),
		Body:  strings.TrimSpace(f.Body),
		Head:  strings.TrimSpace(f.Head),
		Base:  strings.TrimSpace(f.Base),
	})
	switch {
	case err == nil:
		return fmt.Sprintf("PR #%d created: %s", pr.Number, pr.HTMLURL), nil
	case errors.Is(err, hosting.ErrCredentialRequired):
		return "Error: GITHUB_TOKEN required to create pull requests", err
	default:
		c.logger.Warn("create pull request failed", zap.Stringer("repo", repo), zap.Error(err))
		return "Error creating PR: " + describe(err), err
	}
}

func (c *Commands) invalid(msg string) (string, error) {
	return msg, &ValidationError{Msg: msg}
}

// describe prefers the provider's response body over the wrapped error text.
func describe(err error) string {
	var apiErr *hosting.APIError
	if errors.As(err, &apiErr) && apiErr.Body != "" {
		return apiErr.Body
	}
	return err.Error()
}

func blank(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}
