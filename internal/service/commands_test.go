package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easeaico/context-agent/internal/hosting"
)

type fakeHosting struct {
	branchCalls []string
	commits     []hosting.CommitRequest
	prs         []hosting.PullRequestRequest

	branchErr error
	commitErr error
	prErr     error
	action    hosting.Action
}

func (f *fakeHosting) CreateBranch(_ context.Context, repo hosting.RepoRef, name, from string) (hosting.BranchRef, error) {
	f.branchCalls = append(f.branchCalls, repo.String()+" "+name+" "+from)
	if f.branchErr != nil {
		return hosting.BranchRef{}, f.branchErr
	}
	if from == "" {
		from = "main"
	}
	return hosting.BranchRef{Repo: repo, Name: name, From: from, SHA: "abc"}, nil
}

func (f *fakeHosting) CommitFile(_ context.Context, req hosting.CommitRequest) (hosting.CommitResult, error) {
	f.commits = append(f.commits, req)
	if f.commitErr != nil {
		return hosting.CommitResult{}, f.commitErr
	}
	return hosting.CommitResult{Action: f.action, Path: req.Path, Branch: req.Branch}, nil
}

func (f *fakeHosting) CreatePullRequest(_ context.Context, req hosting.PullRequestRequest) (hosting.PullRequest, error) {
	f.prs = append(f.prs, req)
	if f.prErr != nil {
		return hosting.PullRequest{}, f.prErr
	}
	return hosting.PullRequest{Number: 12, HTMLURL: "https://github.com/acme/widget/pull/12"}, nil
}

const repoURL = "https://github.com/acme/widget"

func TestCommands_CreateBranch(t *testing.T) {
	tests := []struct {
		name      string
		form      BranchForm
		err       error
		wantMsg   string
		wantCalls int
		wantValid bool
	}{
		{
			name:      "default source",
			form:      BranchForm{RepoURL: repoURL, NewBranch: " feature "},
			wantMsg:   "Branch 'feature' created from 'main'",
			wantCalls: 1,
		},
		{
			name:      "explicit source",
			form:      BranchForm{RepoURL: repoURL, NewBranch: "feature", FromBranch: "develop"},
			wantMsg:   "Branch 'feature' created from 'develop'",
			wantCalls: 1,
		},
		{
			name:      "missing branch name",
			form:      BranchForm{RepoURL: repoURL},
			wantMsg:   "Please provide repository URL and new branch name",
			wantValid: true,
		},
		{
			name:    "bad repository url",
			form:    BranchForm{RepoURL: "https://example.com/acme/widget", NewBranch: "f"},
			wantMsg: "Invalid GitHub repository URL",
		},
		{
			name:      "already exists",
			form:      BranchForm{RepoURL: repoURL, NewBranch: "feature"},
			err:       fmt.Errorf("%w: %q", hosting.ErrBranchExists, "feature"),
			wantMsg:   "Branch 'feature' already exists",
			wantCalls: 1,
		},
		{
			name:      "no credential",
			form:      BranchForm{RepoURL: repoURL, NewBranch: "feature"},
			err:       hosting.ErrCredentialRequired,
			wantMsg:   "Error: GITHUB_TOKEN required to create branches",
			wantCalls: 1,
		},
		{
			name:      "provider error body",
			form:      BranchForm{RepoURL: repoURL, NewBranch: "feature"},
			err:       &hosting.APIError{Op: "get branch ref", StatusCode: 500, Body: `{"message":"Server Error"}`},
			wantMsg:   `Error creating branch: {"message":"Server Error"}`,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHosting{branchErr: tt.err}
			msg, err := NewCommands(h, "", nil).CreateBranch(context.Background(), tt.form)

			assert.Equal(t, tt.wantMsg, msg)
			assert.Len(t, h.branchCalls, tt.wantCalls)
			if tt.wantCalls == 1 && tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
			var ve *ValidationError
			assert.Equal(t, tt.wantValid, errors.As(err, &ve))
		})
	}
}

func TestCommands_BadRepoURLIsNotAValidationError(t *testing.T) {
	_, err := NewCommands(&fakeHosting{}, "", nil).CreateBranch(context.Background(), BranchForm{RepoURL: "nope", NewBranch: "f"})
	assert.ErrorIs(t, err, hosting.ErrInvalidRepoRef)
}

func TestCommands_CommitFile(t *testing.T) {
	ctx := context.Background()

	h := &fakeHosting{action: hosting.ActionCreated}
	msg, err := NewCommands(h, "", nil).CommitFile(ctx, CommitForm{
		RepoURL: repoURL, Branch: "feature", Path: " docs/notes.md ", Content: "hello\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "Created 'docs/notes.md' on branch 'feature'", msg)
	require.Len(t, h.commits, 1)
	assert.Equal(t, hosting.CommitRequest{
		Repo:    hosting.RepoRef{Owner: "acme", Repo: "widget"},
		Path:    "docs/notes.md",
		Branch:  "feature",
		Message: "Update docs/notes.md",
		Content: []byte("hello\n"),
	}, h.commits[0], "content is sent untrimmed and the message defaults")

	h = &fakeHosting{action: hosting.ActionUpdated}
	msg, err = NewCommands(h, "", nil).CommitFile(ctx, CommitForm{
		RepoURL: repoURL, Branch: "main", Path: "README.md", Content: "x", Message: "Refresh readme",
	})
	require.NoError(t, err)
	assert.Equal(t, "Updated 'README.md' on branch 'main'", msg)
	assert.Equal(t, "Refresh readme", h.commits[0].Message)

	for _, form := range []CommitForm{
		{Branch: "main", Path: "a", Content: "x"},
		{RepoURL: repoURL, Path: "a", Content: "x"},
		{RepoURL: repoURL, Branch: "main", Content: "x"},
		{RepoURL: repoURL, Branch: "main", Path: "a", Content: "  "},
	} {
		h := &fakeHosting{}
		msg, err := NewCommands(h, "", nil).CommitFile(ctx, form)
		assert.Equal(t, "Please fill in all required fields", msg)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
		assert.Empty(t, h.commits)
	}

	h = &fakeHosting{commitErr: &hosting.APIError{Op: "put file", StatusCode: 409, Body: "sha mismatch"}}
	msg, err = NewCommands(h, "", nil).CommitFile(ctx, CommitForm{RepoURL: repoURL, Branch: "main", Path: "a", Content: "x"})
	assert.ErrorIs(t, err, hosting.ErrConflict)
	assert.Equal(t, "Error updating file: sha mismatch", msg)

	h = &fakeHosting{commitErr: hosting.ErrCredentialRequired}
	msg, _ = NewCommands(h, "", nil).CommitFile(ctx, CommitForm{RepoURL: repoURL, Branch: "main", Path: "a", Content: "x"})
	assert.Equal(t, "Error: GITHUB_TOKEN required to create/update files", msg)
}

func TestCommands_CreatePullRequest(t *testing.T) {
	ctx := context.Background()

	h := &fakeHosting{}
	msg, err := NewCommands(h, "", nil).CreatePullRequest(ctx, PullRequestForm{
		RepoURL: repoURL, Head: "feature", Title: " Add notes ", Body: " details ",
	})
	require.NoError(t, err)
	assert.Equal(t, "PR #12 created: https://github.com/acme/widget/pull/12", msg)
	assert.Equal(t, hosting.PullRequestRequest{
		Repo:  hosting.RepoRef{Owner: "acme", Repo: "widget"},
		Title: "Add notes",
		Body:  "details",
		Head:  "feature",
	}, h.prs[0])

	msg, err = NewCommands(&fakeHosting{}, "", nil).CreatePullRequest(ctx, PullRequestForm{RepoURL: repoURL, Head: "feature"})
	assert.Equal(t, "Please provide repository URL, head branch, and PR title", msg)
	assert.Error(t, err)

	h = &fakeHosting{prErr: &hosting.APIError{Op: "create pull request", StatusCode: 422, Body: "No commits between main and feature"}}
	msg, _ = NewCommands(h, "", nil).CreatePullRequest(ctx, PullRequestForm{RepoURL: repoURL, Head: "feature", Title: "t"})
	assert.Equal(t, "Error creating PR: No commits between main and feature", msg)

	h = &fakeHosting{prErr: hosting.ErrCredentialRequired}
	msg, _ = NewCommands(h, "", nil).CreatePullRequest(ctx, PullRequestForm{RepoURL: repoURL, Head: "feature", Title: "t"})
	assert.Equal(t, "Error: GITHUB_TOKEN required to create pull requests", msg)
}

// TestCommands_WithHostingClient drives the real client against a fake API.
func TestCommands_WithHostingClient(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method + " " + r.URL.Path {
		case "GET /repos/acme/widget/git/refs/heads/main":
			fmt.Fprint(w, `{"object":{"sha":"abc"}}`)
		case "POST /repos/acme/widget/git/refs":
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"message":"Reference already exists"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := hosting.New(hosting.Options{Token: "tok", BaseURL: srv.URL})
	msg, err := NewCommands(client, "github.com", nil).CreateBranch(context.Background(), BranchForm{
		RepoURL: repoURL, NewBranch: "feature", FromBranch: "main",
	})

	assert.ErrorIs(t, err, hosting.ErrBranchExists)
	assert.Equal(t, "Branch 'feature' already exists", msg)
	assert.Equal(t, []string{"GET /repos/acme/widget/git/refs/heads/main", "POST /repos/acme/widget/git/refs"}, calls)

	calls = nil
	unauth := hosting.New(hosting.Options{BaseURL: srv.URL})
	msg, err = NewCommands(unauth, "github.com", nil).CreateBranch(context.Background(), BranchForm{RepoURL: repoURL, NewBranch: "feature"})
	assert.ErrorIs(t, err, hosting.ErrCredentialRequired)
	assert.Equal(t, "Error: GITHUB_TOKEN required to create branches", msg)
	assert.Empty(t, calls)
}
