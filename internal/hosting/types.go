// Package hosting is a small client for the source-hosting REST API (GitHub
// flavored) covering the write workflow: branch creation, single-file
// commits guarded by the file's blob sha, and pull requests.
package hosting

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var (
	// ErrCredentialRequired is returned by write operations when no token is
	// configured. No request is sent.
	ErrCredentialRequired = errors.New("hosting credential required")
	// ErrInvalidRepoRef is returned when a repository URL cannot be parsed.
	ErrInvalidRepoRef = errors.New("invalid repository reference")
	// ErrBranchExists is returned when creating a branch whose name is taken.
	ErrBranchExists = errors.New("branch already exists")

	ErrUnauthorized = errors.New("authentication failed")
	ErrForbidden    = errors.New("access forbidden or rate limited")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// APIError is a non-2xx response from the hosting API. It unwraps to one of
// the status sentinels (ErrUnauthorized, ErrForbidden, ErrNotFound,
// ErrConflict) when the status maps to one.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s: %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrConflict
	}
	return nil
}

// RepoRef identifies a repository.
type RepoRef struct {
	Owner string
	Repo  string
}

func (r RepoRef) String() string { return r.Owner + "/" + r.Repo }

// DefaultWebHost is used by ParseRepoRef when no host is given.
const DefaultWebHost = "github.com"

// ParseRepoRef extracts owner and repository from a hosting URL such as
// https://github.com/owner/repo, https://github.com/owner/repo.git or any
// deeper link into the repository. host defaults to DefaultWebHost.
func ParseRepoRef(raw, host string) (RepoRef, error) {
	if host == "" {
		host = DefaultWebHost
	}
	re := regexp.MustCompile(`^https?://` + regexp.QuoteMeta(host) + `/([^/?#]+)/([^/?#]+?)(?:\.git)?(?:[/?#].*)?$`)

	m := re.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepoRef, raw)
	}
	return RepoRef{Owner: m[1], Repo: m[2]}, nil
}

// BranchRef is a branch in a repository. SHA is the head commit once known.
type BranchRef struct {
	Repo RepoRef
	Name string
	From string // branch the ref was created from
	SHA  string
}

// CommitRequest describes a single-file commit. The file's current blob sha
// is looked up by CommitFile; callers never supply it.
type CommitRequest struct {
	Repo    RepoRef
	Path    string
	Branch  string
	Message string
	Content []byte
}

// Action reports whether a commit created or replaced a file.
type Action int

const (
	ActionCreated Action = iota
	ActionUpdated
)

func (a Action) String() string {
	if a == ActionUpdated {
		return "Updated"
	}
	return "Created"
}

// CommitResult is the outcome of CommitFile.
type CommitResult struct {
	Action    Action
	Path      string
	Branch    string
	CommitSHA string
}

// PullRequestRequest describes a pull request. An empty Base selects the
// repository's default branch.
type PullRequestRequest struct {
	Repo  RepoRef
	Title string
	Body  string
	Head  string
	Base  string
}

// PullRequest is a created pull request.
type PullRequest struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
	Base    string `json:"-"`
}
