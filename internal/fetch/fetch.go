// Package fetch retrieves the text behind a resolved URL. Every failure is
// folded into the returned Content so a chat turn is never aborted by a
// network problem.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/easeaico/context-agent/internal/logging"
	"github.com/easeaico/context-agent/internal/resolve"
)

const (
	// GenericLimit caps text extracted from ordinary web pages.
	GenericLimit = 3000
	// HostingLimit caps raw file content from the hosting provider.
	HostingLimit = 5000
	// DefaultTimeout bounds every fetch round trip.
	DefaultTimeout = 10 * time.Second
	// NoContent replaces an empty extraction.
	NoContent = "No content found"

	userAgent   = "Mozilla/5.0"
	rawMedia    = "application/vnd.github.raw"
	maxBodySize = 2 << 20
)

// Status is the outcome of a fetch.
type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusNotFound
	StatusUnauthorized
	StatusForbidden
	StatusHTTPError
	StatusNetworkError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusNotFound:
		return "not_found"
	case StatusUnauthorized:
		return "unauthorized"
	case StatusForbidden:
		return "forbidden"
	case StatusHTTPError:
		return "http_error"
	default:
		return "network_error"
	}
}

// Content is the result of a fetch. Text is always non-empty: on failure it
// holds a readable description of what went wrong.
type Content struct {
	Source     resolve.ResolvedURL
	Text       string
	Truncated  bool
	Status     Status
	StatusCode int // HTTP status when a response was received
}

// OK reports whether Text is real content rather than a failure description.
func (c Content) OK() bool {
	return c.Status == StatusOK || c.Status == StatusEmpty
}

// Options configures a Fetcher.
type Options struct {
	Token      string       // bearer credential for the hosting provider; optional
	Timeout    time.Duration
	HTTPClient *http.Client // overrides Timeout when set
	Logger     *zap.Logger
}

// Fetcher fetches generic pages and hosting content.
type Fetcher struct {
	client *http.Client
	token  string
	logger *zap.Logger
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Fetcher{
		client: client,
		token:  opts.Token,
		logger: logging.OrNop(opts.Logger),
	}
}

// Fetch retrieves and normalizes the text for u. It never fails.
func (f *Fetcher) Fetch(ctx context.Context, u resolve.ResolvedURL) Content {
	var c Content
	limit := GenericLimit
	if u.Classification.IsHosting() {
		limit = HostingLimit
		c = f.fetchHosting(ctx, u)
	} else {
		c = f.fetchGeneric(ctx, u)
	}
	c.Source = u

	// Failure descriptions embed the URL and must respect the same bound,
	// but they are never reported as truncated content.
	switch {
	case !c.OK():
		c.Text, _ = truncate(c.Text, limit)
		c.Truncated = false
	case !c.Truncated:
		c.Text, c.Truncated = truncate(c.Text, limit)
	}

	f.logger.Debug("fetched url",
		zap.String("url", u.Raw),
		zap.Stringer("classification", u.Classification),
		zap.Stringer("status", c.Status),
		zap.Int("http_status", c.StatusCode),
		zap.Int("chars", len([]rune(c.Text))),
		zap.Bool("truncated", c.Truncated),
	)
	return c
}

func (f *Fetcher) fetchGeneric(ctx context.Context, u resolve.ResolvedURL) Content {
	fail := func(err error) Content {
		return Content{Text: "Error fetching webpage: " + err.Error(), Status: StatusNetworkError}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.FetchURL, nil)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fail(err)
	}

	// Error pages are parsed like any other page.
	text, err := ExtractText(decodeBody(body, resp.Header.Get("Content-Type")))
	if err != nil {
		return fail(err)
	}
	if text == "" {
		return Content{Text: NoContent, Status: StatusEmpty, StatusCode: resp.StatusCode}
	}

	text, truncated := truncate(text, GenericLimit)
	return Content{Text: text, Truncated: truncated, Status: StatusOK, StatusCode: resp.StatusCode}
}

func (f *Fetcher) fetchHosting(ctx context.Context, u resolve.ResolvedURL) Content {
	fail := func(err error) Content {
		return Content{Text: "Error fetching GitHub content: " + err.Error(), Status: StatusNetworkError}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.FetchURL, nil)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("User-Agent", userAgent)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	if u.Classification == resolve.HostingRepoRoot {
		req.Header.Set("Accept", rawMedia)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusNotFound:
		return Content{Text: "GitHub file not found: " + u.Raw, Status: StatusNotFound, StatusCode: code}
	case code == http.StatusUnauthorized:
		return Content{Text: "GitHub authentication failed. Check your GITHUB_TOKEN.", Status: StatusUnauthorized, StatusCode: code}
	case code == http.StatusForbidden:
		return Content{Text: "GitHub access forbidden. Token may lack permissions or rate limit exceeded.", Status: StatusForbidden, StatusCode: code}
	case code < 200 || code > 299:
		return Content{
			Text:       fmt.Sprintf("GitHub error: %s for url: %s", resp.Status, u.FetchURL),
			Status:     StatusHTTPError,
			StatusCode: code,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fail(err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return Content{Text: NoContent, Status: StatusEmpty, StatusCode: resp.StatusCode}
	}

	text, truncated := truncate(string(body), HostingLimit)
	return Content{Text: text, Truncated: truncated, Status: StatusOK, StatusCode: resp.StatusCode}
}
