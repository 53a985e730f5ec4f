// Package resolve extracts the first URL from a chat message and classifies
// it so the fetcher knows whether to treat it as a web page or as content
// on the source-hosting provider.
package resolve

import (
	"net/url"
	"regexp"
	"strings"
)

// Classification says how a URL should be fetched.
type Classification int

const (
	// Generic is any URL that is not recognised as hosting content.
	Generic Classification = iota
	// HostingBlob is a file page on the hosting web host (/owner/repo/blob/branch/path).
	HostingBlob
	// HostingRepoRoot is a repository landing page (/owner/repo).
	HostingRepoRoot
	// HostingRaw is already on the raw-content host.
	HostingRaw
)

func (c Classification) String() string {
	switch c {
	case HostingBlob:
		return "source-hosting-blob"
	case HostingRepoRoot:
		return "source-hosting-repo-root"
	case HostingRaw:
		return "source-hosting-raw"
	default:
		return "generic"
	}
}

// IsHosting reports whether the URL belongs to the hosting provider.
func (c Classification) IsHosting() bool {
	return c != Generic
}

// ResolvedURL is a URL found in a message together with its classification.
type ResolvedURL struct {
	Raw            string // substring as it appeared in the message
	Normalized     string // scheme + host + path
	Classification Classification
	FetchURL       string // URL to GET; the raw-content or API form for hosting URLs
}

// urlPattern stops at whitespace and at closing quote/brace/bracket.
var urlPattern = regexp.MustCompile(`https?://[^\s'"}\]]+`)

// Hosts names the hosting provider endpoints used for classification.
type Hosts struct {
	Web    string // e.g. github.com
	Raw    string // e.g. raw.githubusercontent.com
	APIURL string // e.g. https://api.github.com
}

// GitHub is the default provider.
var GitHub = Hosts{
	Web:    "github.com",
	Raw:    "raw.githubusercontent.com",
	APIURL: "https://api.github.com",
}

// Resolver finds and classifies URLs. The zero value is not usable; use New.
type Resolver struct {
	hosts Hosts
}

// New creates a Resolver for the given provider hosts.
func New(hosts Hosts) *Resolver {
	hosts.Web = strings.ToLower(hosts.Web)
	hosts.Raw = strings.ToLower(hosts.Raw)
	hosts.APIURL = strings.TrimRight(hosts.APIURL, "/")
	return &Resolver{hosts: hosts}
}

// Resolve returns the first URL in text. Only the first match is considered
// when a message carries several URLs.
func (r *Resolver) Resolve(text string) (ResolvedURL, bool) {
	raw := urlPattern.FindString(text)
	if raw == "" {
		return ResolvedURL{}, false
	}
	return r.Classify(raw), true
}

// Classify classifies a single URL. It is total: anything it cannot parse
// or recognise is Generic and fetched as-is.
func (r *Resolver) Classify(raw string) ResolvedURL {
	res := ResolvedURL{
		Raw:            raw,
		Normalized:     raw,
		Classification: Generic,
		FetchURL:       raw,
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return res
	}
	res.Normalized = u.Scheme + "://" + u.Host + u.EscapedPath()

	host := strings.ToLower(u.Hostname())
	switch host {
	case r.hosts.Raw:
		res.Classification = HostingRaw
		return res
	case r.hosts.Web, "www." + r.hosts.Web:
	default:
		return res
	}

	segs := splitPath(u.EscapedPath())
	switch {
	case len(segs) >= 5 && segs[2] == "blob":
		owner, repo, branch := segs[0], segs[1], segs[3]
		res.Classification = HostingBlob
		res.FetchURL = "https://" + r.hosts.Raw + "/" + owner + "/" + repo + "/" + branch + "/" + strings.Join(segs[4:], "/")
	case len(segs) == 2:
		owner, repo := segs[0], segs[1]
		res.Classification = HostingRepoRoot
		res.FetchURL = r.hosts.APIURL + "/repos/" + owner + "/" + repo + "/readme"
	}
	return res
}

// splitPath splits an escaped URL path into its non-empty segments. An empty
// segment in the middle (a//b) makes the path unrecognisable, so it returns nil.
func splitPath(p string) []string {
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return nil
	}
	segs := strings.Split(p, "/")
	for _, s := range segs {
		if s == "" {
			return nil
		}
	}
	return segs
}
