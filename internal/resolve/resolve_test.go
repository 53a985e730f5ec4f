package resolve

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_NoURL(t *testing.T) {
	r := New(GitHub)
	for _, text := range []string{
		"",
		"what alloy should the housing use?",
		"ftp://example.com is not http",
		"see example.com for details",
	} {
		_, ok := r.Resolve(text)
		assert.False(t, ok, "text %q should not resolve", text)
	}
}

func TestResolve_Classification(t *testing.T) {
	r := New(GitHub)

	tests := []struct {
		name      string
		text      string
		wantRaw   string
		wantClass Classification
		wantFetch string
	}{
		{
			name:      "generic page",
			text:      "What alloy for the housing? https://example.com",
			wantRaw:   "https://example.com",
			wantClass: Generic,
			wantFetch: "https://example.com",
		},
		{
			name:      "raw host",
			text:      "read https://raw.githubusercontent.com/acme/widget/main/README.md",
			wantRaw:   "https://raw.githubusercontent.com/acme/widget/main/README.md",
			wantClass: HostingRaw,
			wantFetch: "https://raw.githubusercontent.com/acme/widget/main/README.md",
		},
		{
			name:      "blob page",
			text:      "look at https://github.com/acme/widget/blob/main/src/housing/notes.md please",
			wantRaw:   "https://github.com/acme/widget/blob/main/src/housing/notes.md",
			wantClass: HostingBlob,
			wantFetch: "https://raw.githubusercontent.com/acme/widget/main/src/housing/notes.md",
		},
		{
			name:      "repo root",
			text:      "https://github.com/acme/widget",
			wantRaw:   "https://github.com/acme/widget",
			wantClass: HostingRepoRoot,
			wantFetch: "https://api.github.com/repos/acme/widget/readme",
		},
		{
			name:      "repo root with trailing slash",
			text:      "https://github.com/acme/widget/",
			wantRaw:   "https://github.com/acme/widget/",
			wantClass: HostingRepoRoot,
			wantFetch: "https://api.github.com/repos/acme/widget/readme",
		},
		{
			name:      "hosting issue page falls back to generic",
			text:      "https://github.com/acme/widget/issues/12",
			wantRaw:   "https://github.com/acme/widget/issues/12",
			wantClass: Generic,
			wantFetch: "https://github.com/acme/widget/issues/12",
		},
		{
			name:      "hosting profile page is generic",
			text:      "https://github.com/acme",
			wantRaw:   "https://github.com/acme",
			wantClass: Generic,
			wantFetch: "https://github.com/acme",
		},
		{
			name:      "terminated by quote",
			text:      `{"url": "https://example.com/a"}`,
			wantRaw:   "https://example.com/a",
			wantClass: Generic,
			wantFetch: "https://example.com/a",
		},
		{
			name:      "terminated by bracket",
			text:      "[https://example.com/b]",
			wantRaw:   "https://example.com/b",
			wantClass: Generic,
			wantFetch: "https://example.com/b",
		},
		{
			name:      "malformed url is generic",
			text:      "http://%zz/bad",
			wantRaw:   "http://%zz/bad",
			wantClass: Generic,
			wantFetch: "http://%zz/bad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.wantRaw, got.Raw)
			assert.Equal(t, tt.wantClass, got.Classification, "got %s", got.Classification)
			assert.Equal(t, tt.wantFetch, got.FetchURL)
		})
	}
}

// Only the first URL of a message is resolved; later URLs are ignored.
func TestResolve_MultipleURLsTakesFirst(t *testing.T) {
	r := New(GitHub)
	got, ok := r.Resolve("compare https://example.com/one and https://github.com/acme/widget")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/one", got.Raw)
	assert.Equal(t, Generic, got.Classification)
}

func TestResolve_NormalizedReconstructs(t *testing.T) {
	r := New(GitHub)
	got, ok := r.Resolve("see https://Example.com/docs/page?x=1#top now")
	require.True(t, ok)
	assert.Equal(t, "https://Example.com/docs/page", got.Normalized)

	want, err := url.Parse(got.Raw)
	require.NoError(t, err)
	norm, err := url.Parse(got.Normalized)
	require.NoError(t, err)
	assert.Equal(t, want.Scheme, norm.Scheme)
	assert.Equal(t, want.Host, norm.Host)
	assert.Equal(t, want.Path, norm.Path)
}

func TestResolve_Deterministic(t *testing.T) {
	r := New(GitHub)
	text := "https://github.com/acme/widget/blob/dev/a/b.go"
	first, _ := r.Resolve(text)
	for range 5 {
		again, _ := r.Resolve(text)
		assert.Equal(t, first, again)
	}
}

func TestResolve_CustomHosts(t *testing.T) {
	r := New(Hosts{Web: "git.internal", Raw: "raw.git.internal", APIURL: "https://git.internal/api/v3/"})

	got, ok := r.Resolve("https://git.internal/team/tool")
	require.True(t, ok)
	assert.Equal(t, HostingRepoRoot, got.Classification)
	assert.Equal(t, "https://git.internal/api/v3/repos/team/tool/readme", got.FetchURL)

	got, _ = r.Resolve("https://github.com/acme/widget")
	assert.Equal(t, Generic, got.Classification)
}

func TestClassification_String(t *testing.T) {
	assert.Equal(t, "generic", Generic.String())
	assert.Equal(t, "source-hosting-blob", HostingBlob.String())
	assert.Equal(t, "source-hosting-repo-root", HostingRepoRoot.String())
	assert.Equal(t, "source-hosting-raw", HostingRaw.String())
	assert.False(t, Generic.IsHosting())
	assert.True(t, HostingRaw.IsHosting())
}
