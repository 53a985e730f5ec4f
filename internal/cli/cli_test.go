package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easeaico/context-agent/internal/fetch"
	"github.com/easeaico/context-agent/internal/llm"
	"github.com/easeaico/context-agent/internal/memory"
	"github.com/easeaico/context-agent/internal/resolve"
	"github.com/easeaico/context-agent/internal/service"
)

type echoCompleter struct {
	prompts []string
}

func (e *echoCompleter) Complete(_ context.Context, p string) (string, error) {
	e.prompts = append(e.prompts, p)
	return "answer", nil
}

func TestRunREPL(t *testing.T) {
	ctx := context.Background()
	store, err := memory.NewSQLiteStore(ctx, ":memory:", memory.SQLiteOptions{})
	require.NoError(t, err)
	defer store.Close()
	mem := memory.NewService(store, llm.NewHashEmbedder(0), nil)

	c := &echoCompleter{}
	a := service.NewAgent(mem, resolve.New(resolve.GitHub), fetch.New(fetch.Options{}), c, nil)
	sess := service.NewSession(a)

	in := strings.NewReader(strings.Join([]string{
		"/remember housing uses 6061-T6 aluminum",
		"",
		"/recall housing",
		"what material for housing",
		"/clear",
		"/quit",
		"never read",
	}, "\n"))
	var out bytes.Buffer

	runREPL(ctx, in, &out, sess, mem)

	got := out.String()
	assert.Contains(t, got, "✓ Memory saved: housing uses 6061-T6 aluminum...")
	assert.Contains(t, got, "Found memories:\n• housing uses 6061-T6 aluminum")
	assert.Contains(t, got, "answer")
	assert.Contains(t, got, "Transcript cleared.")
	assert.Empty(t, sess.History())

	require.Len(t, c.prompts, 1)
	assert.Equal(t, "Previous relevant context:\n- housing uses 6061-T6 aluminum\n\nCurrent question: what material for housing", c.prompts[0])
}

func TestRunREPL_EOF(t *testing.T) {
	sess := service.NewSession(service.NewAgent(nil, resolve.New(resolve.GitHub), fetch.New(fetch.Options{}), &echoCompleter{}, nil))
	var out bytes.Buffer

	runREPL(context.Background(), strings.NewReader(""), &out, sess, nil)
	assert.True(t, strings.HasSuffix(out.String(), "> \n"))
}

func TestParseMeta(t *testing.T) {
	meta, err := parseMeta([]string{"project=housing", "rev=3", "final=true", " note = a=b "})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"project": "housing",
		"rev":     float64(3),
		"final":   true,
		"note":    "a=b",
	}, meta)

	meta, err = parseMeta(nil)
	require.NoError(t, err)
	assert.Nil(t, meta)

	_, err = parseMeta([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseMeta([]string{"=x"})
	assert.Error(t, err)
}

func TestBuildInstruction(t *testing.T) {
	with := buildInstruction(4)
	assert.Contains(t, with, "The user has 4 saved notes.")
	assert.Contains(t, with, "search_memory")
	assert.Contains(t, with, "fetch_url")

	without := buildInstruction(0)
	assert.NotContains(t, without, "saved notes. Search")
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"ask", "branch", "chat", "commit", "pr", "recall", "remember", "serve"}
	for _, name := range want {
		cmd, _, err := RootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestPiped(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, piped(r), "pipe carries input")

	require.NoError(t, r.Close())
	assert.False(t, piped(r), "closed file")
	assert.False(t, piped(nil), "missing file")
}
