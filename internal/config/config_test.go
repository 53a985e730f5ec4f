package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AGENT_CONFIG", "LLM_PROVIDER", "LM_STUDIO_URL", "LLM_MODEL", "GOOGLE_API_KEY",
		"DB_TYPE", "DATABASE_URL", "MEMORY_COLLECTION", "EMBED_PROVIDER", "EMBED_MODEL",
		"GITHUB_TOKEN", "GITHUB_API_URL", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, DefaultModelURL, cfg.ModelURL)
	assert.Equal(t, "local-model", cfg.Model)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, DefaultDatabasePath, cfg.DatabaseURL)
	assert.Equal(t, DefaultCollection, cfg.Collection)
	assert.Equal(t, "local", cfg.EmbedProvider)
	assert.Equal(t, DefaultGitHubAPIURL, cfg.GitHubAPIURL)
	assert.Equal(t, DefaultGitHubWebHost, cfg.GitHubWebHost)
	assert.Equal(t, DefaultGitHubRawHost, cfg.GitHubRawHost)
	assert.False(t, cfg.CanWrite(), "writes must be disabled without a token")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "agent.yaml")
	data := []byte(`
model_url: http://files.example:1234/
collection: from_file
github_token: file-token
max_distance: 0.8
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("MEMORY_COLLECTION", "from_env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://files.example:1234", cfg.ModelURL, "trailing slash is trimmed")
	assert.Equal(t, "from_env", cfg.Collection)
	assert.Equal(t, "file-token", cfg.GitHubToken)
	assert.InDelta(t, 0.8, cfg.MaxDistance, 1e-9)
	assert.True(t, cfg.CanWrite())
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))
	t.Setenv("AGENT_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown db type",
			env:     map[string]string{"DB_TYPE": "mysql"},
			wantErr: "DB_TYPE must be",
		},
		{
			name:    "postgres without url",
			env:     map[string]string{"DB_TYPE": "postgres"},
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "gemini without key",
			env:     map[string]string{"LLM_PROVIDER": "gemini"},
			wantErr: "GOOGLE_API_KEY is required",
		},
		{
			name:    "unknown embed provider",
			env:     map[string]string{"EMBED_PROVIDER": "word2vec"},
			wantErr: "EMBED_PROVIDER must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
