package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/provider-cli/internal/config"
)

// useTestConfig points cfg at a fresh SQLite database for the test.
func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	old := cfg
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "providers.db"),
		},
		Anthropic: config.AnthropicConfig{
			Model:       "claude-haiku-4-5-20251001",
			TimeoutSecs: 30,
		},
		Registry: config.RegistryConfig{
			BaseURL:     "https://npiregistry.cms.hhs.gov/api/",
			Version:     "2.1",
			TimeoutSecs: 10,
		},
		Retry:   config.RetryConfig{MaxAttempts: 1},
		Circuit: config.CircuitConfig{FailureThreshold: 5, ResetTimeoutSecs: 30},
		Batch:   config.BatchConfig{PersistConcurrency: 1},
		Server:  config.ServerConfig{Port: 8080, AllowedOrigins: []string{"*"}},
	}
	t.Cleanup(func() { cfg = old })
	return cfg
}

const testFixtures = `
registry:
  "1234567890":
    first_name: SARAH
    last_name: JOHNSON
    credential: MD
    status: A
    taxonomies:
      - code: 207RC0000X
        desc: Cardiovascular Disease
        primary: true
assessment: Record appears valid.
`

func writeFixtures(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testFixtures), 0o644))
	return path
}
