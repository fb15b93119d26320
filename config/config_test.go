package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/paylens/engine"
	"github.com/spektr-org/paylens/translator"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, engine.ModeCapability, c.Mode)
	assert.Equal(t, "kr", c.Unit)
	assert.Equal(t, translator.ProviderAnthropic, c.Capability.Provider)
	assert.Equal(t, "ANTHROPIC_API_KEY", c.Capability.APIKeyEnv)
	assert.Equal(t, 30*time.Second, c.Capability.Timeout)
	assert.Equal(t, 3, c.SampleRows())
	assert.True(t, c.RedactNames())
	assert.False(t, c.History.Enabled)
	require.NoError(t, c.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
mode: pattern
unit: SEK
capability:
  provider: Gemini
  model: gemini-test
  timeout: 10s
  sample_rows: 0
  redact_names: false
history:
  enabled: true
  path: /tmp/paylens.db
`)
	c, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, engine.ModePattern, c.Mode)
	assert.Equal(t, "SEK", c.Unit)
	assert.Equal(t, translator.ProviderGemini, c.Capability.Provider)
	assert.Equal(t, "GEMINI_API_KEY", c.Capability.APIKeyEnv)
	assert.Equal(t, 10*time.Second, c.Capability.Timeout)
	assert.Equal(t, 0, c.SampleRows())
	assert.False(t, c.RedactNames())
	assert.True(t, c.History.Enabled)
	assert.Equal(t, "/tmp/paylens.db", c.HistoryPath())
}

func TestLoadMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	c, err := Load(missing, true)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	_, err = Load(missing, false)
	assert.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	c, err := Load(writeConfig(t, ""), false)
	require.NoError(t, err)
	assert.Equal(t, engine.ModeCapability, c.Mode)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":    "modes: pattern\n",
		"unknown mode":     "mode: magic\n",
		"unknown provider": "capability:\n  provider: openai\n",
		"negative timeout": "capability:\n  timeout: -1s\n",
		"huge timeout":     "capability:\n  timeout: 5m\n",
		"too many samples": "capability:\n  sample_rows: 21\n",
		"negative samples": "capability:\n  sample_rows: -1\n",
		"not yaml":         "mode: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body), false)
			assert.Error(t, err)
		})
	}
}

func TestProviderConfig(t *testing.T) {
	t.Setenv("PAYLENS_TEST_KEY", "  secret ")

	c := Default()
	c.Capability.APIKeyEnv = "PAYLENS_TEST_KEY"
	c.Capability.Endpoint = "http://localhost:9999"
	c.Capability.Timeout = 5 * time.Second

	pc := c.ProviderConfig()
	assert.Equal(t, "secret", pc.APIKey)
	assert.Equal(t, translator.ProviderAnthropic, pc.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", pc.Model)
	assert.Equal(t, "http://localhost:9999", pc.Endpoint)
	assert.Equal(t, 5*time.Second, pc.Timeout)
}

func TestAPIKeyMissing(t *testing.T) {
	c := Default()
	c.Capability.APIKeyEnv = "PAYLENS_TEST_UNSET_KEY"
	assert.Empty(t, c.APIKey())
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/paylens.yaml")
	assert.Equal(t, "/etc/paylens.yaml", DefaultPath())
}

func TestHistoryPathExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".paylens", "history.db"), Default().HistoryPath())
}
