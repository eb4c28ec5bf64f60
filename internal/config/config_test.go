package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 30*time.Second, cfg.StepTimeout())
	assert.Equal(t, 8, cfg.MaxConcurrentRules())
	assert.Equal(t, 60*time.Second, cfg.SchedulerInterval())
	assert.Equal(t, 2, cfg.DueSoonDays())
	assert.False(t, cfg.SMTPEnabled())
	assert.Equal(t, 30*time.Second, cfg.MailFlushInterval())
	assert.Equal(t, "boardflow@localhost", cfg.SMTPFrom())

	// Default() and the generated template agree with the zero-value
	// fallbacks.
	def := Default()
	assert.Equal(t, cfg.StepTimeout(), def.StepTimeout())
	assert.Equal(t, cfg.MaxConcurrentRules(), def.MaxConcurrentRules())
	assert.Equal(t, "http://localhost:8080", def.Site.BaseURL)
	assert.True(t, def.Auth.AllowLegacyActorHeader)
}

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(`
site:
  base_url: https://boards.example.com
engine:
  step_timeout_seconds: 5
  max_concurrent_rules: 2
scheduler:
  interval_seconds: 10
  due_soon_days: 7
smtp:
  host: smtp.example.com
  port: 2525
  from: boards@example.com
webhooks:
  - url: https://hooks.example.com/boardflow
    events: [card_moved]
`))
	require.NoError(t, err)
	assert.Equal(t, "https://boards.example.com", cfg.Site.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.StepTimeout())
	assert.Equal(t, 2, cfg.MaxConcurrentRules())
	assert.Equal(t, 10*time.Second, cfg.SchedulerInterval())
	assert.Equal(t, 7, cfg.DueSoonDays())
	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, []string{"card_moved"}, cfg.Webhooks[0].Events)
	assert.True(t, cfg.SMTPEnabled())
	assert.Equal(t, "smtp.example.com:2525", cfg.SMTPAddr())
	assert.Equal(t, "boards@example.com", cfg.SMTPFrom())
}

func TestFromYAMLRejectsInvalid(t *testing.T) {
	_, err := FromYAML([]byte("engine:\n  step_timeout_seconds: -1\n"))
	assert.Error(t, err)

	_, err = FromYAML([]byte("webhooks:\n  - secret: abc\n"))
	assert.Error(t, err)

	_, err = FromYAML([]byte("smtp:\n  port: -1\n"))
	assert.Error(t, err)

	_, err = FromYAML([]byte("not: [valid"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	// missing file falls back to defaults
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxConcurrentRules())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "boardflow.yml"),
		[]byte("engine:\n  max_concurrent_rules: 3\n"), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxConcurrentRules())
}
