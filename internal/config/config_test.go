package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0, conf.Sync.MaxPosts)
	assert.Equal(t, 10, conf.Sync.MaxPages)
	assert.Equal(t, 30*time.Second, conf.HTTP.Timeout)
	assert.Equal(t, 3, conf.HTTP.RetryAttempts)
	assert.Equal(t, "postsync.db", conf.Store.Path)
	assert.Equal(t, "info", conf.Logger.Level)
	assert.False(t, conf.Metrics.Enabled)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "postsync.yaml")
	body := []byte(`
sync:
  maxPosts: 50
  lookbackDays: 7
logger:
  level: debug
  pretty: true
store:
  path: /tmp/posts.db
`)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, conf.Sync.MaxPosts)
	assert.Equal(t, 7, conf.Sync.LookbackDays)
	assert.Equal(t, "debug", conf.Logger.Level)
	assert.True(t, conf.Logger.Pretty)
	assert.Equal(t, "/tmp/posts.db", conf.Store.Path)
	// untouched sections keep defaults
	assert.Equal(t, 10, conf.Sync.MaxPages)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/postsync.yaml")
	assert.Error(t, err)
}

func TestValidatorRejectsBadLevel(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)

	conf.Logger.Level = "verbose"
	assert.Error(t, NewValidator(conf).Validate())
}

func TestValidatorRejectsEmptyStorePath(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)

	conf.Store.Path = ""
	assert.Error(t, NewValidator(conf).Validate())
}

func TestValidatorAcceptsDefaults(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)
	assert.NoError(t, NewValidator(conf).Validate())
}
