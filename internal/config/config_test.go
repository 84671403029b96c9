package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvWithDefault(t *testing.T) {
	t.Setenv("HC_FOO", "")
	assert.Equal(t, "bar", GetEnv("HC_FOO", "bar"))
	t.Setenv("HC_FOO", "baz")
	assert.Equal(t, "baz", GetEnv("HC_FOO", "bar"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("HC_NUM", "100")
	assert.Equal(t, 100, GetEnvInt("HC_NUM", 42))
	t.Setenv("HC_NUM", "notint")
	assert.Equal(t, 7, GetEnvInt("HC_NUM", 7))
	t.Setenv("HC_CHAT", "-1001234")
	assert.Equal(t, int64(-1001234), GetEnvInt64("HC_CHAT", 0))
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("HC_DELAY", "")
	assert.Equal(t, 2*time.Second, GetEnvDuration("HC_DELAY", 2*time.Second))
	t.Setenv("HC_DELAY", "250ms")
	assert.Equal(t, 250*time.Millisecond, GetEnvDuration("HC_DELAY", 0))
	t.Setenv("HC_DELAY", "1.5")
	assert.Equal(t, 1500*time.Millisecond, GetEnvDuration("HC_DELAY", 0))
	t.Setenv("HC_DELAY", "soon")
	assert.Equal(t, time.Second, GetEnvDuration("HC_DELAY", time.Second))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("THINK_DELAY", "0s")
	t.Setenv("CARE_TEAM_CHAT_ID", "55")
	t.Setenv("REPORT_FONT_PATH", "/fonts/x.ttf")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Duration(0), cfg.ThinkDelay)
	assert.Equal(t, int64(55), cfg.CareTeamChatID)
	assert.Equal(t, []string{"/fonts/x.ttf", "/a.ttf"}, cfg.FontPaths([]string{"/a.ttf"}))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HC_FROM_FILE=yes\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("HC_FROM_FILE", "")

	loaded := LoadEnv(nil)
	assert.Equal(t, []string{".env"}, loaded)
	assert.Equal(t, "yes", os.Getenv("HC_FROM_FILE"))
}
