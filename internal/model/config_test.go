package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://eminus.uv.mx", cfg.Portal.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Portal.Timeout)
	assert.Equal(t, 6, cfg.Windows.RecentMonths)
	assert.Equal(t, 10, cfg.Windows.ReminderMinutes)
	assert.Equal(t, BackendFile, cfg.State.Backend)
	assert.Equal(t, filepath.Join(".", "eminus-watch.db"), cfg.State.SQLitePath)
	assert.Equal(t, 1, cfg.Notify.Parallelism)
	assert.Equal(t, "es-MX", cfg.Notify.Locale)
	assert.False(t, cfg.Notify.AnyChannel())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
windows:
  reminder_minutes: 30
state:
  backend: sqlite
  dir: /var/lib/eminus
notify:
  slack_webhook_url: https://hooks.slack.test/x
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("USERNAMEEMINUS", "zs12345")
	t.Setenv("PASSWORD", "secret")
	t.Setenv("EMINUS_WATCH_WINDOWS_RECENT_MONTHS", "3")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Windows.ReminderMinutes)
	assert.Equal(t, 3, cfg.Windows.RecentMonths)
	assert.Equal(t, BackendSQLite, cfg.State.Backend)
	assert.Equal(t, filepath.Join("/var/lib/eminus", "eminus-watch.db"), cfg.State.SQLitePath)
	assert.Equal(t, "zs12345", cfg.Credentials.Username)
	assert.Equal(t, "secret", cfg.Credentials.Password)
	assert.Equal(t, int64(42), cfg.Notify.Telegram.ChatID)
	assert.True(t, cfg.Notify.AnyChannel())
	assert.Equal(t, []string{"slack"}, cfg.Notify.Channels())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
windows:
  reminder_minutes: 0
state:
  backend: floppy
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "windows.reminder_minutes")
	assert.Contains(t, err.Error(), `unknown state.backend "floppy"`)
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("EMINUS_WATCH_TEST_A=fromfile\nEMINUS_WATCH_TEST_B=fromfile\n"), 0o600))

	t.Setenv("EMINUS_WATCH_TEST_A", "preset")
	t.Setenv("EMINUS_WATCH_TEST_B", "")
	require.NoError(t, os.Unsetenv("EMINUS_WATCH_TEST_B"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "absent.env")))

	assert.Equal(t, "preset", os.Getenv("EMINUS_WATCH_TEST_A"))
	assert.Equal(t, "fromfile", os.Getenv("EMINUS_WATCH_TEST_B"))
}

func TestCredentialsMaskedUsername(t *testing.T) {
	assert.Equal(t, "zs1***", Credentials{Username: "zs12345"}.MaskedUsername())
	assert.Equal(t, "ab***", Credentials{Username: "ab"}.MaskedUsername())
	assert.Equal(t, "", Credentials{}.MaskedUsername())
	assert.False(t, Credentials{Username: "a"}.Complete())
	assert.True(t, Credentials{Username: "a", Password: "b"}.Complete())
}
