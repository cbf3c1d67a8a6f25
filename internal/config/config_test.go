package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates a test from variables set in the developer's shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SERVER_ADDRESS", "DATABASE_URL", "LOG_LEVEL", "CONFIG", "MIRROR_TIMEOUT",
		"GOOGLE_SHEETS_NAME", "GOOGLE_CREDENTIALS_JSON", "GOOGLE_CREDENTIALS_FILE",
		"GOOGLE_SHEETS_COLUMNS", "GOOGLE_SHEETS_TIMEZONE", "GOOGLE_SHEETS_TIME_FORMAT",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	opts, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), opts)
	assert.Equal(t, 15*time.Second, time.Duration(opts.MirrorTimeout))
	assert.ErrorIs(t, opts.RequireDatabase(), ErrNoDatabase)
}

func TestLoad_JSONFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{
		"address": ":9090",
		"database_dsn": "sqlite::memory:",
		"mirror_timeout": "3s",
		"sheets": {"name": "Backups", "columns": "id|ID"}
	}`)

	opts, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", opts.Address)
	assert.Equal(t, "sqlite::memory:", opts.DatabaseDSN)
	assert.Equal(t, Duration(3*time.Second), opts.MirrorTimeout)
	assert.Equal(t, "Backups", opts.Sheets.Name)
	assert.Equal(t, "id|ID", opts.Sheets.Columns)
	assert.Equal(t, "UTC", opts.Sheets.TimeZone, "unset keys keep defaults")
	assert.Equal(t, path, opts.Config)
	assert.NoError(t, opts.RequireDatabase())
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "vault.yaml", `
address: 0.0.0.0:8000
log_level: debug
mirror_timeout: 500ms
sheets:
  name: Accounts Backup
  time_zone: Asia/Ho_Chi_Minh
  time_format: "%d/%m/%Y"
`)

	opts, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", opts.Address)
	assert.Equal(t, "debug", opts.LogLevel)
	assert.Equal(t, Duration(500*time.Millisecond), opts.MirrorTimeout)
	assert.Equal(t, "Accounts Backup", opts.Sheets.Name)
	assert.Equal(t, "Asia/Ho_Chi_Minh", opts.Sheets.TimeZone)
	assert.Equal(t, "%d/%m/%Y", opts.Sheets.TimeFormat)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"address": ":9090", "sheets": {"name": "FromFile"}}`)
	t.Setenv("SERVER_ADDRESS", ":7070")
	t.Setenv("GOOGLE_SHEETS_NAME", "FromEnv")
	t.Setenv("MIRROR_TIMEOUT", "1m")
	t.Setenv("GOOGLE_SHEETS_COLUMNS", "id,platform|Platform")

	opts, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", opts.Address)
	assert.Equal(t, "FromEnv", opts.Sheets.Name)
	assert.Equal(t, Duration(time.Minute), opts.MirrorTimeout)
	assert.Equal(t, "id,platform|Platform", opts.Sheets.Columns)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"address": ":6060"}`)
	t.Setenv("CONFIG", path)

	opts, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":6060", opts.Address)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	clearEnv(t)

	opts, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", opts.Address)
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"address":`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIRROR_TIMEOUT", "soon")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "ACCOUNTVAULT_DOTENV_PROBE"
	os.Unsetenv(key)
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeFile(t, ".env", key+"=from-dotenv\n")
	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv(key))

	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestCredentials(t *testing.T) {
	inline := SheetsOptions{CredentialsJSON: `{"client_email":"a@b"}`, CredentialsFile: "/does/not/matter"}
	b, err := inline.Credentials()
	require.NoError(t, err)
	assert.Equal(t, `{"client_email":"a@b"}`, string(b))

	path := writeFile(t, "sa.json", `{"client_email":"file@b"}`)
	b, err = SheetsOptions{CredentialsFile: path}.Credentials()
	require.NoError(t, err)
	assert.Equal(t, `{"client_email":"file@b"}`, string(b))

	b, err = SheetsOptions{}.Credentials()
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = SheetsOptions{CredentialsFile: filepath.Join(t.TempDir(), "nope.json")}.Credentials()
	assert.Error(t, err)
}
