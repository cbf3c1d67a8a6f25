package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/atinyakov/accountvault/internal/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv clears the variables config.Load reads and moves into an empty
// directory so no stray .env file is picked up.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SERVER_ADDRESS", "DATABASE_URL", "LOG_LEVEL", "CONFIG", "MIRROR_TIMEOUT",
		"GOOGLE_SHEETS_NAME", "GOOGLE_CREDENTIALS_JSON", "GOOGLE_CREDENTIALS_FILE",
		"GOOGLE_SHEETS_COLUMNS", "GOOGLE_SHEETS_TIMEZONE", "GOOGLE_SHEETS_TIME_FORMAT",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Chdir(t.TempDir())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand("1.2.3")
	require.NotNil(t, cmd)
	assert.Equal(t, "server", cmd.Use)
	assert.Equal(t, "1.2.3", cmd.Version)
	assert.NotNil(t, cmd.RunE, "bare invocation serves")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand("test")
	for _, path := range [][]string{{"serve"}, {"migrate"}, {"mirror"}, {"mirror", "status"}, {"mirror", "ping"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand("test")
	tests := []struct {
		name, shorthand string
	}{
		{"config", "c"},
		{"addr", "a"},
		{"database-dsn", "d"},
		{"log-level", ""},
	}
	for _, tt := range tests {
		f := cmd.PersistentFlags().Lookup(tt.name)
		require.NotNil(t, f, tt.name)
		assert.Equal(t, tt.shorthand, f.Shorthand, tt.name)
		assert.Equal(t, "", f.DefValue, tt.name)
	}
}

func TestLoadOptions_FlagsOverrideEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SERVER_ADDRESS", ":1111")
	t.Setenv("DATABASE_URL", "sqlite:env.db")

	ro := &RootOptions{}
	cmd := NewServeCommand(ro)
	cmd.Flags().StringVarP(&ro.Address, "addr", "a", "", "")
	cmd.Flags().StringVarP(&ro.DatabaseDSN, "database-dsn", "d", "", "")
	cmd.Flags().StringVar(&ro.LogLevel, "log-level", "", "")
	require.NoError(t, cmd.ParseFlags([]string{"--addr", ":2222"}))

	opts, err := loadOptions(cmd, ro)
	require.NoError(t, err)

	assert.Equal(t, ":2222", opts.Address)
	assert.Equal(t, "sqlite:env.db", opts.DatabaseDSN, "unchanged flags do not override")
}

func TestMigrate_SQLite(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "vault.db")

	_, err := execute(t, "migrate", "--database-dsn", "sqlite:"+path, "--log-level", "error")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "migrate")
	assert.Error(t, err)
}

func TestMirrorStatus_Unconfigured(t *testing.T) {
	isolateEnv(t)
	t.Setenv("GOOGLE_SHEETS_COLUMNS", "id|ID,platform|Platform")

	out, err := execute(t, "mirror", "status", "--log-level", "error")
	require.NoError(t, err)

	var st mirror.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.False(t, st.OK)
	assert.False(t, st.HasCredentials)
	assert.Equal(t, "Accounts", st.SheetName)
	assert.Equal(t, mirror.CodeMissingCredentials, st.Error)
	assert.Len(t, st.Columns, 2)
	assert.Equal(t, "UTC", st.TimeZone)
}

func TestMirrorPing_FailsWithoutCredentials(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "mirror", "ping", "--log-level", "error")
	assert.ErrorIs(t, err, errProbeFailed)

	var res mirror.ProbeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.OK)
	assert.Equal(t, "MISSING_CREDENTIALS", res.Error)
}

func TestMirrorStatus_BadTimeZone(t *testing.T) {
	isolateEnv(t)
	t.Setenv("GOOGLE_SHEETS_TIMEZONE", "Nowhere/Special")

	_, err := execute(t, "mirror", "status", "--log-level", "error")
	assert.Error(t, err)
}
