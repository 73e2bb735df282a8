package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory so no stray config or .env
// file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "info", "")
	fs.String("transport", "stdio", "")
	fs.String("addr", "", "")
	fs.String("history", "", "")
	fs.Bool("verbose", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 1000, cfg.NetSuite.PageSize)
	assert.Equal(t, 60*time.Second, cfg.NetSuite.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Paging.Delay)
	assert.Equal(t, 1000, cfg.Paging.MaxPages)
	assert.False(t, cfg.Normalize.SkipFalsy)
	assert.Empty(t, cfg.History.Path)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
netsuite:
  account_id: "1234567_SB1"
  token: from-file
  page_size: 500
paging:
  delay: 250ms
normalize:
  skip_falsy: true
log:
  level: warn
`), 0o600))

	t.Setenv("NETSUITE_TOKEN", "from-env")
	t.Setenv("NETSUITE_LOG_LEVEL", "debug")
	t.Setenv("NETSUITE_PAGING_MAX_PAGES", "7")

	cfg, err := Load(path, testFlags(t, "--log-level", "error", "--transport", "http"))
	require.NoError(t, err)

	assert.Equal(t, "1234567_SB1", cfg.NetSuite.AccountID)
	assert.Equal(t, "from-env", cfg.NetSuite.Token)
	assert.Equal(t, 500, cfg.NetSuite.PageSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Paging.Delay)
	assert.Equal(t, 7, cfg.Paging.MaxPages)
	assert.True(t, cfg.Normalize.SkipFalsy)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, TransportHTTP, cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestLoad_UnchangedFlagsDoNotOverride(t *testing.T) {
	isolate(t)
	t.Setenv("NETSUITE_LOG_LEVEL", "debug")

	cfg, err := Load("", testFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DefaultFileName(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "netsuite-mcp.yml"), []byte("history:\n  path: q.db\n"), 0o600))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "q.db", cfg.History.Path)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NETSUITE_RESTLET_URL=https://example.test/restlet\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("NETSUITE_RESTLET_URL") })

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/restlet", cfg.NetSuite.RESTletURL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load("nope.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"NETSUITE_TOKEN":                "netsuite.token",
		"NETSUITE_ACCOUNT_ID":           "netsuite.account_id",
		"NETSUITE_SUITEQL_URL":          "netsuite.suiteql_url",
		"NETSUITE_LOG_FORMAT":           "log.format",
		"NETSUITE_HISTORY_PATH":         "history.path",
		"NETSUITE_SERVER_ADDR":          "server.addr",
		"NETSUITE_NORMALIZE_SKIP_FALSY": "normalize.skip_falsy",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			NetSuite: NetSuiteConfig{PageSize: 1000},
			Paging:   PagingConfig{MaxPages: 10},
			Log:      LogConfig{Level: "info", Format: "text"},
			Server:   ServerConfig{Transport: TransportStdio},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown transport", mutate: func(c *Config) { c.Server.Transport = "grpc" }, errSubstr: "server.transport"},
		{name: "http without addr", mutate: func(c *Config) { c.Server.Transport = TransportHTTP }, errSubstr: "server.addr"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, errSubstr: "log.level"},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, errSubstr: "log.format"},
		{name: "page size too large", mutate: func(c *Config) { c.NetSuite.PageSize = 5000 }, errSubstr: "page_size"},
		{name: "no pages", mutate: func(c *Config) { c.Paging.MaxPages = 0 }, errSubstr: "max_pages"},
		{name: "negative delay", mutate: func(c *Config) { c.Paging.Delay = -time.Second }, errSubstr: "paging.delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_Client(t *testing.T) {
	cfg := Config{NetSuite: NetSuiteConfig{AccountID: "42", Token: "t", PageSize: 200, MaxRetries: 2}}
	c := cfg.Client()
	assert.Equal(t, "42", c.AccountID)
	assert.Equal(t, "t", c.Token)
	assert.Equal(t, 200, c.PageSize)
	assert.Equal(t, uint64(2), c.MaxRetries)
}
