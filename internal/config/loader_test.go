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

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.False(t, cfg.Server.Watch)
	assert.Equal(t, DefaultDriver, cfg.Database.Driver)
	assert.Equal(t, DefaultDBPath, cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, DefaultSolveBudget, cfg.Solver.Budget)
	assert.Equal(t, DefaultSeedsDir, cfg.SeedsDir)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.False(t, cfg.Assist.Enabled())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gridplan.yaml")
	content := `
server:
  port: 9100
  watch: true
database:
  driver: postgres
  host: db.internal
  name: gridplan
solver:
  budget: 30s
seeds_dir: data/seeds
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.True(t, cfg.Server.Watch)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 30*time.Second, cfg.Solver.Budget)
	assert.Equal(t, "data/seeds", cfg.SeedsDir)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GRIDPLAN_SERVER_PORT", "9200")
	t.Setenv("GRIDPLAN_DATABASE_HOST", "envhost")
	t.Setenv("GRIDPLAN_SEEDS_DIR", "/srv/seeds")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "envhost", cfg.Database.Host)
	assert.Equal(t, "/srv/seeds", cfg.SeedsDir)
}

func TestLoad_FlagsWinOverEnv(t *testing.T) {
	t.Setenv("GRIDPLAN_SERVER_PORT", "9200")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", DefaultPort, "")
	flags.String("seeds-dir", DefaultSeedsDir, "")
	require.NoError(t, flags.Parse([]string{"--port", "9300"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, 9300, cfg.Server.Port)
	// Unchanged flags must not clobber lower layers.
	assert.Equal(t, DefaultSeedsDir, cfg.SeedsDir)
}

func TestLoad_SecretExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")

	dir := t.TempDir()
	path := filepath.Join(dir, "gridplan.yaml")
	content := `
database:
  driver: postgres
  name: gridplan
  password: ${TEST_DB_PASSWORD}
  user: ${TEST_DB_USER_UNSET}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	// Unknown references stay as written.
	assert.Equal(t, "${TEST_DB_USER_UNSET}", cfg.Database.User)
}

func TestLoad_InvalidConfig(t *testing.T) {
	t.Setenv("GRIDPLAN_SERVER_PORT", "0")
	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: DefaultPort},
			Database: DatabaseConfig{Driver: DefaultDriver, Path: DefaultDBPath},
			Output:   DefaultOutput,
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Database.Driver = "postgres"
	cfg.Database.Name = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database name is required")

	cfg = base()
	cfg.Database.Driver = "oracle"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")

	cfg = base()
	cfg.Solver.Budget = -time.Second
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget")

	cfg = base()
	cfg.Output = "xml"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "server.port", envTransform("GRIDPLAN_SERVER_PORT"))
	assert.Equal(t, "database.ssl_mode", envTransform("GRIDPLAN_DATABASE_SSL_MODE"))
	assert.Equal(t, "seeds_dir", envTransform("GRIDPLAN_SEEDS_DIR"))
	assert.Equal(t, "verbose", envTransform("GRIDPLAN_VERBOSE"))
}

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "server.port", flagKey("port"))
	assert.Equal(t, "server.watch", flagKey("watch"))
	assert.Equal(t, "solver.budget", flagKey("budget"))
	assert.Equal(t, "seeds_dir", flagKey("seeds-dir"))
}
