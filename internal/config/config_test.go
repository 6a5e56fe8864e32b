package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/snapshot"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "2020-06-01", cfg.ReportingStartDate)
	assert.Equal(t, "2020-09-30", cfg.ReportingEndDate)
	assert.Equal(t, "2020-08", cfg.FixedMonthWindow)
	assert.Equal(t, 7, cfg.RollingWindowDays)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"csv"}, cfg.Output.Formats)
	assert.Equal(t, time.Hour, cfg.Server.Interval)

	w, err := cfg.Window()
	require.NoError(t, err)
	assert.Equal(t, snapshot.DefaultConfig(), w)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SNAPSHOT_REPORTING_START_DATE", "2020-07-01")
	t.Setenv("SNAPSHOT_FIXED_MONTH_WINDOW", "2020-07")
	t.Setenv("SNAPSHOT_ROLLING_WINDOW_DAYS", "14")
	t.Setenv("SNAPSHOT_REDIS_TTL", "24h")
	t.Setenv("SNAPSHOT_OUTPUT_FORMATS", "csv,xlsx")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "2020-07-01", cfg.ReportingStartDate)
	assert.Equal(t, 14, cfg.RollingWindowDays)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, []string{"csv", "xlsx"}, cfg.Output.Formats)

	w, err := cfg.Window()
	require.NoError(t, err)
	assert.Equal(t, "2020-07", w.Month.String())
	assert.Equal(t, 14, w.WindowDays)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
reporting_end_date: "2020-08-31"
logging:
  level: debug
server:
  interval: 30m
`), 0o600))

	t.Setenv("SNAPSHOT_LOG_FORMAT", "pretty")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "2020-08-31", cfg.ReportingEndDate)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "pretty", cfg.Logging.Format, "keys absent from the file keep env values")
	assert.Equal(t, 30*time.Minute, cfg.Server.Interval)
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestLoad_YAMLUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reporting_start: 2020-01-01\n"), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad start date", "SNAPSHOT_REPORTING_START_DATE", "2020/06/01"},
		{"start after end", "SNAPSHOT_REPORTING_START_DATE", "2020-10-01"},
		{"bad month", "SNAPSHOT_FIXED_MONTH_WINDOW", "2020-13"},
		{"zero window", "SNAPSHOT_ROLLING_WINDOW_DAYS", "0"},
		{"non-numeric window", "SNAPSHOT_ROLLING_WINDOW_DAYS", "seven"},
		{"bad log level", "SNAPSHOT_LOG_LEVEL", "loud"},
		{"bad output format", "SNAPSHOT_OUTPUT_FORMATS", "csv,parquet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestLoad_StoreSinkFormats(t *testing.T) {
	t.Setenv("SNAPSHOT_OUTPUT_FORMATS", "csv,clickhouse,redis")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"csv", "clickhouse", "redis"}, cfg.Output.Formats)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SNAPSHOT_TEST_DOTENV_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SNAPSHOT_TEST_DOTENV_VALUE") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("SNAPSHOT_TEST_DOTENV_VALUE"))
}
