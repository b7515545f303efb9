package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 2056, cfg.BatchSize)
	assert.Equal(t, 1, cfg.MaxOpenConns)
	assert.Equal(t, 30*time.Second, cfg.BusyTimeout)
	assert.Empty(t, cfg.Tables)
	assert.Equal(t, filepath.Join(".bods-data", "database.sqlite"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(".bods-data", "staging"), cfg.StagingPath())
	assert.Equal(t, "https://data.bus-data.dft.gov.uk/timetable/download/gtfs-file", cfg.BaseURL)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("BODS_BATCH_SIZE", "500")
	t.Setenv("BODS_TABLES", "agency, stops")
	t.Setenv("BODS_RUN_TIMEOUT", "15m")
	t.Setenv("BODS_STAGING_DIR", "/tmp/bods")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, []string{"agency", "stops"}, cfg.Tables)
	assert.Equal(t, 15*time.Minute, cfg.RunTimeout)
	assert.Equal(t, "/tmp/bods", cfg.StagingPath())
}

func TestEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BODS_WORKERS=3\nBODS_LOG_FORMAT=json\n"), 0o644))
	t.Setenv("BODS_WORKERS", "")
	os.Unsetenv("BODS_WORKERS")
	t.Setenv("BODS_LOG_FORMAT", "")
	os.Unsetenv("BODS_LOG_FORMAT")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "json", cfg.LogFormat)

	_, isJSON := cfg.NewLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestMissingEnvFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("BODS_BATCH_SIZE", "0")
	t.Setenv("BODS_LOG_LEVEL", "chatty")

	_, err := Load(viper.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
	assert.Contains(t, err.Error(), "chatty")
}

func TestAbsoluteDatabaseFile(t *testing.T) {
	cfg := &Config{DataDir: "data", DatabaseFile: "/var/lib/bods/gtfs.sqlite"}
	assert.Equal(t, "/var/lib/bods/gtfs.sqlite", cfg.DatabasePath())
}
