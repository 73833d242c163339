package config

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement-ingest/internal/logging"
)

func TestInitializeConfigDefaults(t *testing.T) {
	// Run from an empty directory so no config file is picked up.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ",", cfg.CSV.Delimiter)
	assert.True(t, cfg.CSV.IncludeHeaders)
	assert.Equal(t, 50, cfg.Parser.MinTextLength)
	assert.Equal(t, 2, cfg.Parser.MinRowsPerTable)
	assert.Equal(t, 150, cfg.Parser.MaxDescriptionLength)
	assert.Equal(t, "SGD", cfg.Ingest.DefaultCurrency)
	assert.Equal(t, "local", cfg.Ingest.DefaultUser)
	assert.NotEmpty(t, cfg.Data.Directory)
}

func TestInitializeConfigEnvOverride(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()

	t.Setenv("STMT_LOG_LEVEL", "debug")
	t.Setenv("STMT_INGEST_DEFAULT_CURRENCY", "CHF")

	cfg, err := InitializeConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "CHF", cfg.Ingest.DefaultCurrency)
}

func TestValidateConfig(t *testing.T) {
	cfg, err := InitializeConfig()
	require.NoError(t, err)

	bad := *cfg
	bad.Log.Level = "chatty"
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.Log.Format = "xml"
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.CSV.Delimiter = ";;"
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.Parser.MinRowsPerTable = 0
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.Data.Directory = ""
	assert.Error(t, validateConfig(&bad))
}

func TestConfigureLoggingFromConfig(t *testing.T) {
	cfg, err := InitializeConfig()
	require.NoError(t, err)

	registered := logging.GetLogger()

	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"
	logger := ConfigureLoggingFromConfig(cfg)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	// Loggers handed out by the registry are retuned too.
	assert.Equal(t, logrus.DebugLevel, registered.GetLevel())
	_, isJSON = registered.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	cfg.Log.Level = "not-a-level"
	cfg.Log.Format = "text"
	logger = ConfigureLoggingFromConfig(cfg)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
