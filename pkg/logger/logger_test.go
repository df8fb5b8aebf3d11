package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phantom-bronze/UserModule/internal/common/config"
)

func TestNewLoggerDefaults(t *testing.T) {
	cfg := &config.LoggerConfig{}
	lg, err := NewLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, lg)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
}

func TestNewLoggerFileOutput(t *testing.T) {
	cfg := &config.LoggerConfig{
		Output:   "file",
		FilePath: filepath.Join(t.TempDir(), "logs", "apiserver.log"),
	}
	lg, err := NewLogger(cfg)
	require.NoError(t, err)
	lg.Info("hello")
	assert.NoError(t, lg.Sync())
}
