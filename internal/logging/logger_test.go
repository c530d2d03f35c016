package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vcheck-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func readLevelFile(t *testing.T, dir, level string) string {
	t.Helper()
	name := filepath.Join(dir, time.Now().Format("2006-01-02")+"-"+level+".log")
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	return string(data)
}

func TestInitUsesConfiguredDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "app-logs")
	cfg := config.LoggingConfig{
		Directory:  dir,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	}

	log, err := Init(cfg)
	require.NoError(t, err)

	log.Info("info entry")
	log.Warn("warn entry")
	log.Sync()

	// Each level lands in its own file, exact-level match.
	infoLog := readLevelFile(t, dir, "info")
	assert.Contains(t, infoLog, "info entry")
	assert.NotContains(t, infoLog, "warn entry")

	warnLog := readLevelFile(t, dir, "warn")
	assert.Contains(t, warnLog, "warn entry")
	assert.NotContains(t, warnLog, "info entry")
}

func TestGormZapLoggerLogMode(t *testing.T) {
	base := NewGormZapLogger(zap.NewNop())
	assert.Equal(t, gormlogger.Info, base.LogLevel)

	lowered := base.LogMode(gormlogger.Warn)
	copied, ok := lowered.(*GormZapLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, copied.LogLevel)
	assert.Equal(t, gormlogger.Info, base.LogLevel, "LogMode returns a copy")
}

func TestLogFileNamesCarryTheDate(t *testing.T) {
	dir := t.TempDir()
	cfg := config.LoggingConfig{Directory: dir, MaxSize: 1, MaxBackups: 1, MaxAge: 1}

	log, err := Init(cfg)
	require.NoError(t, err)
	log.Error("boom")
	log.Sync()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	prefix := time.Now().Format("2006-01-02")
	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.Name(), prefix), e.Name())
	}
}
