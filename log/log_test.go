package log

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestExport(t *testing.T) {
	var buf bytes.Buffer
	logger, err := InitLoggerWithWriteSyncer(&Config{Level: "debug", DisableTimestamp: true}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	old := L()
	ReplaceGlobals(logger)
	defer ReplaceGlobals(old)

	Info("Testing")
	Debug("Testing")
	Warn("Testing")
	Error("Testing")
	With(zap.String("name", "tester")).Info("hello")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "log_test.go:")
	assert.Contains(t, out, `"name": "tester"`)
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := InitLoggerWithWriteSyncer(&Config{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestInvalidConfig(t *testing.T) {
	_, err := InitLoggerWithWriteSyncer(&Config{Level: "loud"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)

	_, err = InitLoggerWithWriteSyncer(&Config{Format: "xml"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)

	_, err = InitLogger(&Config{File: FileLogConfig{Filename: t.TempDir()}})
	assert.Error(t, err)
}

func TestFileLog(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "sharecache.log")
	logger, err := InitLogger(&Config{Level: "info", File: FileLogConfig{Filename: filename}})
	require.NoError(t, err)
	logger.Info("to file")
	assert.NoError(t, logger.Sync())
	assert.FileExists(t, filename)
}
