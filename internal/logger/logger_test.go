package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pool-watch/internal/models"
)

func TestNewWithWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter(&buf, "warn")

	lg.Info("忽略 %d", 1)
	lg.Warn("窗口错误率 %.2f%%", 5.0)

	out := buf.String()
	assert.NotContains(t, out, "忽略")
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "窗口错误率 5.00%")
}

func TestWithAddsField(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "debug").With("component", "monitor").Debug("hello")
	assert.Contains(t, buf.String(), `"component":"monitor"`)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var lg *Logger
	lg.Info("no panic")
	lg.With("k", "v").Error("still no panic")
	assert.NoError(t, lg.Close())
}

func TestNewWritesJSONToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "monitor.log")
	lg, err := New(&models.Config{LogLevel: "info", LogFormat: "json", LogFile: logFile})
	require.NoError(t, err)

	lg.Info("[POOL] 初始活跃 pool: %s", "BLUE")
	require.NoError(t, lg.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.True(t, strings.HasPrefix(line, "{"), "json 格式应输出结构化日志: %s", line)
	assert.Contains(t, line, "初始活跃 pool: BLUE")
}

func TestNewLeavesZerologGlobalsAlone(t *testing.T) {
	original := zerolog.TimeFieldFormat
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	t.Cleanup(func() { zerolog.TimeFieldFormat = original })

	lg, err := New(&models.Config{LogLevel: "info", LogFormat: "json"})
	require.NoError(t, err)
	defer lg.Close()

	assert.Equal(t, zerolog.TimeFormatUnix, zerolog.TimeFieldFormat)
}
