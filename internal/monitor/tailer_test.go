package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTailer(t *testing.T, path string) *Tailer {
	t.Helper()
	tl := NewTailer(path, 20*time.Millisecond, 10*time.Millisecond, nil)
	t.Cleanup(func() { _ = tl.Close() })
	return tl
}

func appendLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	for _, line := range lines {
		_, err := f.WriteString(line)
		require.NoError(t, err)
	}
}

func drain(t *testing.T, tl *Tailer) []string {
	t.Helper()
	var out []string
	for {
		line, ok, err := tl.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, line)
	}
}

func TestTailer_SkipsExistingContentOnFirstOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	appendLines(t, path, "old-1\n", "old-2\n")

	tl := newTestTailer(t, path)
	require.NoError(t, tl.Open(false))
	assert.Empty(t, drain(t, tl))

	appendLines(t, path, "new-1\n", "new-2\n")
	assert.Equal(t, []string{"new-1", "new-2"}, drain(t, tl))
}

func TestTailer_HoldsPartialLineUntilNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	appendLines(t, path)

	tl := newTestTailer(t, path)
	require.NoError(t, tl.Open(false))

	appendLines(t, path, `{"pool":"bl`)
	assert.Empty(t, drain(t, tl))

	appendLines(t, path, `ue"}`+"\r\n", "\n")
	assert.Equal(t, []string{`{"pool":"blue"}`}, drain(t, tl))
}

func TestTailer_RewindsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	appendLines(t, path)

	tl := newTestTailer(t, path)
	require.NoError(t, tl.Open(false))
	appendLines(t, path, "first line that is long\n")
	require.Equal(t, []string{"first line that is long"}, drain(t, tl))

	require.NoError(t, os.Truncate(path, 0))
	assert.Empty(t, drain(t, tl))
	require.NoError(t, tl.Refresh())

	appendLines(t, path, "after\n")
	assert.Equal(t, []string{"after"}, drain(t, tl))
}

func TestTailer_ReadsReplacementFromStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendLines(t, path, "old\n")

	tl := newTestTailer(t, path)
	require.NoError(t, tl.Open(false))

	rotated := filepath.Join(dir, "access.log.new")
	appendLines(t, rotated, "fresh-1\n", "fresh-2\n")
	require.NoError(t, os.Rename(rotated, path))

	assert.Empty(t, drain(t, tl))
	require.NoError(t, tl.Refresh())
	assert.Equal(t, []string{"fresh-1", "fresh-2"}, drain(t, tl))
}

func TestTailer_DrainsRotatedFileBeforeSwitching(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendLines(t, path)

	tl := newTestTailer(t, path)
	require.NoError(t, tl.Open(false))
	require.Empty(t, drain(t, tl))

	// 轮转后旧文件仍在被写入
	rotated := filepath.Join(dir, "access.log.1")
	require.NoError(t, os.Rename(path, rotated))
	appendLines(t, path, "fresh\n")
	appendLines(t, rotated, "late-1\n", "late-2\n", "partial")

	var got []string
	for i := 0; i < 3; i++ {
		require.NoError(t, tl.Refresh())
		got = append(got, drain(t, tl)...)
	}
	assert.Equal(t, []string{"late-1", "late-2", "partial", "fresh"}, got)
}

func TestTailer_DrainsRemovedFileBeforeWaiting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	appendLines(t, path)

	tl := newTestTailer(t, path)
	require.NoError(t, tl.Open(false))
	require.Empty(t, drain(t, tl))

	appendLines(t, path, "last\n")
	require.NoError(t, os.Remove(path))

	require.NoError(t, tl.Refresh(), "未读完时不应切换")
	assert.Equal(t, []string{"last"}, drain(t, tl))
	assert.ErrorIs(t, tl.Refresh(), errSourceGone)
}

func TestTailer_ReportsDisappearance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	appendLines(t, path)

	tl := newTestTailer(t, path)
	require.NoError(t, tl.Open(false))
	require.NoError(t, os.Remove(path))

	err := tl.Refresh()
	assert.ErrorIs(t, err, errSourceGone)
	_, _, err = tl.Next()
	assert.Error(t, err, "句柄关闭后不应继续读取")
}

func TestTailer_WaitForSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	tl := newTestTailer(t, path)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(path, nil, 0o644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tl.WaitForSource(ctx))
}

func TestTailer_WaitForSourceHonoursCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")
	tl := newTestTailer(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tl.WaitForSource(ctx), context.Canceled)
}
