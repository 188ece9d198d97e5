// 本文件用于单个日志文件的增量读取
package monitor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"pool-watch/internal/logger"
)

const (
	defaultWaitInterval = 2 * time.Second
	defaultIdleInterval = 100 * time.Millisecond
	readBufferSize      = 64 * 1024
)

// errSourceGone 表示正在读取的日志文件已被删除
var errSourceGone = errors.New("log source disappeared")

// sourceChange 表示空闲轮询时检测到的文件变化
type sourceChange int

const (
	sourceUnchanged sourceChange = iota
	sourceGone
	sourceReplaced
	sourceTruncated
)

// Tailer 持有日志文件句柄 按行读取新增内容
// 空闲等待走定时轮询 fsnotify 可用时用文件事件提前唤醒
type Tailer struct {
	path         string
	waitInterval time.Duration
	idleInterval time.Duration
	log          *logger.Logger

	file      *os.File
	reader    *bufio.Reader
	info      os.FileInfo
	offset    int64
	remainder string
	pending   string // 上一个文件遗留的半行

	notify *fsnotify.Watcher
	wake   chan struct{}
}

// NewTailer 创建日志读取器
func NewTailer(path string, waitInterval, idleInterval time.Duration, log *logger.Logger) *Tailer {
	if waitInterval <= 0 {
		waitInterval = defaultWaitInterval
	}
	if idleInterval <= 0 {
		idleInterval = defaultIdleInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	t := &Tailer{
		path:         filepath.Clean(path),
		waitInterval: waitInterval,
		idleInterval: idleInterval,
		log:          log,
		wake:         make(chan struct{}, 1),
	}
	t.startNotify()
	return t
}

// Path 返回日志文件路径
func (t *Tailer) Path() string {
	return t.path
}

// startNotify 监听日志所在目录 失败时只依赖轮询
func (t *Tailer) startNotify() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.log.Warn("创建文件事件监听失败 改为纯轮询: %v", err)
		return
	}
	dir := filepath.Dir(t.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		t.log.Warn("监听目录失败 改为纯轮询: %s, 错误: %v", dir, err)
		return
	}
	t.notify = watcher
	go t.forwardEvents(watcher)
}

func (t *Tailer) forwardEvents(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != t.path {
				continue
			}
			select {
			case t.wake <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			t.log.Debug("文件事件监听错误: %v", err)
		}
	}
}

// WaitForSource 阻塞直到日志文件出现或 ctx 结束
func (t *Tailer) WaitForSource(ctx context.Context) error {
	announced := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := os.Stat(t.path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.log.Warn("检查日志文件失败: %s, 错误: %v", t.path, err)
		}
		if !announced {
			t.log.Info("[WATCHER] 等待日志文件创建: %s", t.path)
			announced = true
		} else {
			t.log.Debug("[WATCHER] 日志文件仍不存在: %s", t.path)
		}
		if err := t.sleep(ctx, t.waitInterval); err != nil {
			return err
		}
	}
}

// Open 打开日志文件 fromStart 为 false 时定位到末尾 忽略已有内容
func (t *Tailer) Open(fromStart bool) error {
	t.closeFile()
	file, err := os.Open(t.path)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	var offset int64
	if !fromStart {
		offset, err = file.Seek(0, io.SeekEnd)
		if err != nil {
			_ = file.Close()
			return err
		}
	}
	t.file = file
	t.info = info
	t.offset = offset
	t.remainder = ""
	t.reader = bufio.NewReaderSize(file, readBufferSize)
	return nil
}

// Next 非阻塞读取下一整行 没有完整新行时 ok 为 false
// 半行内容先缓存 等换行符写入后再返回
func (t *Tailer) Next() (line string, ok bool, err error) {
	if t.reader == nil {
		return "", false, fmt.Errorf("日志文件未打开: %s", t.path)
	}
	if t.pending != "" {
		line := t.pending
		t.pending = ""
		return line, true, nil
	}
	for {
		chunk, err := t.reader.ReadString('\n')
		t.offset += int64(len(chunk))
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.remainder += chunk
				return "", false, nil
			}
			return "", false, fmt.Errorf("读取日志文件失败: %w", err)
		}
		line := strings.TrimRight(t.remainder+chunk, "\r\n")
		t.remainder = ""
		if strings.TrimSpace(line) == "" {
			continue
		}
		return line, true, nil
	}
}

// Refresh 在空闲时检查文件是否被删除 替换或截断
// 替换或截断时从新内容开头继续读取 删除时关闭句柄并返回 errSourceGone
func (t *Tailer) Refresh() error {
	switch change := t.detectChange(); change {
	case sourceGone, sourceReplaced:
		// 旧句柄上还有未读内容时先读完 再切换
		if t.hasUnread() {
			return nil
		}
		leftover := t.remainder
		if change == sourceGone {
			t.log.Warn("[WATCHER] 日志文件已消失 等待重新出现: %s", t.path)
			t.closeFile()
			t.keepLeftover(leftover)
			return errSourceGone
		}
		t.log.Info("[WATCHER] 日志文件已被替换 从头读取新文件: %s", t.path)
		if err := t.Open(true); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				t.closeFile()
				t.keepLeftover(leftover)
				return errSourceGone
			}
			return fmt.Errorf("重新打开日志文件失败: %w", err)
		}
		t.keepLeftover(leftover)
	case sourceTruncated:
		t.log.Info("[WATCHER] 日志文件被截断 从头读取: %s", t.path)
		if _, err := t.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("重置日志读取位置失败: %w", err)
		}
		t.reader.Reset(t.file)
		t.offset = 0
		t.remainder = ""
	}
	return nil
}

// hasUnread 表示旧句柄对应的文件比已读位置更长
func (t *Tailer) hasUnread() bool {
	if t.file == nil {
		return false
	}
	info, err := t.file.Stat()
	if err != nil {
		return false
	}
	return info.Size() > t.offset
}

// keepLeftover 旧文件末尾没有换行的半行在下次 Next 时作为整行返回
func (t *Tailer) keepLeftover(leftover string) {
	leftover = strings.TrimRight(leftover, "\r\n")
	if strings.TrimSpace(leftover) != "" {
		t.pending = leftover
	}
}

func (t *Tailer) detectChange() sourceChange {
	info, err := os.Stat(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sourceGone
		}
		return sourceUnchanged
	}
	if t.info != nil && !os.SameFile(info, t.info) {
		return sourceReplaced
	}
	if info.Size() < t.offset {
		return sourceTruncated
	}
	return sourceUnchanged
}

// Idle 没有新行时短暂等待 文件事件或 ctx 结束会提前返回
func (t *Tailer) Idle(ctx context.Context) error {
	return t.sleep(ctx, t.idleInterval)
}

func (t *Tailer) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	case <-t.wake:
		return nil
	}
}

func (t *Tailer) closeFile() {
	if t.file != nil {
		_ = t.file.Close()
	}
	t.file = nil
	t.reader = nil
	t.info = nil
	t.offset = 0
	t.remainder = ""
}

// Close 释放文件句柄与事件监听
func (t *Tailer) Close() error {
	t.closeFile()
	if t.notify != nil {
		err := t.notify.Close()
		t.notify = nil
		return err
	}
	return nil
}
