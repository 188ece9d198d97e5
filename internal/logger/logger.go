package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"pool-watch/internal/models"
)

// Logger 对 zerolog 的薄封装 由入口创建后显式传给各组件
type Logger struct {
	zl     zerolog.Logger
	closer io.Closer
}

// New 按配置创建日志实例。
func New(config *models.Config) (*Logger, error) {
	output, closer, err := buildLogWriter(config.LogFile)
	if err != nil {
		return nil, err
	}
	if config.LogFormat != "json" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "2006-01-02 15:04:05", NoColor: config.LogFile != ""}
	}

	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zl := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl, closer: closer}, nil
}

// NewWithWriter 使用指定输出创建日志实例 主要用于测试断言日志内容。
func NewWithWriter(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return &Logger{zl: zerolog.New(w).Level(lvl)}
}

// Nop 返回丢弃所有输出的日志实例。
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func buildLogWriter(logFile string) (io.Writer, io.Closer, error) {
	if logFile == "" {
		return os.Stdout, nil, nil
	}

	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("创建日志目录失败: %w", err)
	}

	logOutput, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("打开日志文件失败: %w", err)
	}

	return io.MultiWriter(os.Stdout, logOutput), logOutput, nil
}

// Info 记录信息日志。
func (l *Logger) Info(format string, v ...interface{}) {
	l.get().Info().Msgf(format, v...)
}

// Error 记录错误日志。
func (l *Logger) Error(format string, v ...interface{}) {
	l.get().Error().Msgf(format, v...)
}

// Warn 记录警告日志。
func (l *Logger) Warn(format string, v ...interface{}) {
	l.get().Warn().Msgf(format, v...)
}

// Debug 记录调试日志。
func (l *Logger) Debug(format string, v ...interface{}) {
	l.get().Debug().Msgf(format, v...)
}

// With 返回附带固定字段的子日志。
func (l *Logger) With(key, value string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// Close 关闭日志文件句柄。
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) get() *zerolog.Logger {
	if l == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return &l.zl
}
