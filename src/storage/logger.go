package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"

	"AirQualityReport/src/config"
)

// LogFile 日志文件，超过大小上限时自动轮转。实现 io.Writer，供 slog 使用
type LogFile struct {
	name    string
	maxSize int64 // 0 表示不轮转
	file    *os.File
	size    int64
	mu      sync.Mutex
}

// OpenLogFile 打开或创建日志文件
// 参数:
//
//	filename: 日志文件路径
//	maxSize: 大小上限表达式，例如 "10 * 1024 * 1024"，空表示不轮转
func OpenLogFile(filename, maxSize string) (*LogFile, error) {
	limit, err := eval(maxSize)
	if err != nil {
		return nil, fmt.Errorf("invalid log_max_size %q: %w", maxSize, err)
	}
	l := &LogFile{name: filename, maxSize: limit}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LogFile) open() error {
	file, err := os.OpenFile(l.name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	l.file = file
	l.size = info.Size()
	return nil
}

// Write 写入一条日志，写入前检查是否需要轮转
func (l *LogFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return 0, os.ErrClosed
	}
	if l.maxSize > 0 && l.size+int64(len(p)) > l.maxSize && l.size > 0 {
		if err := l.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := l.file.Write(p)
	l.size += int64(n)
	return n, err
}

// rotate 把当前文件重命名为 name.20060102150405.ext 并重新打开
func (l *LogFile) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	ext := filepath.Ext(l.name)
	rotated := fmt.Sprintf("%s.%s%s", strings.TrimSuffix(l.name, ext), time.Now().Format("20060102150405.000000"), ext)
	if err := os.Rename(l.name, rotated); err != nil {
		return err
	}
	return l.open()
}

// Reopen 重新打开日志文件，配合外部 logrotate 的 SIGHUP 使用
func (l *LogFile) Reopen() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		_ = l.file.Close()
	}
	return l.open()
}

// Close 关闭日志文件
func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// eval 计算 "a * b * c" 形式的乘法表达式
func eval(expr string) (int64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, nil
	}
	var result int64 = 1
	for _, part := range strings.Split(expr, "*") {
		num, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0, err
		}
		result *= num
	}
	return result, nil
}

// ParseLevel 把配置中的级别名转为 slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (allowed: debug, info, warn, error)", s)
	}
}

// NewLogger 创建日志记录器：控制台使用 tint 彩色输出，日志文件使用 JSON。
// cfg.LogName 为空时只输出到控制台，返回的 *LogFile 为 nil
func NewLogger(cfg *config.Config, console io.Writer) (*slog.Logger, *LogFile, error) {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	consoleHandler := tint.NewHandler(console, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
	if cfg.LogName == "" {
		return slog.New(consoleHandler), nil, nil
	}

	file, err := OpenLogFile(cfg.LogName, cfg.LogMaxSize)
	if err != nil {
		return nil, nil, err
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(teeHandler{consoleHandler, fileHandler}), file, nil
}

// teeHandler 把同一条记录交给多个 handler
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
