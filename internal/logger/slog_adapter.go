package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// consoleTimeFormat 終端輸出的時間格式
const consoleTimeFormat = time.DateTime

// SlogLogger slog 實作
type SlogLogger struct {
	logger  *slog.Logger
	writers []io.WriteCloser // 需要關閉的 writers
}

// NewSlogLogger 建立新的 slog logger
// 每個輸出目標各自一個 handler：終端使用 tint，檔案使用 slog text/json
func NewSlogLogger(config Config) (*SlogLogger, error) {
	var handlers []slog.Handler
	var closeableWriters []io.WriteCloser

	opts := &slog.HandlerOptions{
		Level: convertLevel(config.Level),
	}

	// 根據配置新增輸出目標
	for _, output := range config.Outputs {
		switch output.Type {
		case OutputStdout, OutputStderr:
			w := output.Writer
			if w == nil {
				w = os.Stdout
				if output.Type == OutputStderr {
					w = os.Stderr
				}
			}
			// Check if custom writer needs closing (exclude standard streams)
			if wc, ok := w.(io.WriteCloser); ok && !isStdStream(wc) {
				closeableWriters = append(closeableWriters, wc)
			}
			handlers = append(handlers, newConsoleHandler(w, config, opts))

		case OutputFile:
			if config.File.Enabled {
				fileWriter, err := createFileWriter(config.File)
				if err != nil {
					closeAll(closeableWriters)
					return nil, fmt.Errorf("failed to create file writer: %w", err)
				}
				closeableWriters = append(closeableWriters, fileWriter)
				handlers = append(handlers, newStreamHandler(fileWriter, config.Format, opts))
			}
		}
	}

	if len(handlers) == 0 {
		handlers = append(handlers, newConsoleHandler(os.Stdout, config, opts))
	}

	return &SlogLogger{
		logger:  slog.New(newMultiHandler(handlers...)),
		writers: closeableWriters,
	}, nil
}

// newConsoleHandler 終端 handler：text 格式使用 tint，非 TTY 時關閉顏色
func newConsoleHandler(w io.Writer, config Config, opts *slog.HandlerOptions) slog.Handler {
	if config.Format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: consoleTimeFormat,
		NoColor:    config.NoColor || !isTerminal(w),
	})
}

// newStreamHandler 檔案 handler
func newStreamHandler(w io.Writer, format Format, opts *slog.HandlerOptions) slog.Handler {
	switch format {
	case FormatJSON:
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

// createFileWriter 建立檔案 writer（使用 lumberjack 支援 rotation）
// 既有的 log 檔以 append 方式延續，不會被截斷
func createFileWriter(config FileConfig) (io.WriteCloser, error) {
	// Validate path is not empty
	if config.Path == "" {
		return nil, fmt.Errorf("log file path cannot be empty")
	}

	// 確保目錄存在
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSizeMB,
		MaxAge:     config.MaxAgeDays,
		MaxBackups: config.MaxBackups,
		Compress:   config.Compress,
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func isStdStream(w io.WriteCloser) bool {
	return w == os.Stdout || w == os.Stderr || w == os.Stdin
}

func closeAll(writers []io.WriteCloser) {
	for _, w := range writers {
		w.Close()
	}
}

// convertLevel 轉換內部 Level 到 slog.Level
func convertLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug 記錄 debug 級別日誌
func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// Info 記錄 info 級別日誌
func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn 記錄 warn 級別日誌
func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error 記錄 error 級別日誌
func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// With 建立帶 context 的子 logger
// 子 logger 不擁有 writers，避免重複關閉
func (l *SlogLogger) With(args ...any) Logger {
	return &childLogger{logger: l.logger.With(args...)}
}

// Slog 回傳底層的 *slog.Logger
func (l *SlogLogger) Slog() *slog.Logger {
	return l.logger
}

// Sync 強制 flush 所有緩衝
func (l *SlogLogger) Sync() error {
	// slog handlers 直接寫入，lumberjack 不做緩衝
	return nil
}

// Shutdown 優雅關閉，flush 並關閉所有 writers
func (l *SlogLogger) Shutdown() error {
	var lastErr error
	for _, w := range l.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	l.writers = nil
	return lastErr
}

// childLogger 子 logger，不擁有 writers，避免重複關閉
type childLogger struct {
	logger *slog.Logger
}

func (c *childLogger) Debug(msg string, args ...any) {
	c.logger.Debug(msg, args...)
}

func (c *childLogger) Info(msg string, args ...any) {
	c.logger.Info(msg, args...)
}

func (c *childLogger) Warn(msg string, args ...any) {
	c.logger.Warn(msg, args...)
}

func (c *childLogger) Error(msg string, args ...any) {
	c.logger.Error(msg, args...)
}

func (c *childLogger) With(args ...any) Logger {
	return &childLogger{logger: c.logger.With(args...)}
}

func (c *childLogger) Sync() error {
	return nil
}

func (c *childLogger) Shutdown() error {
	// Child logger 不擁有 writers，不執行關閉
	return nil
}
