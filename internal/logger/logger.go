package logger

import "fmt"

// New 建立 logger
// 不提供全域 logger：呼叫端持有 handle，並在程式結束前呼叫 Shutdown
func New(config Config) (Logger, error) {
	l, err := NewSlogLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create slog logger: %w", err)
	}
	return l, nil
}

// NullLogger 空 logger（不做任何事）
type NullLogger struct{}

func (n *NullLogger) Debug(msg string, args ...any) {}
func (n *NullLogger) Info(msg string, args ...any)  {}
func (n *NullLogger) Warn(msg string, args ...any)  {}
func (n *NullLogger) Error(msg string, args ...any) {}
func (n *NullLogger) With(args ...any) Logger       { return n }
func (n *NullLogger) Sync() error                   { return nil }
func (n *NullLogger) Shutdown() error               { return nil }
