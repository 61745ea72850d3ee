package logger

import (
	"io"
	"strings"
)

// Logger 是同步流程使用的日誌介面，
// 每次 pass 透過 With 附上 source/destination 欄位
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Sync() error
	// Shutdown flushes and closes the rotating log file, if any
	Shutdown() error
}

// Level 由設定檔 log.level 解析
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// ParseLevel maps a config value to a Level; unknown values mean info.
// Config validation rejects unknown names before this is reached.
func ParseLevel(s string) Level {
	if level, ok := levelNames[strings.ToLower(s)]; ok {
		return level
	}
	return LevelInfo
}

// Format selects the file handler; consoles always render text through tint
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat maps a config value to a Format; anything but "json" is text
func ParseFormat(s string) Format {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatText
}

// Output 日誌目的地
type Output int

const (
	OutputStdout Output = iota
	OutputStderr
	OutputFile
)

// Config is built by config.Config.LoggerConfig from the log section
type Config struct {
	Level   Level
	Format  Format
	Outputs []OutputConfig
	File    FileConfig

	// NoColor 關閉終端機顏色 (--no-color)
	NoColor bool
}

// OutputConfig names one destination. Writer overrides stdout/stderr,
// which lets tests capture console output.
type OutputConfig struct {
	Type   Output
	Writer io.Writer
}

// FileConfig 對應 lumberjack 的輪替設定
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}
