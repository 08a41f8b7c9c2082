// Package common provides shared utilities for vire-desk.
package common

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

const logTimeFormat = "2006-01-02T15:04:05Z07:00"

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// Logger wraps arbor.ILogger.
type Logger struct {
	arbor.ILogger
}

type discardWriter struct{}

func (w *discardWriter) Write(p []byte) (int, error)           { return len(p), nil }
func (w *discardWriter) WithLevel(_ log.Level) writers.IWriter { return w }
func (w *discardWriter) GetFilePath() string                   { return "" }
func (w *discardWriter) Close() error                          { return nil }

// lineWriter renders arbor's JSON events as "LEVEL message k=v ..." lines.
// Fields are sorted so output is stable.
type lineWriter struct {
	out   io.Writer
	level log.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	var evt models.LogEvent
	if err := json.Unmarshal(p, &evt); err != nil {
		return w.out.Write(p)
	}
	if evt.Level < w.level {
		return len(p), nil
	}

	var b strings.Builder
	b.WriteString(strings.ToUpper(arbor.LevelToString(evt.Level)))
	b.WriteByte(' ')
	b.WriteString(evt.Message)

	keys := make([]string, 0, len(evt.Fields))
	for k := range evt.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, evt.Fields[k])
	}
	if evt.Error != "" {
		fmt.Fprintf(&b, " error=%s", evt.Error)
	}
	if evt.CorrelationID != "" {
		fmt.Fprintf(&b, " correlation_id=%s", evt.CorrelationID)
	}
	b.WriteByte('\n')
	return w.out.Write([]byte(b.String()))
}

func (w *lineWriter) WithLevel(level log.Level) writers.IWriter {
	w.level = level
	return w
}

func (w *lineWriter) GetFilePath() string { return "" }
func (w *lineWriter) Close() error        { return nil }

// NewLogger creates a logger writing to stderr and the default log file.
func NewLogger(level string) *Logger {
	return NewLoggerFromConfig(LoggingConfig{Level: level})
}

// NewLoggerFromConfig creates a logger from cfg. Console output goes to
// stderr: stdout carries the MCP stdio transport and the REPL.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console", "file"}
	}

	l := arbor.NewLogger()
	for _, out := range outputs {
		switch out {
		case "console":
			l = l.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				Writer:     os.Stderr,
				TimeFormat: logTimeFormat,
			})
		case "file":
			l = l.WithFileWriter(fileWriterConfig(cfg))
		}
	}
	return &Logger{ILogger: l.WithLevelFromString(level)}
}

func fileWriterConfig(cfg LoggingConfig) models.WriterConfiguration {
	path := cfg.FilePath
	if path == "" {
		path = "logs/vire-desk.log"
	}
	maxSize := int64(cfg.MaxSizeMB) * 1024 * 1024
	if maxSize <= 0 {
		maxSize = 500 * 1024
	}
	backups := cfg.MaxBackups
	if backups <= 0 {
		backups = 20
	}
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeFile,
		FileName:   path,
		MaxSize:    maxSize,
		MaxBackups: backups,
		TimeFormat: logTimeFormat,
	}
}

// NewLoggerWithOutput creates a logger writing text lines to w only. Writes
// are synchronous, so tests can read w straight after logging.
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	l := arbor.NewLogger().
		WithWriters([]writers.IWriter{&lineWriter{out: w, level: log.TraceLevel}}).
		WithLevelFromString(level)
	return &Logger{ILogger: l}
}

// NewSilentLogger creates a logger that discards all output, including what
// would otherwise reach globally registered writers.
func NewSilentLogger() *Logger {
	return &Logger{ILogger: arbor.NewLogger().WithWriters([]writers.IWriter{&discardWriter{}})}
}

// WithCorrelationId returns a new Logger with a correlation ID set.
func (l *Logger) WithCorrelationId(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}

// ForAction returns a logger tagged with a fresh correlation ID.
func (l *Logger) ForAction() (*Logger, string) {
	id := uuid.NewString()
	return l.WithCorrelationId(id), id
}

type loggerKey struct{}

// WithLogger returns a context carrying l. Components log through
// FromContext so one user action keeps its correlation ID across layers.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger carried by ctx, or fallback.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*Logger); ok && l != nil {
			return l
		}
	}
	return fallback
}
