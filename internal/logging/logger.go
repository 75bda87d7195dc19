package logging

import (
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultLogFile    = "logs/kratio.log"
	defaultMaxSizeMB  = 5
	defaultMaxBackups = 3
)

// Options configures the sinks of a Logger.
type Options struct {
	Level      Level
	Console    io.Writer
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type Logger struct {
	output      *log.Logger
	minLevel    Level
	baseContext map[string]string
	closer      io.Closer
	mu          *sync.Mutex
}

// New builds a Logger writing to the console writer and, when File is set,
// to a size-rotated log file.
func New(options Options) *Logger {
	writers := make([]io.Writer, 0, 2)
	if options.Console != nil {
		writers = append(writers, options.Console)
	}

	var closer io.Closer
	if path := strings.TrimSpace(options.File); path != "" {
		maxSize := options.MaxSizeMB
		if maxSize <= 0 {
			maxSize = defaultMaxSizeMB
		}
		maxBackups := options.MaxBackups
		if maxBackups <= 0 {
			maxBackups = defaultMaxBackups
		}
		rotating := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		}
		writers = append(writers, rotating)
		closer = rotating
	}

	var output io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		output = writers[0]
	default:
		output = io.MultiWriter(writers...)
	}

	logger := NewLoggerWithOutput(options.Level, output)
	logger.closer = closer
	return logger
}

func NewLogger(minLevel Level) *Logger {
	return NewLoggerWithOutput(minLevel, os.Stderr)
}

func NewLoggerWithOutput(minLevel Level, output io.Writer) *Logger {
	if output == nil {
		output = io.Discard
	}
	return &Logger{
		output:   log.New(output, "", log.LstdFlags),
		minLevel: minLevel.orDefault(),
		mu:       &sync.Mutex{},
	}
}

// Discard returns a Logger that drops every entry.
func Discard() *Logger {
	return NewLoggerWithOutput(LevelError, io.Discard)
}

func (l *Logger) With(fields map[string]string) *Logger {
	if l == nil {
		return l
	}
	return &Logger{
		output:      l.output,
		minLevel:    l.minLevel,
		baseContext: cloneFields(l.baseContext, fields),
		closer:      l.closer,
		mu:          l.mu,
	}
}

func (l *Logger) Debug(message string, fields map[string]string) {
	l.log(LevelDebug, message, fields)
}

func (l *Logger) Info(message string, fields map[string]string) {
	l.log(LevelInfo, message, fields)
}

func (l *Logger) Warn(message string, fields map[string]string) {
	l.log(LevelWarning, message, fields)
}

func (l *Logger) Error(message string, fields map[string]string) {
	l.log(LevelError, message, fields)
}

func (l *Logger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	return level.atLeast(l.minLevel)
}

// Timed starts a stopwatch; calling the returned func logs
// "Time spent <name>" with the elapsed milliseconds and returns the duration.
func (l *Logger) Timed(name string, fields map[string]string) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		elapsed := time.Since(start)
		merged := cloneFields(fields, map[string]string{
			"duration_ms": strconv.FormatFloat(float64(elapsed.Microseconds())/1000, 'f', 2, 64),
		})
		l.Info("Time spent "+name, merged)
		return elapsed
	}
}

// Close releases the file sink, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// record is one formatted line: level, quoted message, then sorted fields.
type record struct {
	level   Level
	message string
	fields  map[string]string
}

func (l *Logger) log(level Level, message string, fields map[string]string) {
	if l == nil || !l.Enabled(level) {
		return
	}
	line := record{
		level:   level.orDefault(),
		message: message,
		fields:  cloneFields(l.baseContext, fields),
	}.String()
	l.mu.Lock()
	l.output.Print(line)
	l.mu.Unlock()
}

func cloneFields(base, extra map[string]string) map[string]string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	combined := make(map[string]string, len(base)+len(extra))
	maps.Copy(combined, base)
	maps.Copy(combined, extra)
	return combined
}

func (entry record) String() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "level=%s msg=%s", entry.level, strconv.Quote(entry.message))
	for _, key := range slices.Sorted(maps.Keys(entry.fields)) {
		fmt.Fprintf(&builder, " %s=%s", key, strconv.Quote(entry.fields[key]))
	}
	return builder.String()
}
