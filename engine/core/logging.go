package core

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type LogLevel = log.Level

const (
	DebugLevel = log.DebugLevel
	InfoLevel  = log.InfoLevel
	WarnLevel  = log.WarnLevel
	ErrorLevel = log.ErrorLevel
	FatalLevel = log.FatalLevel
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(
		func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "Overlay 🖥️ ",
				// report the caller of LogX, not LogX itself
				CallerOffset: 1,
			})
			l.SetLevel(log.InfoLevel)
			singleton = &logger{l}
		})
	return singleton
}

// ParseLogLevel converts a config string ("debug", "info", ...) to a level.
func ParseLogLevel(level string) (LogLevel, error) {
	return log.ParseLevel(level)
}

// Loggers handed out by LogWith. They copy the process logger's settings at
// creation, so level and output changes are pushed to them as well.
var (
	childrenMu sync.Mutex
	children   []*log.Logger
)

func eachChild(fn func(l *log.Logger)) {
	childrenMu.Lock()
	defer childrenMu.Unlock()
	for _, l := range children {
		fn(l)
	}
}

func LogSetLevel(level LogLevel) {
	getLogger().SetLevel(level)
	eachChild(func(l *log.Logger) { l.SetLevel(level) })
}

func LogGetLevel() LogLevel {
	return getLogger().GetLevel()
}

// LogSetOutput redirects the process logger and its children, mostly useful in tests.
func LogSetOutput(w io.Writer) {
	getLogger().SetOutput(w)
	eachChild(func(l *log.Logger) { l.SetOutput(w) })
}

// LogWith returns a child logger carrying the given key/value pairs. It
// follows later LogSetLevel and LogSetOutput calls.
func LogWith(keyvals ...interface{}) *log.Logger {
	child := getLogger().With(keyvals...)
	// Called directly rather than through a LogX helper.
	child.SetCallerOffset(0)

	childrenMu.Lock()
	children = append(children, child)
	childrenMu.Unlock()
	return child
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
