package bthost

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the surface every subsystem logs through. The default is
// logrus-backed; embedders that already carry a logger install their own
// with SetLogger.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})

	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})

	// WithComponent tags the logger with the emitting subsystem
	// ("acl", "handler", "h4").
	WithComponent(name string) Logger
}

var (
	loggerMu sync.Mutex
	logger   Logger
)

func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

func GetLogger() Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger == nil {
		logger = newLogrusLogger()
	}
	return logger
}

// ComponentLogger returns the shared logger tagged for a subsystem.
func ComponentLogger(name string) Logger {
	return GetLogger().WithComponent(name)
}

// SetLogLevel adjusts the default logger's verbosity ("debug", "trace",
// ...). Refused when the embedder installed a non-default logger; level
// control belongs to them then.
func SetLogLevel(level string) error {
	ll, ok := GetLogger().(*logrusLogger)
	if !ok {
		return fmt.Errorf("non-default logger installed, set its level directly")
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("unknown log level %q: %v", level, err)
	}
	ll.entry.Logger.SetLevel(parsed)
	return nil
}

type logrusLogger struct {
	entry *logrus.Entry
}

func newLogrusLogger() *logrusLogger {
	l := &logrus.Logger{
		Formatter: &logrus.TextFormatter{DisableTimestamp: true},
		Level:     logrus.InfoLevel,
		Out:       os.Stderr,
		Hooks:     make(logrus.LevelHooks),
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *logrusLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *logrusLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *logrusLogger) Error(args ...interface{}) { l.entry.Error(args...) }

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithComponent(name string) Logger {
	return &logrusLogger{entry: l.entry.WithField("component", name)}
}
