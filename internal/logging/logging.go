// Package logging is a thin file logger. One log file per install; lines
// from concurrent calls are told apart by the session scope tag.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Logger struct {
	file   *os.File
	logger *log.Logger
	debug  bool

	mu    sync.Mutex
	scope string
}

func New(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	debugEnv := os.Getenv("VOICECALL_DEBUG")
	debug := debugEnv == "debug" || debugEnv == "trace" || debugEnv == "1"

	return &Logger{
		file:   file,
		logger: log.New(file, "", 0),
		debug:  debug,
	}, nil
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// SetScope tags subsequent lines with a session identifier (the room name),
// so entries from different calls appended to one file stay attributable.
func (l *Logger) SetScope(scope string) {
	l.mu.Lock()
	l.scope = scope
	l.mu.Unlock()
}

func (l *Logger) write(level, msg string) {
	l.mu.Lock()
	scope := l.scope
	l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	if scope != "" {
		l.logger.Printf("[%s] [%s] %s: %s", timestamp, scope, level, msg)
		return
	}
	l.logger.Printf("[%s] %s: %s", timestamp, level, msg)
}

func (l *Logger) Info(msg string) {
	l.write("INFO", msg)
}

func (l *Logger) Error(msg string) {
	l.write("ERROR", msg)
}

func (l *Logger) Debug(msg string) {
	if l.debug {
		l.write("DEBUG", msg)
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

// DefaultLogPath is the fallback used when neither VOICECALL_LOG_PATH nor the
// config file names one.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/voicecall.log"
	}
	return filepath.Join(home, ".voicecall", "voicecall.log")
}
