package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sjsage522/newsworker/logger"
)

// LoggerInterface defines the interface for logger implementations
type LoggerInterface interface {
	LogError(component string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger mirrors messages to the structured logger and keeps errors in a file
type Logger struct {
	mu        sync.Mutex
	errorFile string
}

// NewLogger creates a new logger instance. An empty errorFile disables the file.
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
	}
}

// LogError logs an error to the error file with component name and timestamp
func (l *Logger) LogError(component string, err error) {
	logger.LogError(component, err, "step failed")

	if l.errorFile == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.errorFile); dir != "." {
		if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
			logger.Warn("error log directory unavailable: %v", mkErr)
			return
		}
	}

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.Warn("error log unavailable: %v", fileErr)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, component, err.Error())
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	logger.Info(format, args...)
}
