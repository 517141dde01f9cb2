package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// DefaultLogMaxSize caps the debug log at 5 MiB before it rolls over.
const DefaultLogMaxSize = 5 * 1024 * 1024

// FileLogger writes timestamped messages to a debug log file. The file is
// truncated on open; when it grows past maxSize it is renamed to <file>.1
// and a fresh file is started (one backup kept).
type FileLogger struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	file    *os.File
	log     *log.Logger
}

// NewFileLogger creates the log directory if needed and opens the log file,
// truncating any previous contents. maxSize <= 0 uses DefaultLogMaxSize.
func NewFileLogger(dir, name string, maxSize int64) (*FileLogger, error) {
	if maxSize <= 0 {
		maxSize = DefaultLogMaxSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	return &FileLogger{
		path:    path,
		maxSize: maxSize,
		file:    f,
		log:     log.New(f, "", log.LstdFlags|log.Lmicroseconds),
	}, nil
}

// Close flushes and closes the underlying file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *FileLogger) Debug(format string, args ...interface{}) { l.write("DEBUG", format, args...) }
func (l *FileLogger) Info(format string, args ...interface{})  { l.write("INFO", format, args...) }
func (l *FileLogger) Warn(format string, args ...interface{})  { l.write("WARN", format, args...) }
func (l *FileLogger) Error(format string, args ...interface{}) { l.write("ERROR", format, args...) }

func (l *FileLogger) write(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	l.rotateIfNeeded()
	l.log.Printf(level+" "+format, args...)
}

// rotateIfNeeded rolls the log over when it exceeds maxSize. Callers hold mu.
func (l *FileLogger) rotateIfNeeded() {
	info, err := l.file.Stat()
	if err != nil || info.Size() < l.maxSize {
		return
	}

	_ = l.file.Close()
	_ = os.Rename(l.path, l.path+".1")

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		// Logging must never take the process down; drop messages instead.
		l.file = nil
		return
	}
	l.file = f
	l.log.SetOutput(f)
}
