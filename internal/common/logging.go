package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logMu  sync.Mutex
	logger = log.New(os.Stderr, "[ulogkit] ", log.LstdFlags|log.Lmicroseconds)
)

// LogConfig controls where log lines go. An empty Directory keeps logging on
// stderr only.
type LogConfig struct {
	Directory  string
	FileName   string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

func Logf(format string, args ...interface{}) {
	logMu.Lock()
	l := logger
	logMu.Unlock()
	l.Printf(format, args...)
}

// SetOutput redirects Logf. It returns the previous writer so tests can
// restore it.
func SetOutput(w io.Writer) io.Writer {
	logMu.Lock()
	defer logMu.Unlock()
	prev := logger.Writer()
	logger = log.New(w, logger.Prefix(), logger.Flags())
	return prev
}

// SetupLogging tees log output into a size-rotated file under cfg.Directory.
// The returned closer releases the file and puts the previous writer back.
func SetupLogging(cfg LogConfig) (io.Closer, error) {
	if cfg.Directory == "" {
		return nopCloser{}, nil
	}
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	name := cfg.FileName
	if name == "" {
		name = "ulogkit.log"
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, name),
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	prev := SetOutput(io.MultiWriter(currentOutput(), rotator))
	return &fileLog{rotator: rotator, prev: prev}, nil
}

func currentOutput() io.Writer {
	logMu.Lock()
	defer logMu.Unlock()
	return logger.Writer()
}

type fileLog struct {
	rotator *lumberjack.Logger
	prev    io.Writer
}

func (f *fileLog) Close() error {
	SetOutput(f.prev)
	return f.rotator.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
