package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Rotation policy defaults.
const (
	defaultMaxBytes   = 10 << 20
	defaultMaxBackups = 5
)

// RotationPolicy bounds the live log file size and the number of rotated
// backups kept beside it. Backups are numbered path.1 (newest) through
// path.N (oldest).
type RotationPolicy struct {
	// MaxBytes is the live file size that triggers rotation.
	MaxBytes int64

	// MaxBackups is the number of rotated files kept.
	MaxBackups int
}

func (p RotationPolicy) withDefaults() RotationPolicy {
	if p.MaxBytes <= 0 {
		p.MaxBytes = defaultMaxBytes
	}
	if p.MaxBackups <= 0 {
		p.MaxBackups = defaultMaxBackups
	}
	return p
}

// RotatingWriter is an io.Writer over a log file with size-based
// rotation. Every write is synced so a tailing reader sees entries as
// they happen.
type RotatingWriter struct {
	path   string
	policy RotationPolicy

	mu   sync.Mutex
	file *os.File
	size int64
}

// NewRotatingWriter opens (or creates) the log file at path, creating
// parent directories as needed.
func NewRotatingWriter(path string, policy RotationPolicy) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	w := &RotatingWriter{path: path, policy: policy.withDefaults()}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write implements io.Writer, rotating first when the entry would push
// the live file past the policy's size bound. A failed rotation is
// reported to stderr and the entry goes to the live file unrotated.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > w.policy.MaxBytes {
		if err := w.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
	}
	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err == nil {
		_ = w.file.Sync()
	}
	return n, err
}

// Sync flushes the live file to disk.
func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close closes the live file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = f
	w.size = info.Size()
	return nil
}

// rotate shifts each backup one slot up, dropping the oldest, then
// renames the live file to .1 and reopens a fresh one.
func (w *RotatingWriter) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
		w.file = nil
	}

	oldest := fmt.Sprintf("%s.%d", w.path, w.policy.MaxBackups)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove oldest backup: %w", err)
	}
	for n := w.policy.MaxBackups - 1; n >= 1; n-- {
		src := fmt.Sprintf("%s.%d", w.path, n)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := os.Rename(src, fmt.Sprintf("%s.%d", w.path, n+1)); err != nil {
			return fmt.Errorf("shift backup %d: %w", n, err)
		}
	}
	if err := os.Rename(w.path, w.path+".1"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotate live log: %w", err)
	}

	w.size = 0
	return w.open()
}
