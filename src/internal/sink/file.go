// FILE: logpulse/src/internal/sink/file.go
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logpulse/src/internal/core"

	"github.com/klauspost/compress/gzip"
	"github.com/lixenwraith/log"
)

// FileOptions configures the active file and its rotation
type FileOptions struct {
	Directory string
	Name      string
	MaxSize   int64 // rotate when the active file is at least this large
	Compress  bool
}

// Rotation describes a completed rotation of the active file
type Rotation struct {
	ActiveFile string `json:"activeFile"`
	Archive    string `json:"archive"`
	Compressed bool   `json:"compressed"`
	Time       string `json:"timestamp"`
}

// FileSink appends formatted lines to the active file and rotates it by size.
// The rotation check, rename, compression and append run under one mutex, so
// concurrent writers never observe a half rotated file.
type FileSink struct {
	mu     sync.Mutex
	opts   FileOptions
	logger *log.Logger
	clock  func() time.Time

	// replaced in tests
	compress func(path string) (string, error)

	startTime      time.Time
	totalProcessed atomic.Uint64
	totalRotations atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewFileSink creates a file sink. Directories are created on first write.
func NewFileSink(opts FileOptions, logger *log.Logger) *FileSink {
	fs := &FileSink{
		opts:      opts,
		logger:    logger,
		clock:     time.Now,
		compress:  compressFile,
		startTime: time.Now(),
	}
	fs.lastProcessed.Store(time.Time{})
	return fs
}

// SetClock replaces the time source used for archive names
func (fs *FileSink) SetClock(clock func() time.Time) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.clock = clock
}

// Reconfigure swaps the rotation options for subsequent writes
func (fs *FileSink) Reconfigure(opts FileOptions) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.opts = opts
}

// ActivePath returns the path of the active log file
func (fs *FileSink) ActivePath() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return filepath.Join(fs.opts.Directory, fs.opts.Name)
}

// Directory returns the directory holding the active file and archives
func (fs *FileSink) Directory() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.opts.Directory
}

// Write rotates the active file when needed, then appends line and a newline.
// A non-nil Rotation is returned when a rotation took place. Rotation failures
// are logged and do not prevent the append.
func (fs *FileSink) Write(line string) (*Rotation, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	active := filepath.Join(fs.opts.Directory, fs.opts.Name)

	rotation, err := fs.rotateIfNeeded(active)
	if err != nil {
		fs.logger.Error("msg", "Log rotation failed",
			"component", "file_sink",
			"file", active,
			"error", err)
	}

	if err := os.MkdirAll(fs.opts.Directory, 0755); err != nil {
		return rotation, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(active, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return rotation, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return rotation, fmt.Errorf("failed to append log line: %w", err)
	}

	fs.totalProcessed.Add(1)
	fs.lastProcessed.Store(time.Now())
	return rotation, nil
}

func (fs *FileSink) rotateIfNeeded(active string) (*Rotation, error) {
	info, err := os.Stat(active)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < fs.opts.MaxSize {
		return nil, nil
	}

	ts := fs.clock().Format(core.TimestampFormat)
	archive := fs.archivePath(ts)
	if err := os.Rename(active, archive); err != nil {
		return nil, fmt.Errorf("failed to rename log file: %w", err)
	}
	fs.totalRotations.Add(1)

	rotation := &Rotation{
		ActiveFile: active,
		Archive:    archive,
		Time:       ts,
	}

	if fs.opts.Compress {
		compressed, err := fs.compress(archive)
		if err != nil {
			fs.logger.Error("msg", "Failed to compress rotated log",
				"component", "file_sink",
				"archive", archive,
				"error", err)
		}
		// Archive stays uncompressed when no gzip file was produced
		if compressed != "" {
			rotation.Archive = compressed
			rotation.Compressed = true
		}
	}

	fs.logger.Info("msg", "Log file rotated",
		"component", "file_sink",
		"archive", rotation.Archive,
		"size", info.Size())

	return rotation, nil
}

// archivePath replaces the extension of the active file with _<timestamp>.txt
func (fs *FileSink) archivePath(ts string) string {
	stamp := strings.NewReplacer(":", "-", " ", "-").Replace(ts)
	base := strings.TrimSuffix(fs.opts.Name, filepath.Ext(fs.opts.Name))

	candidate := filepath.Join(fs.opts.Directory, fmt.Sprintf("%s_%s.txt", base, stamp))
	for i := 1; archiveExists(candidate); i++ {
		candidate = filepath.Join(fs.opts.Directory, fmt.Sprintf("%s_%s_%d.txt", base, stamp, i))
	}
	return candidate
}

func archiveExists(path string) bool {
	for _, p := range []string{path, path + ".gz"} {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// compressFile gzips path into path.gz and removes path only after the gzip
// stream has been closed successfully.
func compressFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dstPath := path + ".gz"
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", err
	}

	gz := gzip.NewWriter(dst)
	gz.Name = filepath.Base(path)

	_, copyErr := io.Copy(gz, src)
	closeErr := gz.Close()
	fileErr := dst.Close()

	if err := errors.Join(copyErr, closeErr, fileErr); err != nil {
		os.Remove(dstPath)
		return "", err
	}

	src.Close()
	if err := os.Remove(path); err != nil {
		return dstPath, fmt.Errorf("compressed but failed to remove archive: %w", err)
	}
	return dstPath, nil
}

func (fs *FileSink) GetStats() SinkStats {
	lastProc, _ := fs.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           "file",
		TotalProcessed: fs.totalProcessed.Load(),
		StartTime:      fs.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"active_file": fs.ActivePath(),
			"rotations":   fs.totalRotations.Load(),
		},
	}
}
