// FILE: logpulse/src/internal/query/files.go
package query

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidFileName = errors.New("invalid file name")
	ErrFileNotFound    = errors.New("file not found")
)

// FileInfo describes the active log file or an archive.
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

// ListFiles returns the active file and its archives, newest first.
func (e *Engine) ListFiles() ([]FileInfo, error) {
	dir := e.files.Directory()
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to list log directory: %w", err)
	}

	active := filepath.Base(e.files.ActivePath())
	files := make([]FileInfo, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !isLogFile(de.Name(), active) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:    de.Name(),
			Size:    info.Size(),
			Created: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Created.After(files[j].Created)
	})
	return files, nil
}

// OpenFile opens a listed file for download. Names that escape the log
// directory are rejected.
func (e *Engine) OpenFile(name string) (*os.File, FileInfo, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") ||
		strings.ContainsAny(name, `/\`) {
		return nil, FileInfo{}, ErrInvalidFileName
	}

	active := filepath.Base(e.files.ActivePath())
	if !isLogFile(name, active) {
		return nil, FileInfo{}, ErrFileNotFound
	}

	f, err := os.Open(filepath.Join(e.files.Directory(), name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, FileInfo{}, ErrFileNotFound
		}
		return nil, FileInfo{}, fmt.Errorf("failed to open %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, FileInfo{}, ErrFileNotFound
	}
	return f, FileInfo{Name: name, Size: info.Size(), Created: info.ModTime()}, nil
}

// isLogFile matches the active file and archives named <base>_<ts>.txt[.gz]
func isLogFile(name, active string) bool {
	if name == active {
		return true
	}
	base := strings.TrimSuffix(active, filepath.Ext(active))
	if !strings.HasPrefix(name, base+"_") {
		return false
	}
	return strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".txt.gz")
}
