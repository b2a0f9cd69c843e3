// FILE: logpulse/src/internal/sink/sink_test.go
package sink

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"logpulse/src/internal/core"

	"github.com/klauspost/compress/gzip"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func newTestFileSink(t *testing.T, maxSize int64, compress bool) (*FileSink, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	fs := NewFileSink(FileOptions{
		Directory: dir,
		Name:      "app.log",
		MaxSize:   maxSize,
		Compress:  compress,
	}, newTestLogger())
	fs.clock = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local) }
	return fs, dir
}

func archives(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.Name() != "app.log" {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestFileSink_CreatesDirectoriesAndAppends(t *testing.T) {
	fs, dir := newTestFileSink(t, 1024, false)

	for _, line := range []string{"first", "second"} {
		rot, err := fs.Write(line)
		require.NoError(t, err)
		assert.Nil(t, rot)
	}

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
	assert.Equal(t, uint64(2), fs.GetStats().TotalProcessed)
}

func TestFileSink_RotationThreshold(t *testing.T) {
	testCases := []struct {
		name         string
		existingSize int
		threshold    int64
		expectRotate bool
	}{
		{"BelowThreshold", 99, 100, false},
		{"AtThreshold", 100, 100, true},
		{"AboveThreshold", 150, 100, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs, dir := newTestFileSink(t, tc.threshold, false)
			require.NoError(t, os.MkdirAll(dir, 0755))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "app.log"), bytes.Repeat([]byte("x"), tc.existingSize), 0644))

			rot, err := fs.Write("next")
			require.NoError(t, err)

			if !tc.expectRotate {
				assert.Nil(t, rot)
				assert.Empty(t, archives(t, dir))
				return
			}

			require.NotNil(t, rot)
			assert.Equal(t, filepath.Join(dir, "app_2024-05-06-07-08-09.txt"), rot.Archive)
			assert.False(t, rot.Compressed)

			data, err := os.ReadFile(filepath.Join(dir, "app.log"))
			require.NoError(t, err)
			assert.Equal(t, "next\n", string(data))

			archived, err := os.ReadFile(rot.Archive)
			require.NoError(t, err)
			assert.Len(t, archived, tc.existingSize)
		})
	}
}

func TestFileSink_Compression(t *testing.T) {
	fs, dir := newTestFileSink(t, 10, true)

	_, err := fs.Write("0123456789")
	require.NoError(t, err)

	rot, err := fs.Write("after")
	require.NoError(t, err)
	require.NotNil(t, rot)
	assert.True(t, rot.Compressed)
	assert.True(t, strings.HasSuffix(rot.Archive, ".txt.gz"))
	assert.Equal(t, []string{"app_2024-05-06-07-08-09.txt.gz"}, archives(t, dir))

	f, err := os.Open(rot.Archive)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	content, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, "0123456789\n", string(content))
}

func TestFileSink_CompressionFailureKeepsArchive(t *testing.T) {
	fs, dir := newTestFileSink(t, 1, true)
	fs.compress = func(string) (string, error) { return "", errors.New("disk full") }

	_, err := fs.Write("a")
	require.NoError(t, err)
	rot, err := fs.Write("b")
	require.NoError(t, err)

	require.NotNil(t, rot)
	assert.False(t, rot.Compressed)
	assert.Equal(t, []string{"app_2024-05-06-07-08-09.txt"}, archives(t, dir))
}

func TestFileSink_ArchiveNameCollision(t *testing.T) {
	fs, dir := newTestFileSink(t, 1, false)

	for _, line := range []string{"a", "b", "c"} {
		_, err := fs.Write(line)
		require.NoError(t, err)
	}

	assert.ElementsMatch(t, []string{
		"app_2024-05-06-07-08-09.txt",
		"app_2024-05-06-07-08-09_1.txt",
	}, archives(t, dir))
}

func TestFileSink_ConcurrentRotation(t *testing.T) {
	fs, dir := newTestFileSink(t, 50, false)
	fs.clock = time.Now

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := fs.Write("0123456789")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	var total int
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		assert.LessOrEqual(t, len(data), 50+11, "no file may grow past one line beyond the threshold")
		total += strings.Count(string(data), "\n")
	}
	assert.Equal(t, 200, total)
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer

	t.Run("Plain", func(t *testing.T) {
		buf.Reset()
		s := NewConsoleSink(&buf, false)
		entry := core.LogEntry{Level: "error", FormattedMessage: "[ts] [ERROR]: boom"}
		require.NoError(t, s.Write(entry))
		assert.Equal(t, "[ts] [ERROR]: boom\n", buf.String())
	})

	t.Run("Colored", func(t *testing.T) {
		buf.Reset()
		s := NewConsoleSink(&buf, true)
		require.NoError(t, s.Write(core.LogEntry{Level: "error", FormattedMessage: "boom"}))
		assert.Contains(t, buf.String(), "\x1b[")
		assert.Contains(t, buf.String(), "boom")
	})

	t.Run("UnknownLevelUncolored", func(t *testing.T) {
		buf.Reset()
		s := NewConsoleSink(&buf, true)
		require.NoError(t, s.Write(core.LogEntry{Level: "audit", FormattedMessage: "x"}))
		assert.Equal(t, "x\n", buf.String())
	})
}
