// FILE: logpulse/src/internal/store/store_test.go
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"logpulse/src/internal/config"
	"logpulse/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled", func(t *testing.T) {
		s, err := New(ctx, config.DBConfig{})
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := New(ctx, config.DBConfig{Type: "redis"})
		assert.ErrorContains(t, err, "unknown store type")
	})

	t.Run("Bolt", func(t *testing.T) {
		s, err := New(ctx, config.DBConfig{Type: "bolt", Path: filepath.Join(t.TempDir(), "db", "logs.db")})
		require.NoError(t, err)
		defer s.Close()
		assert.Equal(t, "bolt", s.Name())
	})

	t.Run("MongoInvalidURI", func(t *testing.T) {
		_, err := New(ctx, config.DBConfig{Type: "mongodb", URI: "http://localhost", Database: "d", Collection: "c"})
		assert.Error(t, err)
	})
}

func TestBoltStore_SaveAndRecent(t *testing.T) {
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	defer s.Close()

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	for i := 0; i < 5; i++ {
		e := core.NewEntry("info", ts, fmt.Sprintf("msg-%d", i)).WithFormatted(fmt.Sprintf("[f] msg-%d", i))
		require.NoError(t, s.Save(context.Background(), e))
	}

	records, err := s.Recent(3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "msg-4", records[0].Message)
	assert.Equal(t, "msg-2", records[2].Message)
	assert.Equal(t, "[f] msg-4", records[0].FormattedMessage)
	assert.Equal(t, "2024-01-01 00:00:00", records[0].Timestamp)
	assert.NotEmpty(t, records[0].ID)
}
