// FILE: logpulse/src/internal/session/session_test.go
package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Stop()

	s := m.Create(KindRealtime, "127.0.0.1:5000", "admin")
	assert.NotEmpty(t, s.ID)
	assert.True(t, m.IsActive(s.ID))
	assert.Equal(t, 1, m.Count(KindRealtime))
	assert.Equal(t, 0, m.Count(KindTail))

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, "admin", got.Username)

	m.Remove(s.ID)
	assert.False(t, m.IsActive(s.ID))
	assert.Equal(t, 0, m.Count(""))
}

func TestManager_ExpireIdle(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Stop()

	expiredCh := make(chan string, 1)
	m.OnExpire(KindTail, func(id, _ string) { expiredCh <- id })

	idle := m.Create(KindTail, "10.0.0.1:1", "")
	fresh := m.Create(KindTail, "10.0.0.2:1", "")

	ids := m.expireIdle(time.Now().Add(2 * time.Minute))
	assert.ElementsMatch(t, []string{idle.ID, fresh.ID}, ids)

	select {
	case id := <-expiredCh:
		assert.Contains(t, []string{idle.ID, fresh.ID}, id)
	case <-time.After(time.Second):
		t.Fatal("expiry callback not invoked")
	}
}

func TestManager_TouchKeepsAlive(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Stop()

	s := m.Create(KindRealtime, "a", "")
	m.Touch(s.ID)

	assert.Empty(t, m.expireIdle(time.Now()))
	assert.Equal(t, 1, m.GetStats()["total_sessions"])
}

func TestManager_StopIdempotent(t *testing.T) {
	m := NewManager(0)
	m.Stop()
	assert.NotPanics(t, m.Stop)
}
