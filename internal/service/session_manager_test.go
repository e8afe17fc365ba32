package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

func newTestSessionManager(rec *persistRecorder, maxSessions int) *SessionManager {
	return NewSessionManager(rec.persist, SessionManagerConfig{
		DebounceWindow: time.Hour,
		PersistTimeout: time.Second,
		IdleTTL:        time.Hour,
		SweepInterval:  time.Hour,
		MaxSessions:    maxSessions,
	}, nil, nil)
}

func TestSessionManagerReusesCoordinatorPerKey(t *testing.T) {
	rec := &persistRecorder{}
	m := newTestSessionManager(rec, 8)

	first, err := m.Session("folder-1", "sess-a")
	require.NoError(t, err)
	again, err := m.Session("folder-1", "sess-a")
	require.NoError(t, err)
	require.Same(t, first, again)

	other, err := m.Session("folder-1", "sess-b")
	require.NoError(t, err)
	require.NotSame(t, first, other)
}

func TestSessionManagerEnforcesMaxSessions(t *testing.T) {
	rec := &persistRecorder{}
	m := newTestSessionManager(rec, 1)

	_, err := m.Session("folder-1", "sess-a")
	require.NoError(t, err)

	_, err = m.Session("folder-2", "sess-a")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))

	// An existing key is still served at capacity.
	_, err = m.Session("folder-1", "sess-a")
	require.NoError(t, err)
}

func TestSessionManagerCloseSessionFlushesBufferedContent(t *testing.T) {
	rec := &persistRecorder{}
	m := newTestSessionManager(rec, 8)

	c, err := m.Session("folder-1", "sess-a")
	require.NoError(t, err)
	require.NoError(t, c.Change("TITLE_PAGE", json.RawMessage(`{"v":1}`)))

	require.NoError(t, m.CloseSession(context.Background(), "folder-1", "sess-a"))
	require.Len(t, rec.snapshot(), 1)

	// Closing an unknown session is a no-op.
	require.NoError(t, m.CloseSession(context.Background(), "folder-1", "sess-a"))

	// A fresh coordinator replaces the closed one.
	replacement, err := m.Session("folder-1", "sess-a")
	require.NoError(t, err)
	require.NotSame(t, c, replacement)
	require.NoError(t, replacement.Change("TITLE_PAGE", json.RawMessage(`{"v":2}`)))
}

func TestSessionManagerStopFlushesEverything(t *testing.T) {
	rec := &persistRecorder{}
	m := newTestSessionManager(rec, 8)
	m.Start(context.Background())

	a, err := m.Session("folder-1", "sess-a")
	require.NoError(t, err)
	b, err := m.Session("folder-2", "sess-a")
	require.NoError(t, err)
	require.NoError(t, a.Change("TITLE_PAGE", json.RawMessage(`{"v":1}`)))
	require.NoError(t, b.Change("COURSE_LOG", json.RawMessage(`{"v":2}`)))

	m.Stop()
	require.Len(t, rec.snapshot(), 2)

	// Stop is idempotent.
	m.Stop()
}

func TestSessionManagerEvictsIdleSessions(t *testing.T) {
	rec := &persistRecorder{}
	m := NewSessionManager(rec.persist, SessionManagerConfig{
		DebounceWindow: time.Hour,
		PersistTimeout: time.Second,
		IdleTTL:        10 * time.Millisecond,
		SweepInterval:  time.Hour,
		MaxSessions:    8,
	}, nil, nil)

	c, err := m.Session("folder-1", "sess-a")
	require.NoError(t, err)
	require.NoError(t, c.Change("TITLE_PAGE", json.RawMessage(`{"v":1}`)))

	time.Sleep(30 * time.Millisecond)
	m.evictIdle()

	// Eviction flushed the buffer and dropped the entry.
	require.Len(t, rec.snapshot(), 1)
	replacement, err := m.Session("folder-1", "sess-a")
	require.NoError(t, err)
	require.NotSame(t, c, replacement)
}
