package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

// SessionManager owns one SaveCoordinator per open editing context,
// keyed by folder and client session. Abandoned sessions are flushed
// and evicted by a background sweeper.
type SessionManager struct {
	persist  PersistFunc
	cfg      SessionManagerConfig
	logger   *zap.Logger
	observer AutosaveObserver

	mu       sync.Mutex
	sessions map[string]*sessionEntry

	sweepCtx    context.Context
	sweepCancel context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

type sessionEntry struct {
	coordinator *SaveCoordinator
	lastUsed    time.Time
}

// SessionManagerConfig tunes session bookkeeping.
type SessionManagerConfig struct {
	DebounceWindow time.Duration
	PersistTimeout time.Duration
	IdleTTL        time.Duration
	SweepInterval  time.Duration
	MaxSessions    int
}

// NewSessionManager constructs the manager.
func NewSessionManager(persist PersistFunc, cfg SessionManagerConfig, logger *zap.Logger, observer AutosaveObserver) *SessionManager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		persist:  persist,
		cfg:      cfg,
		logger:   logger,
		observer: observer,
		sessions: make(map[string]*sessionEntry),
	}
}

// Start launches the idle-session sweeper.
func (m *SessionManager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.sweepCtx, m.sweepCancel = context.WithCancel(ctx)
	m.started = true
	m.wg.Add(1)
	go m.sweeper()
}

// Stop halts the sweeper and closes every live session, flushing
// buffered content on the way out.
func (m *SessionManager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.sweepCancel()
	m.started = false
	entries := make([]*sessionEntry, 0, len(m.sessions))
	for _, entry := range m.sessions {
		entries = append(entries, entry)
	}
	m.sessions = make(map[string]*sessionEntry)
	m.mu.Unlock()

	m.wg.Wait()
	for _, entry := range entries {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PersistTimeout)
		if err := entry.coordinator.Close(ctx); err != nil {
			m.logger.Warn("failed to flush session on shutdown", zap.Error(err))
		}
		cancel()
	}
}

// Session returns the coordinator for the given key, creating it on
// first use.
func (m *SessionManager) Session(folderID, sessionKey string) (*SaveCoordinator, error) {
	key := folderID + "|" + sessionKey
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.sessions[key]; ok {
		entry.lastUsed = time.Now()
		return entry.coordinator, nil
	}
	if len(m.sessions) >= m.cfg.MaxSessions {
		return nil, appErrors.Clone(appErrors.ErrConflict, "too many concurrent editing sessions")
	}
	coordinator := NewSaveCoordinator(folderID, m.persist, SaveCoordinatorConfig{
		DebounceWindow: m.cfg.DebounceWindow,
		PersistTimeout: m.cfg.PersistTimeout,
		Logger:         m.logger,
		Observer:       m.observer,
	})
	m.sessions[key] = &sessionEntry{coordinator: coordinator, lastUsed: time.Now()}
	return coordinator, nil
}

// FlushFolder forces a save on every live session of one folder. Used
// before submission so the reviewed snapshot includes all buffered
// edits. The first failure aborts and is surfaced.
func (m *SessionManager) FlushFolder(ctx context.Context, folderID string) error {
	prefix := folderID + "|"
	m.mu.Lock()
	coordinators := make([]*SaveCoordinator, 0)
	for key, entry := range m.sessions {
		if strings.HasPrefix(key, prefix) {
			coordinators = append(coordinators, entry.coordinator)
		}
	}
	m.mu.Unlock()

	for _, coordinator := range coordinators {
		if err := coordinator.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CloseSession tears one session down, surfacing the final-save error.
func (m *SessionManager) CloseSession(ctx context.Context, folderID, sessionKey string) error {
	key := folderID + "|" + sessionKey
	m.mu.Lock()
	entry, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return entry.coordinator.Close(ctx)
}

func (m *SessionManager) sweeper() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.sweepCtx.Done():
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *SessionManager) evictIdle() {
	cutoff := time.Now().Add(-m.cfg.IdleTTL)
	m.mu.Lock()
	expired := make([]*sessionEntry, 0)
	for key, entry := range m.sessions {
		if entry.lastUsed.Before(cutoff) {
			expired = append(expired, entry)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	for _, entry := range expired {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PersistTimeout)
		if err := entry.coordinator.Close(ctx); err != nil {
			m.logger.Warn("failed to flush idle session", zap.Error(err))
		}
		cancel()
	}
}
