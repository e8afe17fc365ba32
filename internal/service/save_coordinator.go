package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

// SaveState is the coordinator's position in its state machine.
type SaveState string

const (
	SaveStateIdle      SaveState = "IDLE"
	SaveStateScheduled SaveState = "SCHEDULED"
	SaveStateSaving    SaveState = "SAVING"
)

// SaveTrigger labels why a persist ran, for logging and metrics.
type SaveTrigger string

const (
	TriggerDebounce SaveTrigger = "debounce"
	TriggerExplicit SaveTrigger = "explicit"
	TriggerClose    SaveTrigger = "close"
	TriggerHide     SaveTrigger = "hide"
)

// PersistFunc is the write path the coordinator calls for each dirty
// section. Implemented by FolderRepository in production.
type PersistFunc func(ctx context.Context, folderID, section string, content json.RawMessage) error

// AutosaveObserver receives save outcomes for instrumentation.
type AutosaveObserver interface {
	ObserveAutosave(trigger string, err error)
}

// SaveCoordinator reconciles the competing save triggers of one
// folder-editing session into a serialized, at-most-one-in-flight save.
// Content mutations are buffered per section; a save always captures
// the most recently buffered state, never a stale snapshot.
type SaveCoordinator struct {
	folderID string
	persist  PersistFunc
	window   time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	observer AutosaveObserver

	mu       sync.Mutex
	state    SaveState
	dirty    map[string]json.RawMessage
	timer    *time.Timer
	timerGen uint64
	// saveDone is non-nil exactly while a persist is in flight; it is
	// closed on completion so waiters can serialize behind it.
	saveDone  chan struct{}
	lastSaved time.Time
	closed    bool
}

// SaveCoordinatorConfig tunes one coordinator instance.
type SaveCoordinatorConfig struct {
	DebounceWindow time.Duration
	PersistTimeout time.Duration
	Logger         *zap.Logger
	Observer       AutosaveObserver
}

// NewSaveCoordinator builds a coordinator for one editing session.
func NewSaveCoordinator(folderID string, persist PersistFunc, cfg SaveCoordinatorConfig) *SaveCoordinator {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 2 * time.Second
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &SaveCoordinator{
		folderID: folderID,
		persist:  persist,
		window:   cfg.DebounceWindow,
		timeout:  cfg.PersistTimeout,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		state:    SaveStateIdle,
		dirty:    make(map[string]json.RawMessage),
	}
}

// Change buffers a content mutation and (re)arms the debounce timer.
// A mutation arriving before the window expires reschedules the timer;
// a mutation arriving while a save is in flight is coalesced into the
// follow-up save rather than starting a parallel one.
func (c *SaveCoordinator) Change(section string, content json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return appErrors.Clone(appErrors.ErrConflict, "editing session is closed")
	}
	c.dirty[section] = append(json.RawMessage(nil), content...)
	if c.state != SaveStateSaving {
		c.armTimerLocked()
	}
	return nil
}

// Flush cancels any pending debounce timer and saves the buffered
// content immediately, waiting for completion. Errors are surfaced so
// the explicit action (e.g. navigation) can decide whether to proceed.
func (c *SaveCoordinator) Flush(ctx context.Context) error {
	return c.forcedSave(ctx, TriggerExplicit)
}

// Close tears the session down: it cancels the timer, performs one
// final save attempt if needed, and rejects further mutations.
func (c *SaveCoordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.forcedSave(ctx, TriggerClose)
}

// Hide re-arms the normal debounce path when the tab is hidden. A true
// synchronous flush is not reliably available at this point in the
// client lifecycle, so this stays best-effort rather than forced.
func (c *SaveCoordinator) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.dirty) == 0 || c.state == SaveStateSaving {
		return
	}
	c.armTimerLocked()
}

// BeforeUnload is a notification-only hook: it never blocks unload and
// never guarantees persistence.
func (c *SaveCoordinator) BeforeUnload() {
	c.mu.Lock()
	pending := len(c.dirty)
	c.mu.Unlock()
	if pending > 0 {
		c.logger.Debug("unload with unsaved sections",
			zap.String("folder_id", c.folderID),
			zap.Int("dirty_sections", pending))
	}
}

// State reports the current coordinator state.
func (c *SaveCoordinator) State() SaveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastSavedAt reports when the last persist completed successfully.
func (c *SaveCoordinator) LastSavedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSaved
}

// armTimerLocked resets the debounce timer. Caller holds mu.
func (c *SaveCoordinator) armTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(c.window, func() { c.onTimer(gen) })
	c.state = SaveStateScheduled
}

// cancelTimerLocked invalidates any scheduled fire. Caller holds mu.
func (c *SaveCoordinator) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *SaveCoordinator) onTimer(gen uint64) {
	c.mu.Lock()
	if gen != c.timerGen || c.state != SaveStateScheduled || len(c.dirty) == 0 {
		if c.state == SaveStateScheduled && len(c.dirty) == 0 {
			c.state = SaveStateIdle
		}
		c.mu.Unlock()
		return
	}
	snapshot := c.beginSaveLocked()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	err := c.runPersist(ctx, snapshot)
	cancel()
	c.finishSave(snapshot, err)
	c.observe(TriggerDebounce, err)

	if err != nil {
		// Background saves must not interrupt typing: log and swallow.
		c.logger.Warn("debounced autosave failed",
			zap.String("folder_id", c.folderID),
			zap.Error(err))
	}
}

// forcedSave serializes behind any in-flight persist, then writes the
// remaining buffered content and returns the outcome.
func (c *SaveCoordinator) forcedSave(ctx context.Context, trigger SaveTrigger) error {
	c.mu.Lock()
	c.cancelTimerLocked()
	for c.saveDone != nil {
		done := c.saveDone
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return appErrors.Wrap(ctx.Err(), appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "canceled while waiting for in-flight save")
		case <-done:
		}
		c.mu.Lock()
	}
	if len(c.dirty) == 0 {
		if c.state == SaveStateScheduled {
			c.state = SaveStateIdle
		}
		c.mu.Unlock()
		return nil
	}
	snapshot := c.beginSaveLocked()
	c.mu.Unlock()

	err := c.runPersist(ctx, snapshot)
	c.finishSave(snapshot, err)
	c.observe(trigger, err)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to save folder content")
	}
	return nil
}

// beginSaveLocked drains the dirty buffer and enters Saving. Caller
// holds mu and has verified the buffer is non-empty.
func (c *SaveCoordinator) beginSaveLocked() map[string]json.RawMessage {
	snapshot := c.dirty
	c.dirty = make(map[string]json.RawMessage)
	c.state = SaveStateSaving
	c.saveDone = make(chan struct{})
	return snapshot
}

func (c *SaveCoordinator) runPersist(ctx context.Context, snapshot map[string]json.RawMessage) error {
	sections := make([]string, 0, len(snapshot))
	for section := range snapshot {
		sections = append(sections, section)
	}
	sort.Strings(sections)
	for _, section := range sections {
		if err := c.persist(ctx, c.folderID, section, snapshot[section]); err != nil {
			return err
		}
	}
	return nil
}

// finishSave leaves Saving, restoring failed sections into the buffer
// (without clobbering newer edits) so a later trigger retries them.
func (c *SaveCoordinator) finishSave(snapshot map[string]json.RawMessage, err error) {
	c.mu.Lock()
	if err == nil {
		c.lastSaved = time.Now().UTC()
	} else {
		for section, content := range snapshot {
			if _, redirtied := c.dirty[section]; !redirtied {
				c.dirty[section] = content
			}
		}
	}
	close(c.saveDone)
	c.saveDone = nil
	if err == nil && len(c.dirty) > 0 && !c.closed {
		// Mutations arrived while saving: coalesce into one follow-up.
		c.armTimerLocked()
	} else {
		c.state = SaveStateIdle
	}
	c.mu.Unlock()
}

func (c *SaveCoordinator) observe(trigger SaveTrigger, err error) {
	if c.observer != nil {
		c.observer.ObserveAutosave(string(trigger), err)
	}
}
