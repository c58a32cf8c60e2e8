// Package app holds the editing core for one app: live item state, the dirty
// tracker, the checkpoint-protected loader, the save/revert/discard
// orchestrator, and the debounced snapshot persister.
//
// A Session is the single source of truth for content. Editor surfaces push
// every change in through SetContent and read back out through Item; the
// local snapshot is written behind a debounce and is never consulted for
// dirty decisions while the session is live.
package app

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/expert"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/formatter"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/history"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/store"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/toast"
)

// NotifyFunc receives user-facing notifications (success, info, warning).
// Hard failures are returned as errors instead so the caller decides how to
// surface them.
type NotifyFunc func(kind toast.Kind, text string)

// Item is one editable unit's live state. Dirty is derived (Content !=
// Original) and recomputed synchronously on every mutation; Saving marks an
// in-flight save of this item.
type Item struct {
	Spec     model.ItemSpec
	Content  string
	Original string
	Dirty    bool
	Saving   bool
}

// Config assembles a Session. Store, Formatter, Journal, and Notify are all
// optional; a nil Store disables snapshot persistence entirely (one-shot
// commands use this so scripting never disturbs interactive snapshots).
type Config struct {
	Spec      model.AppSpec
	Store     *store.Store
	Client    *expert.Client
	Formatter *formatter.Formatter
	Journal   *history.Journal
	Notify    NotifyFunc

	// PersistDelay is the snapshot debounce window; <= 0 uses 500ms.
	PersistDelay time.Duration

	Log *slog.Logger
}

// Session is the editing core for one app. Safe for concurrent use: the TUI
// loop, save goroutines, and the persist timer all funnel through one mutex.
type Session struct {
	spec    model.AppSpec
	store   *store.Store
	client  *expert.Client
	fmtr    *formatter.Formatter
	journal *history.Journal
	notify  NotifyFunc
	log     *slog.Logger

	mu        sync.Mutex
	items     map[string]*Item
	order     []string
	activeIDs []string
	token     string
	loaded    bool

	persist *persister
}

// NewSession creates a Session with one empty item per spec entry. Nothing is
// fetched until Load.
func NewSession(cfg Config) *Session {
	log := cfg.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		spec:    cfg.Spec,
		store:   cfg.Store,
		client:  cfg.Client,
		fmtr:    cfg.Formatter,
		journal: cfg.Journal,
		notify:  cfg.Notify,
		log:     log,
		items:   make(map[string]*Item, len(cfg.Spec.Items)),
		order:   make([]string, 0, len(cfg.Spec.Items)),
	}
	for _, it := range cfg.Spec.Items {
		s.items[it.ID] = &Item{Spec: it}
		s.order = append(s.order, it.ID)
	}
	s.persist = newPersister(cfg.PersistDelay, s.persistNow)
	return s
}

// Spec returns the app descriptor the session was built from.
func (s *Session) Spec() model.AppSpec { return s.spec }

// Loaded reports whether a Load has succeeded.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Item returns a copy of one item's live state.
func (s *Session) Item(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Items returns copies of every item, in declaration order.
func (s *Session) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// AnyDirty reports whether any item holds an unsaved edit.
func (s *Session) AnyDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anyDirtyLocked()
}

// DirtyCount returns how many items hold unsaved edits.
func (s *Session) DirtyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		if it.Dirty {
			n++
		}
	}
	return n
}

// SetContent replaces one item's live content and synchronously recomputes
// its dirty flag, so status chrome reading Item immediately after sees the
// new truth. Unknown ids and no-op writes are ignored.
func (s *Session) SetContent(id, content string) {
	s.mu.Lock()
	it, ok := s.items[id]
	if !ok || it.Content == content {
		s.mu.Unlock()
		return
	}
	it.Content = content
	was := it.Dirty
	it.Dirty = it.Content != it.Original
	if was && !it.Dirty {
		s.maybeClearSnapshotLocked()
	}
	s.mu.Unlock()
	s.persist.Notify()
}

// SetActiveItemIDs records which items have an editor surface open. The set
// rides the persisted snapshot so a restore can reopen the same editors.
func (s *Session) SetActiveItemIDs(ids []string) {
	s.mu.Lock()
	same := len(ids) == len(s.activeIDs)
	if same {
		for i := range ids {
			if ids[i] != s.activeIDs[i] {
				same = false
				break
			}
		}
	}
	if !same {
		s.activeIDs = append([]string(nil), ids...)
	}
	s.mu.Unlock()
	if !same {
		s.persist.Notify()
	}
}

// Revert restores one item's baseline into its live content. Returns false
// when the item was already clean; that case is announced as an info
// notification, distinct from success and error.
func (s *Session) Revert(id string) (bool, error) {
	s.mu.Lock()
	it, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	label := it.Spec.Label
	if !it.Dirty {
		s.mu.Unlock()
		s.notifyf(toast.KindInfo, "No changes to revert in %s", label)
		return false, nil
	}
	it.Content = it.Original
	it.Dirty = false
	s.maybeClearSnapshotLocked()
	s.mu.Unlock()
	s.persist.Notify()
	s.notifyf(toast.KindSuccess, "Reverted %s", label)
	return true, nil
}

// DiscardAll reverts every dirty item and returns how many were restored.
func (s *Session) DiscardAll() int {
	s.mu.Lock()
	n := 0
	for _, id := range s.order {
		it := s.items[id]
		if !it.Dirty {
			continue
		}
		it.Content = it.Original
		it.Dirty = false
		n++
	}
	if n > 0 {
		s.maybeClearSnapshotLocked()
	}
	s.mu.Unlock()
	if n == 0 {
		s.notifyf(toast.KindInfo, "No unsaved changes to discard")
		return 0
	}
	s.persist.Notify()
	if n == 1 {
		s.notifyf(toast.KindSuccess, "Discarded changes in 1 item")
	} else {
		s.notifyf(toast.KindSuccess, "Discarded changes in %d items", n)
	}
	return n
}

// Close stops the persist debounce and writes (or clears) the snapshot one
// last time, so edits made inside the debounce window survive an unmount.
func (s *Session) Close() {
	s.persist.Stop()
	s.persistNow()
}

func (s *Session) anyDirtyLocked() bool {
	for _, it := range s.items {
		if it.Dirty {
			return true
		}
	}
	return false
}

// recomputeDirtyLocked re-derives every dirty flag and applies the all-clean
// clearing rule when any item transitioned dirty to clean.
func (s *Session) recomputeDirtyLocked() {
	wentClean := false
	for _, it := range s.items {
		was := it.Dirty
		it.Dirty = it.Content != it.Original
		if was && !it.Dirty {
			wentClean = true
		}
	}
	if wentClean {
		s.maybeClearSnapshotLocked()
	}
}

// maybeClearSnapshotLocked removes the app's snapshot scope when no item is
// dirty. This is the only code path that clears the scope.
func (s *Session) maybeClearSnapshotLocked() {
	if s.store == nil || s.anyDirtyLocked() {
		return
	}
	if err := s.store.ClearAppState(s.spec.ID); err != nil {
		s.log.Warn("clearing state snapshot failed", "app", s.spec.ID, "err", err)
	}
}

func (s *Session) notifyf(kind toast.Kind, format string, args ...any) {
	if s.notify == nil {
		return
	}
	s.notify(kind, fmt.Sprintf(format, args...))
}
