package app

import (
	"sync"
	"time"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
)

// persister debounces snapshot writes behind a sliding window: every Notify
// pushes the write out again, so the snapshot settles shortly after the user
// stops typing instead of once per keystroke.
type persister struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	running bool
	stopped bool
}

func newPersister(delay time.Duration, fn func()) *persister {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &persister{delay: delay, fn: fn}
}

// Notify marks state changed and (re)arms the window.
func (p *persister) Notify() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.pending = true
	if p.timer == nil {
		p.timer = time.AfterFunc(p.delay, p.onTimer)
		p.mu.Unlock()
		return
	}
	p.timer.Reset(p.delay)
	p.mu.Unlock()
}

func (p *persister) onTimer() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	if p.running {
		// A write is in flight; come back for the pending changes.
		if p.timer != nil {
			p.timer.Reset(p.delay)
		}
		p.mu.Unlock()
		return
	}
	if !p.pending {
		p.mu.Unlock()
		return
	}
	p.pending = false
	p.running = true
	p.mu.Unlock()

	p.fn()

	p.mu.Lock()
	p.running = false
	if p.pending && !p.stopped && p.timer != nil {
		p.timer.Reset(p.delay)
	}
	p.mu.Unlock()
}

// Stop cancels the armed timer and refuses further notifications. A write
// already running finishes on its own.
func (p *persister) Stop() {
	p.mu.Lock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
}

// persistNow converges the store to the live state: anything dirty writes one
// full snapshot, all-clean clears the scope. It holds the session lock across
// the write so a concurrent revert cannot slip between decision and write and
// leave a stale dirty snapshot behind.
func (s *Session) persistNow() {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.anyDirtyLocked() {
		s.maybeClearSnapshotLocked()
		return
	}
	st := &model.AppState{
		ActiveItemIDs:   append([]string(nil), s.activeIDs...),
		Content:         make(map[string]string, len(s.items)),
		IsDirty:         make(map[string]bool, len(s.items)),
		OriginalContent: make(map[string]string, len(s.items)),
	}
	for id, it := range s.items {
		st.Content[id] = it.Content
		st.IsDirty[id] = it.Dirty
		st.OriginalContent[id] = it.Original
	}
	if err := s.store.SaveAppState(s.spec.ID, st); err != nil {
		s.log.Warn("state snapshot write failed", "app", s.spec.ID, "err", err)
	}
}
