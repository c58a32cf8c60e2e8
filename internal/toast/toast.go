// Package toast manages a bounded, ordered stack of transient notifications.
//
// Every mutating call (Notify, Dismiss, DismissAll, and the internal timer
// callbacks) funnels through one debounced reconciliation pass, so bursts of
// near-simultaneous notifications collapse into a single update. At most
// MaxVisible records are entering or shown at once; the rest wait in a FIFO
// queue. A record stops counting against capacity the moment its exit phase
// starts, so the next queued toast begins entering while the outgoing one is
// still leaving.
package toast

import (
	"sync"
	"time"
)

// Kind classifies a notification for styling.
type Kind string

const (
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// State is one phase of a record's lifecycle.
//
//	queued -> rendering -> active -> dismissing -> dismissed -> removed
//
// rendering covers the enter phase; dismissing covers the exit phase. A
// queued record that is dismissed before ever rendering goes straight to
// dismissed.
type State string

const (
	StateQueued     State = "queued"
	StateRendering  State = "rendering"
	StateActive     State = "active"
	StateDismissing State = "dismissing"
	StateDismissed  State = "dismissed"
)

// Record is one notification. The manager owns all records; callers only see
// value copies from Visible.
type Record struct {
	ID       int64
	Text     string
	Kind     Kind
	Duration time.Duration
	State    State

	enterTimer Timer
	closeTimer Timer
	exitTimer  Timer
}

// Config tunes a Manager. Zero values fall back to usable defaults.
type Config struct {
	// MaxVisible bounds how many records may be rendering or active at once.
	MaxVisible int
	// DefaultDuration is used when Notify is called with duration <= 0.
	DefaultDuration time.Duration
	// EnterDelay is how long a record stays in rendering before its
	// auto-dismiss countdown starts. Matches the enter animation, so a toast
	// cannot vanish before the user perceives it.
	EnterDelay time.Duration
	// ExitDelay is how long a dismissing record stays visible.
	ExitDelay time.Duration
	// ReconcileWindow batches mutations into one reconciliation pass.
	ReconcileWindow time.Duration

	Clock Clock

	// OnChange fires after a reconciliation pass that callers should
	// re-render for. It is called without internal locks held; it may call
	// back into the manager.
	OnChange func()
}

// Manager owns the toast stack. Safe for concurrent use; timer callbacks
// arrive on their own goroutines.
type Manager struct {
	cfg Config

	mu             sync.Mutex
	nextID         int64
	records        []*Record
	armed          Timer
	reconciling    bool
	rerun          bool
	showDismissAll bool
	closed         bool
}

// NewManager returns a Manager with cfg's gaps defaulted.
func NewManager(cfg Config) *Manager {
	if cfg.MaxVisible < 1 {
		cfg.MaxVisible = 3
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 4 * time.Second
	}
	if cfg.EnterDelay < 0 {
		cfg.EnterDelay = 0
	}
	if cfg.ExitDelay < 0 {
		cfg.ExitDelay = 0
	}
	if cfg.ReconcileWindow < 0 {
		cfg.ReconcileWindow = 0
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	return &Manager{cfg: cfg}
}

// Notify enqueues a notification and returns its id. duration <= 0 uses the
// default. Duplicate suppression is the caller's concern; every call becomes
// a distinct record.
func (m *Manager) Notify(text string, kind Kind, duration time.Duration) int64 {
	if duration <= 0 {
		duration = m.cfg.DefaultDuration
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0
	}
	m.nextID++
	id := m.nextID
	m.records = append(m.records, &Record{
		ID:       id,
		Text:     text,
		Kind:     kind,
		Duration: duration,
		State:    StateQueued,
	})
	m.scheduleLocked()
	m.mu.Unlock()
	return id
}

// Dismiss starts the exit phase for one record. Dismissing a queued record
// removes it without it ever rendering. Unknown or already-dismissing ids are
// no-ops.
func (m *Manager) Dismiss(id int64) {
	m.mu.Lock()
	if r := m.findLocked(id); r != nil {
		m.dismissLocked(r)
		m.scheduleLocked()
	}
	m.mu.Unlock()
}

// DismissAll starts the exit phase for every record, queued ones included.
func (m *Manager) DismissAll() {
	m.mu.Lock()
	for _, r := range m.records {
		m.dismissLocked(r)
	}
	m.scheduleLocked()
	m.mu.Unlock()
}

// Visible returns the records currently on screen (entering, shown, or
// leaving), in stack order. Queued records are not included.
func (m *Manager) Visible() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		switch r.State {
		case StateRendering, StateActive, StateDismissing:
			out = append(out, *r)
		}
	}
	return out
}

// QueuedCount returns how many records are waiting for a slot.
func (m *Manager) QueuedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.State == StateQueued {
			n++
		}
	}
	return n
}

// ShowDismissAll reports whether the dismiss-all affordance should be drawn.
// True only while at least two non-dismissing records are visible.
func (m *Manager) ShowDismissAll() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.showDismissAll
}

// Close stops every pending timer and drops all records. The manager accepts
// no further notifications.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	if m.armed != nil {
		m.armed.Stop()
		m.armed = nil
	}
	for _, r := range m.records {
		stopTimer(&r.enterTimer)
		stopTimer(&r.closeTimer)
		stopTimer(&r.exitTimer)
	}
	m.records = nil
	m.showDismissAll = false
	m.mu.Unlock()
}

// scheduleLocked arms the debounced reconciliation pass. An already-armed
// window is left alone so a sustained burst still reconciles once per window
// rather than starving.
func (m *Manager) scheduleLocked() {
	if m.closed || m.armed != nil {
		return
	}
	m.armed = m.cfg.Clock.AfterFunc(m.cfg.ReconcileWindow, func() {
		m.mu.Lock()
		m.armed = nil
		m.mu.Unlock()
		m.reconcile()
	})
}

// reconcile runs the single reconciliation pass. A call arriving while a pass
// is executing (a completion callback fired from OnChange, say) marks a rerun
// instead of recursing.
func (m *Manager) reconcile() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.reconciling {
		m.rerun = true
		m.mu.Unlock()
		return
	}
	m.reconciling = true
	for {
		m.reconcileLocked()
		onChange := m.cfg.OnChange
		m.mu.Unlock()

		if onChange != nil {
			onChange()
		}

		m.mu.Lock()
		if m.closed || !m.rerun {
			break
		}
		m.rerun = false
	}
	m.reconciling = false
	m.mu.Unlock()
}

// reconcileLocked is one pass, in fixed order: drop dismissed records,
// promote queued records into the freed capacity FIFO, then recompute the
// dismiss-all affordance.
func (m *Manager) reconcileLocked() {
	kept := m.records[:0]
	for _, r := range m.records {
		if r.State == StateDismissed {
			stopTimer(&r.enterTimer)
			stopTimer(&r.closeTimer)
			stopTimer(&r.exitTimer)
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(m.records); i++ {
		m.records[i] = nil
	}
	m.records = kept

	n := m.occupiedLocked()
	for _, r := range m.records {
		if n >= m.cfg.MaxVisible {
			break
		}
		if r.State != StateQueued {
			continue
		}
		r.State = StateRendering
		id := r.ID
		r.enterTimer = m.cfg.Clock.AfterFunc(m.cfg.EnterDelay, func() { m.enterDone(id) })
		n++
	}

	m.showDismissAll = m.occupiedLocked() >= 2
}

// occupiedLocked counts the records holding a capacity slot. Dismissing and
// dismissed records have already released theirs.
func (m *Manager) occupiedLocked() int {
	n := 0
	for _, r := range m.records {
		if r.State == StateRendering || r.State == StateActive {
			n++
		}
	}
	return n
}

// enterDone moves a record out of its enter phase and starts the auto-dismiss
// countdown.
func (m *Manager) enterDone(id int64) {
	m.mu.Lock()
	r := m.findLocked(id)
	if r == nil || r.State != StateRendering {
		m.mu.Unlock()
		return
	}
	r.State = StateActive
	r.enterTimer = nil
	r.closeTimer = m.cfg.Clock.AfterFunc(r.Duration, func() { m.autoDismiss(id) })
	m.scheduleLocked()
	m.mu.Unlock()
}

func (m *Manager) autoDismiss(id int64) {
	m.mu.Lock()
	r := m.findLocked(id)
	if r == nil || r.State != StateActive {
		m.mu.Unlock()
		return
	}
	r.closeTimer = nil
	m.startExitLocked(r)
	m.scheduleLocked()
	m.mu.Unlock()
}

func (m *Manager) exitDone(id int64) {
	m.mu.Lock()
	r := m.findLocked(id)
	if r == nil || r.State != StateDismissing {
		m.mu.Unlock()
		return
	}
	r.State = StateDismissed
	r.exitTimer = nil
	m.scheduleLocked()
	m.mu.Unlock()
}

func (m *Manager) dismissLocked(r *Record) {
	switch r.State {
	case StateQueued:
		// Never rendered; skip the exit phase entirely.
		r.State = StateDismissed
	case StateRendering, StateActive:
		m.startExitLocked(r)
	}
}

// startExitLocked moves a record into its exit phase. Pending enter and
// auto-dismiss timers are stopped first so a superseded timer can never fire
// on a record that already left.
func (m *Manager) startExitLocked(r *Record) {
	stopTimer(&r.enterTimer)
	stopTimer(&r.closeTimer)
	r.State = StateDismissing
	id := r.ID
	r.exitTimer = m.cfg.Clock.AfterFunc(m.cfg.ExitDelay, func() { m.exitDone(id) })
}

func (m *Manager) findLocked(id int64) *Record {
	for _, r := range m.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
