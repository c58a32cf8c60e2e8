package toast

import (
	"sync"
	"testing"
	"time"
)

// fakeClock drives AfterFunc callbacks deterministically. Advance fires due
// callbacks in deadline order, including ones scheduled by earlier callbacks
// within the same advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	deadline time.Duration
	f        func()
	fired    bool
	stopped  bool
}

func (t *fakeTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{deadline: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.deadline > target {
				continue
			}
			if next == nil || t.deadline < next.deadline {
				next = t
			}
		}
		if next == nil {
			break
		}
		c.now = next.deadline
		next.fired = true
		f := next.f
		c.mu.Unlock()
		f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

const (
	testEnter    = 500 * time.Millisecond
	testExit     = 500 * time.Millisecond
	testDuration = 4 * time.Second
	testWindow   = 50 * time.Millisecond
)

func newTestManager(clock *fakeClock, onChange func()) *Manager {
	return NewManager(Config{
		MaxVisible:      3,
		DefaultDuration: testDuration,
		EnterDelay:      testEnter,
		ExitDelay:       testExit,
		ReconcileWindow: testWindow,
		Clock:           clock,
		OnChange:        onChange,
	})
}

func occupied(m *Manager) int {
	n := 0
	for _, r := range m.Visible() {
		if r.State == StateRendering || r.State == StateActive {
			n++
		}
	}
	return n
}

func TestBurstRespectsCapacityAndFIFO(t *testing.T) {
	clock := &fakeClock{}
	m := newTestManager(clock, nil)

	for _, text := range []string{"one", "two", "three", "four", "five"} {
		m.Notify(text, KindSuccess, 0)
	}

	// Nothing renders until the batch window fires.
	if got := len(m.Visible()); got != 0 {
		t.Fatalf("visible before reconcile = %d, want 0", got)
	}

	clock.Advance(testWindow)
	vis := m.Visible()
	if len(vis) != 3 {
		t.Fatalf("visible after reconcile = %d, want 3", len(vis))
	}
	for i, want := range []string{"one", "two", "three"} {
		if vis[i].Text != want {
			t.Errorf("stack[%d] = %q, want %q", i, vis[i].Text, want)
		}
		if vis[i].State != StateRendering {
			t.Errorf("stack[%d] state = %s, want rendering", i, vis[i].State)
		}
	}
	if got := m.QueuedCount(); got != 2 {
		t.Fatalf("queued = %d, want 2", got)
	}

	// Enter completes; all three shown, countdowns running.
	clock.Advance(testEnter)
	for i, r := range m.Visible() {
		if r.State != StateActive {
			t.Errorf("stack[%d] state = %s, want active", i, r.State)
		}
	}
	if got := occupied(m); got != 3 {
		t.Fatalf("occupied = %d, want 3", got)
	}
	if got := m.QueuedCount(); got != 2 {
		t.Fatalf("queued after enter = %d, want 2", got)
	}
}

func TestSlotFreesWhenExitStartsNotWhenRemoved(t *testing.T) {
	clock := &fakeClock{}
	m := newTestManager(clock, nil)

	for _, text := range []string{"one", "two", "three", "four", "five"} {
		m.Notify(text, KindInfo, 0)
	}
	clock.Advance(testWindow + testEnter)

	// Auto-dismiss fires for the first three, then the batch window promotes
	// the queued pair while the old ones are still animating out.
	clock.Advance(testDuration + testWindow)

	vis := m.Visible()
	var exiting, entering []string
	for _, r := range vis {
		switch r.State {
		case StateDismissing:
			exiting = append(exiting, r.Text)
		case StateRendering:
			entering = append(entering, r.Text)
		default:
			t.Errorf("unexpected state %s for %q", r.State, r.Text)
		}
	}
	if len(exiting) != 3 {
		t.Errorf("dismissing = %v, want the first three", exiting)
	}
	if len(entering) != 2 || entering[0] != "four" || entering[1] != "five" {
		t.Errorf("promoted = %v, want [four five]", entering)
	}
	if got := occupied(m); got != 2 {
		t.Errorf("occupied = %d, want 2 (dismissing records hold no slot)", got)
	}
	if got := m.QueuedCount(); got != 0 {
		t.Errorf("queued = %d, want 0", got)
	}

	// Exit completes; the next pass removes the dismissed records.
	clock.Advance(testExit + testWindow)
	vis = m.Visible()
	if len(vis) != 2 {
		t.Fatalf("visible after sweep = %d, want 2", len(vis))
	}
}

func TestCapacityNeverExceeded(t *testing.T) {
	clock := &fakeClock{}
	m := newTestManager(clock, nil)

	check := func(at string) {
		t.Helper()
		if got := occupied(m); got > 3 {
			t.Fatalf("%s: occupied = %d, exceeds capacity 3", at, got)
		}
	}

	for i := 0; i < 8; i++ {
		m.Notify("n", KindInfo, 0)
		clock.Advance(10 * time.Millisecond)
		check("during burst")
	}
	for i := 0; i < 70; i++ {
		clock.Advance(250 * time.Millisecond)
		check("during drain")
	}
	if got := len(m.Visible()) + m.QueuedCount(); got != 0 {
		t.Fatalf("records left after drain: %d", got)
	}
}

func TestDebounceCollapsesBurst(t *testing.T) {
	clock := &fakeClock{}
	var passes int
	m := newTestManager(clock, func() { passes++ })

	for i := 0; i < 5; i++ {
		m.Notify("n", KindInfo, 0)
		clock.Advance(5 * time.Millisecond)
	}
	if passes != 0 {
		t.Fatalf("pass ran before window elapsed (%d)", passes)
	}
	clock.Advance(testWindow)
	if passes != 1 {
		t.Fatalf("passes = %d, want 1 for the whole burst", passes)
	}
}

func TestManualDismissStopsCountdown(t *testing.T) {
	clock := &fakeClock{}
	m := newTestManager(clock, nil)

	id := m.Notify("bye", KindSuccess, 0)
	clock.Advance(testWindow + testEnter)
	if vis := m.Visible(); len(vis) != 1 || vis[0].State != StateActive {
		t.Fatalf("setup: %+v", vis)
	}

	m.Dismiss(id)
	vis := m.Visible()
	if len(vis) != 1 || vis[0].State != StateDismissing {
		t.Fatalf("after dismiss: %+v", vis)
	}

	// The old countdown must not resurrect or double-dismiss the record.
	clock.Advance(testDuration)
	clock.Advance(testWindow)
	if vis := m.Visible(); len(vis) != 0 {
		t.Fatalf("record still visible after exit: %+v", vis)
	}
}

func TestDismissQueuedNeverRenders(t *testing.T) {
	clock := &fakeClock{}
	m := newTestManager(clock, nil)

	var ids []int64
	for _, text := range []string{"one", "two", "three", "four"} {
		ids = append(ids, m.Notify(text, KindInfo, 0))
	}
	clock.Advance(testWindow)
	if got := m.QueuedCount(); got != 1 {
		t.Fatalf("queued = %d, want 1", got)
	}

	m.Dismiss(ids[3])
	clock.Advance(testWindow)
	if got := m.QueuedCount(); got != 0 {
		t.Fatalf("queued after dismissing queued record = %d", got)
	}
	for _, r := range m.Visible() {
		if r.ID == ids[3] {
			t.Fatalf("dismissed queued record rendered anyway: %+v", r)
		}
	}
	if got := occupied(m); got != 3 {
		t.Fatalf("occupied = %d, want 3", got)
	}
}

func TestDismissAllAffordance(t *testing.T) {
	clock := &fakeClock{}
	m := newTestManager(clock, nil)

	m.Notify("one", KindInfo, 0)
	clock.Advance(testWindow)
	if m.ShowDismissAll() {
		t.Fatal("affordance shown with a single toast")
	}

	m.Notify("two", KindInfo, 0)
	clock.Advance(testWindow)
	if !m.ShowDismissAll() {
		t.Fatal("affordance hidden with two visible toasts")
	}

	m.DismissAll()
	clock.Advance(testWindow)
	if m.ShowDismissAll() {
		t.Fatal("affordance still shown while everything is dismissing")
	}
	for _, r := range m.Visible() {
		if r.State != StateDismissing {
			t.Errorf("record %q state = %s, want dismissing", r.Text, r.State)
		}
	}

	clock.Advance(testExit + testWindow)
	if got := len(m.Visible()); got != 0 {
		t.Fatalf("visible after sweep = %d", got)
	}
}

func TestCountdownWaitsForEnter(t *testing.T) {
	clock := &fakeClock{}
	m := newTestManager(clock, nil)

	m.Notify("short", KindInfo, 100*time.Millisecond)
	clock.Advance(testWindow)

	// Well past the notification's own duration, but the enter phase is
	// still running; the countdown must not have started.
	clock.Advance(300 * time.Millisecond)
	vis := m.Visible()
	if len(vis) != 1 || vis[0].State != StateRendering {
		t.Fatalf("toast left rendering early: %+v", vis)
	}

	// Land between enter completion and countdown expiry.
	clock.Advance(250 * time.Millisecond)
	vis = m.Visible()
	if len(vis) != 1 || vis[0].State != StateActive {
		t.Fatalf("toast not active after enter: %+v", vis)
	}

	clock.Advance(100*time.Millisecond + testWindow)
	vis = m.Visible()
	if len(vis) != 1 || vis[0].State != StateDismissing {
		t.Fatalf("countdown did not start after enter: %+v", vis)
	}
}

func TestOnChangeMayMutateManager(t *testing.T) {
	clock := &fakeClock{}
	var m *Manager
	dismissed := false
	m = NewManager(Config{
		MaxVisible:      3,
		DefaultDuration: testDuration,
		EnterDelay:      testEnter,
		ExitDelay:       testExit,
		ReconcileWindow: testWindow,
		Clock:           clock,
		OnChange: func() {
			if dismissed {
				return
			}
			for _, r := range m.Visible() {
				dismissed = true
				m.Dismiss(r.ID)
				return
			}
		},
	})

	m.Notify("one", KindInfo, 0)
	m.Notify("two", KindInfo, 0)
	clock.Advance(testWindow) // pass promotes, OnChange dismisses "one"
	clock.Advance(testWindow)

	states := map[string]State{}
	for _, r := range m.Visible() {
		states[r.Text] = r.State
	}
	if states["one"] != StateDismissing {
		t.Errorf("one = %s, want dismissing", states["one"])
	}
	if states["two"] != StateRendering {
		t.Errorf("two = %s, want rendering", states["two"])
	}

	clock.Advance(testDuration + testExit + testWindow)
	clock.Advance(testExit + testWindow)
	if got := len(m.Visible()); got != 0 {
		t.Fatalf("visible after drain = %d", got)
	}
}

func TestCloseStopsEverything(t *testing.T) {
	clock := &fakeClock{}
	var passes int
	m := newTestManager(clock, func() { passes++ })

	m.Notify("one", KindInfo, 0)
	m.Notify("two", KindInfo, 0)
	clock.Advance(testWindow + testEnter)
	passes = 0

	m.Close()
	clock.Advance(testDuration + testExit + testWindow)
	if passes != 0 {
		t.Fatalf("passes after close = %d", passes)
	}
	if got := len(m.Visible()); got != 0 {
		t.Fatalf("visible after close = %d", got)
	}
	if id := m.Notify("late", KindInfo, 0); id != 0 {
		t.Fatalf("notify after close returned id %d", id)
	}
}
