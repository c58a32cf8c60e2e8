package tui

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/app"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/config"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/expert"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/formatter"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/store"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/toast"
)

// fakeClock drives the toast manager's AfterFunc callbacks deterministically.
// Advance fires due callbacks in deadline order, including ones scheduled by
// earlier callbacks within the same advance.
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

func (c *fakeClock) AfterFunc(d time.Duration, f func()) toast.Timer {
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

// fakeSite is a control panel double serving the edit forms of both apps and
// recording every save POST.
type fakeSite struct {
	srv *httptest.Server

	mu           sync.Mutex
	token        string
	pageStatus   int // 0 means 200
	submitStatus int // 0 means 302
	fields       map[string]map[string]string
	posts        []url.Values
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	f := &fakeSite{
		token: "tok-1",
		fields: map[string]map[string]string{
			"/Special:CustomCSS": {
				"css_all":       "body { margin: 0 }",
				"css_anonymous": "",
				"css_community": "",
				"css_pro":       ".pro {}",
			},
			"/Special:CustomHTML": {
				"html_head": "<meta charset=\"utf-8\">",
				"html_tail": "",
			},
		},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSite) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		if f.pageStatus != 0 {
			w.WriteHeader(f.pageStatus)
			return
		}
		var b strings.Builder
		b.WriteString("<html><body><form>")
		fmt.Fprintf(&b, "<input type=%q name=%q value=%q>", "hidden", "csrf_token", f.token)
		for name, val := range f.fields[r.URL.Path] {
			fmt.Fprintf(&b, "<textarea name=%q>%s</textarea>", name, html.EscapeString(val))
		}
		b.WriteString("</form></body></html>")
		_, _ = w.Write([]byte(b.String()))

	case http.MethodPost:
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.posts = append(f.posts, url.Values(r.MultipartForm.Value))
		if f.submitStatus != 0 {
			w.WriteHeader(f.submitStatus)
			return
		}
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}
}

func (f *fakeSite) setSubmitStatus(code int) {
	f.mu.Lock()
	f.submitStatus = code
	f.mu.Unlock()
}

func (f *fakeSite) setPageStatus(code int) {
	f.mu.Lock()
	f.pageStatus = code
	f.mu.Unlock()
}

func (f *fakeSite) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func (f *fakeSite) post(i int) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[i]
}

func testConfig(t *testing.T, site *fakeSite) *config.Config {
	t.Helper()
	return &config.Config{
		Site:             config.Site{BaseURL: site.srv.URL, Cookie: "authtoken=test"},
		StateDir:         t.TempDir(),
		MaxToasts:        3,
		MaxActiveEditors: 2,
		Tuning: config.Tuning{
			LoadTimeout:  5 * time.Second,
			SaveTimeout:  5 * time.Second,
			PersistDelay: time.Millisecond,
		},
	}
}

func newTestModel(t *testing.T, cfg *config.Config, site *fakeSite) (appModel, *fakeClock, *store.Store) {
	t.Helper()

	client, err := expert.NewClient(expert.Options{
		BaseURL: cfg.Site.BaseURL,
		Cookie:  cfg.Site.Cookie,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	st := store.Open(cfg.StateScopeDir(), nil)

	clock := &fakeClock{}
	wake := make(chan struct{}, 1)
	toasts := toast.NewManager(toast.Config{
		MaxVisible:      cfg.MaxToasts,
		DefaultDuration: 4 * time.Second,
		EnterDelay:      500 * time.Millisecond,
		ExitDelay:       500 * time.Millisecond,
		ReconcileWindow: 50 * time.Millisecond,
		Clock:           clock,
		OnChange: func() {
			select {
			case wake <- struct{}{}:
			default:
			}
		},
	})
	t.Cleanup(toasts.Close)

	notify := func(kind toast.Kind, text string) { toasts.Notify(text, kind, 0) }
	sessions := map[model.AppID]*app.Session{}
	for _, spec := range []model.AppSpec{model.DefaultCSSApp(""), model.DefaultHTMLApp("")} {
		s := app.NewSession(app.Config{
			Spec:         spec,
			Store:        st,
			Client:       client,
			Formatter:    formatter.New(nil),
			Notify:       notify,
			PersistDelay: cfg.Tuning.PersistDelay,
		})
		sessions[spec.ID] = s
		t.Cleanup(s.Close)
	}

	return newAppModel(cfg, slog.New(slog.DiscardHandler), st, sessions, toasts, wake), clock, st
}

// loadedTestModel builds a model, gives it a window, and completes the first
// load synchronously.
func loadedTestModel(t *testing.T) (appModel, *fakeSite, *fakeClock, *store.Store) {
	t.Helper()
	site := newFakeSite(t)
	cfg := testConfig(t, site)
	m, clock, st := newTestModel(t, cfg, site)

	mm, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = mm.(appModel)
	mm, _ = m.Update(m.loadCmd(m.curApp, m.loadSeq)())
	m = mm.(appModel)
	if m.view != viewMain {
		t.Fatalf("view after load = %v, want viewMain", m.view)
	}
	return m, site, clock, st
}

func press(m appModel, k tea.KeyType) (appModel, tea.Cmd) {
	mm, cmd := m.Update(tea.KeyMsg{Type: k})
	return mm.(appModel), cmd
}

func pressRune(m appModel, r rune) (appModel, tea.Cmd) {
	mm, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return mm.(appModel), cmd
}

// runCmd executes a single-message command and feeds the result back.
func runCmd(m appModel, cmd tea.Cmd) appModel {
	if cmd == nil {
		return m
	}
	msg := cmd()
	if msg == nil {
		return m
	}
	mm, _ := m.Update(msg)
	return mm.(appModel)
}

func visibleTexts(tm *toast.Manager) []string {
	var out []string
	for _, r := range tm.Visible() {
		out = append(out, r.Text)
	}
	return out
}

func containsText(texts []string, sub string) bool {
	for _, s := range texts {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func TestFirstLoad_PopulatesItemsFromServer(t *testing.T) {
	m, _, _, _ := loadedTestModel(t)

	sess := m.sessions[model.AppCSS]
	it, ok := sess.Item("all")
	if !ok {
		t.Fatalf("item all missing")
	}
	if it.Content != "body { margin: 0 }" || it.Dirty {
		t.Fatalf("item all = %+v, want clean server content", it)
	}
	if got := len(sess.Items()); got != 4 {
		t.Fatalf("css items = %d, want 4", got)
	}
	if m.pool.Len() != 0 {
		t.Fatalf("no editors should be open after a clean load, got %d", m.pool.Len())
	}
}

func TestSidebar_SelectionMovesAndClamps(t *testing.T) {
	m, _, _, _ := loadedTestModel(t)

	for i := 0; i < 10; i++ {
		m, _ = pressRune(m, 'j')
	}
	if got := m.selIdx[model.AppCSS]; got != 3 {
		t.Fatalf("selIdx after many j = %d, want 3", got)
	}
	m, _ = pressRune(m, 'k')
	if got := m.selIdx[model.AppCSS]; got != 2 {
		t.Fatalf("selIdx after k = %d, want 2", got)
	}
}

func TestSpace_TogglesEditorHost(t *testing.T) {
	m, _, _, _ := loadedTestModel(t)

	m, _ = press(m, tea.KeySpace)
	if m.pool.Len() != 1 {
		t.Fatalf("pool len = %d, want 1", m.pool.Len())
	}
	if got := m.active[model.AppCSS]; len(got) != 1 || got[0] != "all" {
		t.Fatalf("active = %v, want [all]", got)
	}

	m, _ = press(m, tea.KeySpace)
	if m.pool.Len() != 0 {
		t.Fatalf("pool len after close = %d, want 0", m.pool.Len())
	}
	if got := m.active[model.AppCSS]; len(got) != 0 {
		t.Fatalf("active after close = %v, want empty", got)
	}
}

func TestEditorBound_EvictsOldestAndToasts(t *testing.T) {
	m, _, clock, _ := loadedTestModel(t)

	m, _ = press(m, tea.KeySpace) // all
	m, _ = pressRune(m, 'j')
	m, _ = press(m, tea.KeySpace) // anonymous
	m, _ = pressRune(m, 'j')
	m, _ = press(m, tea.KeySpace) // community, evicts all

	if m.pool.Len() != 2 {
		t.Fatalf("pool len = %d, want 2", m.pool.Len())
	}
	if got := m.active[model.AppCSS]; len(got) != 2 || got[0] != "anonymous" || got[1] != "community" {
		t.Fatalf("active = %v, want [anonymous community]", got)
	}

	clock.Advance(50 * time.Millisecond)
	if texts := visibleTexts(m.toasts); !containsText(texts, "Closed All roles") {
		t.Fatalf("expected eviction toast, got %v", texts)
	}
}

func TestTyping_MarksDirtySynchronously(t *testing.T) {
	m, _, _, _ := loadedTestModel(t)

	m, _ = press(m, tea.KeyEnter)
	if m.focus != focusEditor || m.focusedID != "all" {
		t.Fatalf("focus = %v/%q, want editor/all", m.focus, m.focusedID)
	}

	m, _ = pressRune(m, 'x')

	sess := m.sessions[model.AppCSS]
	it, _ := sess.Item("all")
	if !it.Dirty {
		t.Fatalf("item should be dirty immediately after the keystroke")
	}
	if !strings.Contains(it.Content, "x") {
		t.Fatalf("typed rune not in content: %q", it.Content)
	}
	if sess.DirtyCount() != 1 {
		t.Fatalf("dirty count = %d, want 1", sess.DirtyCount())
	}
}

func TestCtrlS_SavesFocusedItemAndToasts(t *testing.T) {
	m, site, clock, _ := loadedTestModel(t)

	m, _ = press(m, tea.KeyEnter)
	m, _ = pressRune(m, 'x')

	m2, cmd := press(m, tea.KeyCtrlS)
	if cmd == nil {
		t.Fatalf("ctrl+s returned no command")
	}
	m = runCmd(m2, cmd)

	it, _ := m.sessions[model.AppCSS].Item("all")
	if it.Dirty {
		t.Fatalf("item still dirty after save")
	}
	if site.postCount() != 1 {
		t.Fatalf("posts = %d, want 1", site.postCount())
	}
	form := site.post(0)
	if got := form.Get("csrf_token"); got != "tok-1" {
		t.Fatalf("posted token = %q", got)
	}
	if got := form.Get("css_all"); got != it.Content {
		t.Fatalf("posted css_all = %q, want %q", got, it.Content)
	}
	// Untargeted fields travel with their baseline so the full-form POST
	// cannot blank them.
	if got := form.Get("css_pro"); got != ".pro {}" {
		t.Fatalf("posted css_pro = %q, want baseline", got)
	}
	if got := form.Get("submit"); got != "Save" {
		t.Fatalf("posted submit = %q, want Save", got)
	}

	clock.Advance(50 * time.Millisecond)
	if texts := visibleTexts(m.toasts); !containsText(texts, "Saved All roles") {
		t.Fatalf("expected save toast, got %v", texts)
	}
}

func TestSaveFailure_KeepsDirtyAndShowsErrorToast(t *testing.T) {
	m, site, clock, _ := loadedTestModel(t)
	site.setSubmitStatus(http.StatusInternalServerError)

	m, _ = press(m, tea.KeyEnter)
	m, _ = pressRune(m, 'x')
	m2, cmd := press(m, tea.KeyCtrlS)
	m = runCmd(m2, cmd)

	it, _ := m.sessions[model.AppCSS].Item("all")
	if !it.Dirty {
		t.Fatalf("item must stay dirty when the save fails")
	}
	if it.Saving {
		t.Fatalf("in-flight mark must be released on failure")
	}

	clock.Advance(50 * time.Millisecond)
	if texts := visibleTexts(m.toasts); !containsText(texts, "Save failed: HTTP 500") {
		t.Fatalf("expected failure toast, got %v", texts)
	}
}

func TestSaveAll_PostsEveryFieldOnce(t *testing.T) {
	m, site, _, _ := loadedTestModel(t)

	m, _ = press(m, tea.KeyEnter)
	m, _ = pressRune(m, 'x')
	m, _ = press(m, tea.KeyEsc)
	if m.focus != focusSidebar {
		t.Fatalf("esc should return focus to the sidebar")
	}

	m2, cmd := press(m, tea.KeyCtrlA)
	if cmd == nil {
		t.Fatalf("ctrl+a returned no command")
	}
	m = runCmd(m2, cmd)

	if site.postCount() != 1 {
		t.Fatalf("posts = %d, want one combined request", site.postCount())
	}
	sess := m.sessions[model.AppCSS]
	if sess.AnyDirty() {
		t.Fatalf("all items should be clean after save-all")
	}
	form := site.post(0)
	for _, field := range []string{"css_all", "css_anonymous", "css_community", "css_pro"} {
		if _, ok := form[field]; !ok {
			t.Fatalf("posted form missing %s", field)
		}
	}
}

func TestQuitWithDirtyEdits_AsksFirst(t *testing.T) {
	m, _, _, _ := loadedTestModel(t)

	m, _ = press(m, tea.KeyEnter)
	m, _ = pressRune(m, 'x')
	m, _ = press(m, tea.KeyEsc)

	m, cmd := pressRune(m, 'q')
	if cmd != nil {
		t.Fatalf("expected no quit command while confirming")
	}
	if m.modal != modalConfirmQuit {
		t.Fatalf("modal = %v, want quit confirm", m.modal)
	}

	m, _ = press(m, tea.KeyEsc)
	if m.modal != modalNone {
		t.Fatalf("esc should cancel the quit confirm")
	}

	m, _ = pressRune(m, 'q')
	m, cmd = pressRune(m, 'y')
	if cmd == nil {
		t.Fatalf("confirmed quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("confirmed quit should produce tea.QuitMsg")
	}
}

func TestQuitClean_NoConfirm(t *testing.T) {
	m, _, _, _ := loadedTestModel(t)

	m, cmd := pressRune(m, 'q')
	if m.modal != modalNone {
		t.Fatalf("clean quit should not confirm")
	}
	if cmd == nil {
		t.Fatalf("clean quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("clean quit should produce tea.QuitMsg")
	}
}

func TestRevert_ConfirmsWhenDirtyAndResyncsHost(t *testing.T) {
	m, _, _, _ := loadedTestModel(t)

	m, _ = press(m, tea.KeyEnter)
	m, _ = pressRune(m, 'x')
	m, _ = press(m, tea.KeyEsc)

	m, _ = pressRune(m, 'u')
	if m.modal != modalConfirmRevert || m.modalItemID != "all" {
		t.Fatalf("modal = %v item %q, want revert confirm for all", m.modal, m.modalItemID)
	}

	// Enter with the default focus lands on cancel: nothing is lost.
	m, _ = press(m, tea.KeyEnter)
	if m.modal != modalNone {
		t.Fatalf("enter on cancel should close the modal")
	}
	if it, _ := m.sessions[model.AppCSS].Item("all"); !it.Dirty {
		t.Fatalf("cancelling the confirm must keep the edit")
	}

	m, _ = pressRune(m, 'u')
	m, _ = pressRune(m, 'y')
	it, _ := m.sessions[model.AppCSS].Item("all")
	if it.Dirty || it.Content != "body { margin: 0 }" {
		t.Fatalf("revert should restore the baseline, got %+v", it)
	}
	h := m.pool.Get(m.hostKey("all"))
	if h == nil || h.Value() != "body { margin: 0 }" {
		t.Fatalf("open editor should show the reverted content")
	}
}

func TestDiscardAll_ConfirmAndClear(t *testing.T) {
	m, _, _, _ := loadedTestModel(t)

	m, _ = press(m, tea.KeyEnter)
	m, _ = pressRune(m, 'x')
	m, _ = press(m, tea.KeyEsc)
	m, _ = pressRune(m, 'j')
	m, _ = press(m, tea.KeyEnter)
	m, _ = pressRune(m, 'z')
	m, _ = press(m, tea.KeyEsc)

	sess := m.sessions[model.AppCSS]
	if sess.DirtyCount() != 2 {
		t.Fatalf("dirty count = %d, want 2", sess.DirtyCount())
	}

	m, _ = pressRune(m, 'D')
	if m.modal != modalConfirmDiscard {
		t.Fatalf("modal = %v, want discard confirm", m.modal)
	}
	m, _ = pressRune(m, 'y')

	if sess.AnyDirty() {
		t.Fatalf("discard-all should clear every dirty item")
	}
	if h := m.pool.Get(m.hostKey("all")); h == nil || h.Value() != "body { margin: 0 }" {
		t.Fatalf("open editors should be resynced to baselines")
	}
}

func TestTab_SwitchesAppLazilyAndRemembersChoice(t *testing.T) {
	m, _, _, st := loadedTestModel(t)

	mm, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = mm.(appModel)
	if m.curApp != model.AppHTML {
		t.Fatalf("curApp = %v, want html", m.curApp)
	}
	if m.view != viewLoading {
		t.Fatalf("switching to a never-loaded app should show loading")
	}
	if got := st.LoadUIState().LastAppID; got != "html" {
		t.Fatalf("persisted LastAppID = %q, want html", got)
	}

	mm, _ = m.Update(m.loadCmd(model.AppHTML, m.loadSeq)())
	m = mm.(appModel)
	if m.view != viewMain {
		t.Fatalf("view = %v after html load, want main", m.view)
	}
	if it, ok := m.sessions[model.AppHTML].Item("head"); !ok || it.Content != "<meta charset=\"utf-8\">" {
		t.Fatalf("html head item = %+v", it)
	}

	// Switching back needs no load.
	mm, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = mm.(appModel)
	if m.curApp != model.AppCSS || m.view != viewMain {
		t.Fatalf("switch back = %v/%v, want css/main", m.curApp, m.view)
	}
}

func TestLoadFailure_ErrorViewAndRetry(t *testing.T) {
	site := newFakeSite(t)
	site.setPageStatus(http.StatusInternalServerError)
	cfg := testConfig(t, site)
	m, _, _ := newTestModel(t, cfg, site)

	mm, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = mm.(appModel)
	mm, _ = m.Update(m.loadCmd(m.curApp, m.loadSeq)())
	m = mm.(appModel)

	if m.view != viewError {
		t.Fatalf("view = %v, want error view", m.view)
	}
	if !strings.Contains(m.loadErr, "HTTP 500") {
		t.Fatalf("loadErr = %q, want HTTP 500 mention", m.loadErr)
	}

	site.setPageStatus(0)
	m, _ = pressRune(m, 'r')
	if m.view != viewLoading {
		t.Fatalf("retry should re-enter loading, got %v", m.view)
	}
	mm, _ = m.Update(m.loadCmd(m.curApp, m.loadSeq)())
	m = mm.(appModel)
	if m.view != viewMain {
		t.Fatalf("view after retry = %v, want main", m.view)
	}
}

func TestStaleLoadResult_IsDropped(t *testing.T) {
	m, _, _, _ := loadedTestModel(t)

	stale := loadDoneMsg{app: model.AppCSS, seq: m.loadSeq - 1, err: fmt.Errorf("boom")}
	mm, _ := m.Update(stale)
	m = mm.(appModel)
	if m.view != viewMain {
		t.Fatalf("stale load result must not change the view")
	}
}

func TestSnapshotRestore_ReopensEditorsAndNotifies(t *testing.T) {
	site := newFakeSite(t)
	cfg := testConfig(t, site)

	seed := store.Open(cfg.StateScopeDir(), nil)
	if err := seed.SaveAppState(model.AppCSS, &model.AppState{
		ActiveItemIDs: []string{"all", "pro"},
		Content: map[string]string{
			"all": "body { margin: 4px }",
			"pro": ".pro {}",
		},
		IsDirty: map[string]bool{"all": true},
		OriginalContent: map[string]string{
			"all": "body { margin: 0 }",
			"pro": ".pro {}",
		},
	}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	m, clock, _ := newTestModel(t, cfg, site)
	mm, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = mm.(appModel)
	mm, _ = m.Update(m.loadCmd(m.curApp, m.loadSeq)())
	m = mm.(appModel)

	it, _ := m.sessions[model.AppCSS].Item("all")
	if !it.Dirty || it.Content != "body { margin: 4px }" {
		t.Fatalf("restored item = %+v, want dirty snapshot content", it)
	}
	if m.pool.Len() != 2 {
		t.Fatalf("pool len = %d, want both snapshot editors reopened", m.pool.Len())
	}
	if h := m.pool.Get(m.hostKey("all")); h == nil || h.Value() != "body { margin: 4px }" {
		t.Fatalf("reopened editor should hold snapshot content")
	}

	clock.Advance(50 * time.Millisecond)
	if texts := visibleTexts(m.toasts); !containsText(texts, "Restored unsaved edits") {
		t.Fatalf("expected restore toast, got %v", texts)
	}
}

func TestReload_RefreshesTokenKeepsDirtyEdits(t *testing.T) {
	m, site, clock, _ := loadedTestModel(t)

	m, _ = press(m, tea.KeyEnter)
	m, _ = pressRune(m, 'x')
	m, _ = press(m, tea.KeyEsc)
	dirtyContent, _ := m.sessions[model.AppCSS].Item("all")

	site.mu.Lock()
	site.token = "tok-2"
	site.mu.Unlock()

	m, _ = pressRune(m, 'R')
	if m.view != viewLoading {
		t.Fatalf("reload should show loading, got %v", m.view)
	}
	mm, _ := m.Update(m.loadCmd(model.AppCSS, m.loadSeq)())
	m = mm.(appModel)

	it, _ := m.sessions[model.AppCSS].Item("all")
	if it.Content != dirtyContent.Content || !it.Dirty {
		t.Fatalf("reload must keep dirty edits, got %+v", it)
	}

	clock.Advance(50 * time.Millisecond)
	if texts := visibleTexts(m.toasts); !containsText(texts, "kept your unsaved edits") {
		t.Fatalf("expected token-refresh toast, got %v", texts)
	}

	// The refreshed token is what the next save transmits.
	m3, saveCmd := press(m, tea.KeyCtrlS)
	m = runCmd(m3, saveCmd)
	if got := site.post(0).Get("csrf_token"); got != "tok-2" {
		t.Fatalf("posted token = %q, want tok-2", got)
	}
}

func TestToastKeys_DismissOneAndAll(t *testing.T) {
	m, _, clock, _ := loadedTestModel(t)

	m.notify(toast.KindInfo, "first")
	m.notify(toast.KindInfo, "second")
	clock.Advance(50 * time.Millisecond)
	if got := len(m.toasts.Visible()); got != 2 {
		t.Fatalf("visible = %d, want 2", got)
	}

	m, _ = pressRune(m, 'x')
	clock.Advance(50 * time.Millisecond)
	vis := m.toasts.Visible()
	if len(vis) == 0 || vis[0].State != toast.StateDismissing {
		t.Fatalf("oldest toast should be dismissing, got %+v", vis)
	}

	m, _ = pressRune(m, 'X')
	clock.Advance(time.Second)
	if got := len(m.toasts.Visible()); got != 0 {
		t.Fatalf("visible after dismiss-all = %d, want 0", got)
	}
}

func TestHelp_OpensOnceAndMarksSeen(t *testing.T) {
	m, _, _, st := loadedTestModel(t)

	if st.LoadUIState().HelpSeen {
		t.Fatalf("HelpSeen should start false")
	}
	m, _ = pressRune(m, '?')
	if !m.showHelp {
		t.Fatalf("? should open help")
	}
	if !st.LoadUIState().HelpSeen {
		t.Fatalf("opening help should persist HelpSeen")
	}
	m, _ = press(m, tea.KeyEsc)
	if m.showHelp {
		t.Fatalf("esc should close help")
	}
}

func TestView_EveryLineExactlyTerminalWidth(t *testing.T) {
	m, _, clock, _ := loadedTestModel(t)

	m, _ = press(m, tea.KeySpace)
	m.notify(toast.KindSuccess, "geometry probe")
	clock.Advance(50 * time.Millisecond)

	checkWidths := func(stage string) {
		out := m.View()
		lines := strings.Split(out, "\n")
		if len(lines) != 30 {
			t.Fatalf("%s: %d lines, want 30", stage, len(lines))
		}
		for i, ln := range lines {
			if w := xansi.StringWidth(ln); w != 100 {
				t.Fatalf("%s: line %d width = %d, want 100: %q", stage, i, w, ln)
			}
		}
	}
	checkWidths("main with toast")

	m, _ = pressRune(m, '?')
	checkWidths("help overlay")
	m, _ = press(m, tea.KeyEsc)

	m, _ = press(m, tea.KeyEnter)
	m, _ = pressRune(m, 'x')
	m, _ = press(m, tea.KeyEsc)
	m, _ = pressRune(m, 'q')
	checkWidths("quit confirm")
}

func TestSaveErrorToastMapping(t *testing.T) {
	t.Parallel()

	kind, text := saveErrorToast(app.ErrSaveInFlight)
	if kind != toast.KindWarning || !strings.Contains(text, "already running") {
		t.Fatalf("in-flight mapping = %v %q", kind, text)
	}

	kind, text = saveErrorToast(expert.ErrNoToken)
	if kind != toast.KindError || !strings.Contains(text, "reload") {
		t.Fatalf("no-token mapping = %v %q", kind, text)
	}

	kind, text = saveErrorToast(expert.StatusError{Code: 403, URL: "u"})
	if kind != toast.KindError || !strings.Contains(text, "HTTP 403") {
		t.Fatalf("status mapping = %v %q", kind, text)
	}
}
