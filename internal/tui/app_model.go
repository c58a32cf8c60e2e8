package tui

import (
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/app"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/config"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/editor"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/store"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/toast"
)

type view int

const (
	viewLoading view = iota
	viewMain
	viewError
)

type focusArea int

const (
	focusSidebar focusArea = iota
	focusEditor
)

type modalKind int

const (
	modalNone modalKind = iota
	modalConfirmRevert
	modalConfirmDiscard
	modalConfirmQuit
)

type appModel struct {
	cfg *config.Config
	log *slog.Logger

	store  *store.Store
	toasts *toast.Manager
	// wake is signaled by the toast manager's OnChange hook; waitForToast
	// turns it into redraw messages.
	wake chan struct{}

	sessions map[model.AppID]*app.Session
	appOrder []model.AppID
	curApp   model.AppID

	// active mirrors each session's open-editor set in spec order; the
	// session persists it, the pool enforces the concurrency bound.
	active map[model.AppID][]string
	pool   *editor.Pool

	ui *model.UIState

	width          int
	height         int
	seenWindowSize bool

	view        view
	loadSeq     int
	loadingFor  model.AppID
	loadStarted time.Time
	loadErr     string

	focus focusArea
	// selIdx is the sidebar cursor per app.
	selIdx map[model.AppID]int
	// focusedID is the item whose editor has key focus ("" = sidebar).
	focusedID string

	modal       modalKind
	modalFocus  confirmModalFocus
	modalItemID string

	showHelp bool

	externalEditorPath   string
	externalEditorItem   string
	externalEditorBefore string

	debugEnabled bool
}

func newAppModel(cfg *config.Config, log *slog.Logger, st *store.Store, sessions map[model.AppID]*app.Session, toasts *toast.Manager, wake chan struct{}) appModel {
	m := appModel{
		cfg:      cfg,
		log:      log,
		store:    st,
		toasts:   toasts,
		wake:     wake,
		sessions: sessions,
		appOrder: []model.AppID{model.AppCSS, model.AppHTML},
		active:   map[model.AppID][]string{},
		pool:     editor.NewPool(cfg.MaxActiveEditors),
		selIdx:   map[model.AppID]int{},
		view:     viewLoading,
		loadSeq:  1,
	}

	m.ui = st.LoadUIState()
	m.curApp = model.AppCSS
	if id := model.AppID(m.ui.LastAppID); sessions[id] != nil {
		m.curApp = id
	}
	m.loadingFor = m.curApp
	m.loadStarted = time.Now()

	if strings.TrimSpace(os.Getenv("EXPERTEDIT_TUI_DEBUG")) != "" {
		m.debugEnabled = true
	}

	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		m.loadCmd(m.curApp, m.loadSeq),
		loadingTick(m.loadSeq),
		m.waitForToast(),
	)
}

func (m *appModel) notify(kind toast.Kind, text string) {
	m.toasts.Notify(text, kind, 0)
}

func (m appModel) session() *app.Session { return m.sessions[m.curApp] }

func (m appModel) hostKey(itemID string) string { return m.hostKeyFor(m.curApp, itemID) }

func (m appModel) hostKeyFor(id model.AppID, itemID string) string {
	return string(id) + "/" + itemID
}

func splitHostKey(key string) (model.AppID, string) {
	i := strings.IndexByte(key, '/')
	if i < 0 {
		return "", key
	}
	return model.AppID(key[:i]), key[i+1:]
}

// selectedItem returns the sidebar-selected item of the current app.
func (m appModel) selectedItem() (app.Item, bool) {
	items := m.session().Items()
	if len(items) == 0 {
		return app.Item{}, false
	}
	idx := m.selIdx[m.curApp]
	if idx < 0 {
		idx = 0
	}
	if idx >= len(items) {
		idx = len(items) - 1
	}
	return items[idx], true
}

func (m appModel) isActive(itemID string) bool {
	for _, id := range m.active[m.curApp] {
		if id == itemID {
			return true
		}
	}
	return false
}

func (m appModel) anyDirtyAnywhere() bool {
	for _, s := range m.sessions {
		if s.AnyDirty() {
			return true
		}
	}
	return false
}

// activateEditor opens (or touches) an editor host for the item. The pool may
// evict its least-recently-used host to stay within the configured bound; the
// evicted item is reported so both apps' active sets stay truthful.
func (m *appModel) activateEditor(itemID string) (evicted string) {
	sess := m.session()
	it, ok := sess.Item(itemID)
	if !ok {
		return ""
	}

	appID := m.curApp
	build := func() *editor.Host {
		return editor.New(it.Content, editor.Options{
			Language: it.Spec.Language,
			OnChange: func(v string) { sess.SetContent(itemID, v) },
		})
	}
	_, released := m.pool.Activate(m.hostKey(itemID), build)

	if released != "" {
		relApp, relItem := splitHostKey(released)
		m.removeActive(relApp, relItem)
		if m.focusedID == relItem && relApp == appID {
			m.focusedID = ""
			m.focus = focusSidebar
		}
		evicted = released
	}

	if !m.isActive(itemID) {
		m.active[appID] = m.specOrdered(appID, append(m.active[appID], itemID))
		sess.SetActiveItemIDs(m.active[appID])
	}
	m.resizeEditors()
	return evicted
}

func (m *appModel) deactivateEditor(itemID string) {
	m.pool.Release(m.hostKey(itemID))
	m.removeActive(m.curApp, itemID)
	if m.focusedID == itemID {
		m.focusedID = ""
		m.focus = focusSidebar
	}
	m.resizeEditors()
}

func (m *appModel) removeActive(id model.AppID, itemID string) {
	cur := m.active[id]
	out := cur[:0]
	for _, x := range cur {
		if x != itemID {
			out = append(out, x)
		}
	}
	m.active[id] = out
	if s := m.sessions[id]; s != nil {
		s.SetActiveItemIDs(out)
	}
}

// specOrdered filters ids to known items and returns them in spec order so
// pane layout stays stable regardless of activation order.
func (m appModel) specOrdered(id model.AppID, ids []string) []string {
	set := map[string]bool{}
	for _, x := range ids {
		set[x] = true
	}
	var out []string
	for _, it := range m.sessions[id].Spec().Items {
		if set[it.ID] {
			out = append(out, it.ID)
		}
	}
	return out
}

// visiblePanes returns the editors actually rendered: at most two, always
// including the focused one.
func (m appModel) visiblePanes() []string {
	ids := m.active[m.curApp]
	if len(ids) <= 2 {
		return ids
	}
	out := ids[:2]
	if m.focusedID == "" {
		return out
	}
	for _, id := range out {
		if id == m.focusedID {
			return out
		}
	}
	return []string{out[0], m.focusedID}
}

func (m *appModel) resizeEditors() {
	if m.width == 0 || m.height == 0 {
		return
	}
	bodyH := m.height - 2
	if bodyH < 3 {
		bodyH = 3
	}
	editorsW := m.width - m.sidebarWidth() - 1

	panes := m.visiblePanes()
	for i, id := range panes {
		h := m.pool.Get(m.hostKey(id))
		if h == nil {
			continue
		}
		w := m.paneWidth(editorsW, len(panes), i)
		// Rounded border eats 2 columns and 2 rows; the title line one more.
		h.SetSize(w-2, bodyH-3)
	}
}

func (m appModel) sidebarWidth() int {
	w := m.ui.SidebarWidth
	if w < 16 {
		w = 26
	}
	if max := m.width / 3; max > 0 && w > max {
		w = max
	}
	return w
}

func (m appModel) paneWidth(total, panes, idx int) int {
	if panes <= 1 {
		return total
	}
	left := (total - 1) * m.ui.SplitRatio / 100
	if left < 10 {
		left = 10
	}
	if left > total-11 {
		left = total - 11
	}
	if idx == 0 {
		return left
	}
	return total - 1 - left
}
