package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/app"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/expert"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/toast"
)

// toastWakeMsg means the toast manager changed state and the view is stale.
type toastWakeMsg struct{}

// loadingTickMsg redraws the elapsed counter while a load is in flight. The
// seq guard drops ticks from abandoned loads.
type loadingTickMsg struct{ seq int }

type loadDoneMsg struct {
	app model.AppID
	seq int
	// reload marks a Load on an already-live session, which refreshes the
	// token rather than restoring anything.
	reload bool
	info   app.LoadInfo
	err    error
}

type saveDoneMsg struct {
	app     model.AppID
	targets []string
	err     error
}

func (m appModel) waitForToast() tea.Cmd {
	wake := m.wake
	return func() tea.Msg {
		<-wake
		return toastWakeMsg{}
	}
}

func loadingTick(seq int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return loadingTickMsg{seq: seq}
	})
}

func (m appModel) loadCmd(id model.AppID, seq int) tea.Cmd {
	sess := m.sessions[id]
	timeout := m.cfg.Tuning.LoadTimeout
	reload := sess.Loaded()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		info, err := sess.Load(ctx)
		return loadDoneMsg{app: id, seq: seq, reload: reload, info: info, err: err}
	}
}

func (m appModel) saveCmd(id model.AppID, targets []string, all bool) tea.Cmd {
	sess := m.sessions[id]
	timeout := m.cfg.Tuning.SaveTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var err error
		if all {
			err = sess.SaveAll(ctx)
		} else {
			err = sess.SaveOne(ctx, targets[0])
		}
		return saveDoneMsg{app: id, targets: targets, err: err}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.seenWindowSize = true
		m.resizeEditors()
		return m, nil

	case toastWakeMsg:
		return m, m.waitForToast()

	case loadingTickMsg:
		if msg.seq == m.loadSeq && m.view == viewLoading {
			return m, loadingTick(msg.seq)
		}
		return m, nil

	case loadDoneMsg:
		return m.handleLoadDone(msg)

	case saveDoneMsg:
		m.handleSaveDone(msg)
		return m, nil

	case externalEditorDoneMsg:
		m.applyExternalEditorResult(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Remaining messages (cursor blink and friends) belong to the focused
	// editor host.
	if m.view == viewMain && m.focus == focusEditor && m.modal == modalNone {
		if h := m.pool.Get(m.hostKey(m.focusedID)); h != nil {
			return m, h.Update(msg)
		}
	}
	return m, nil
}

func (m appModel) handleLoadDone(msg loadDoneMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.loadSeq {
		return m, nil
	}
	if msg.err != nil {
		m.log.Warn("load failed", "app", msg.app, "err", msg.err)
		if m.view == viewLoading && m.loadingFor == msg.app {
			m.view = viewError
			m.loadErr = loadErrorText(msg.err)
		}
		return m, nil
	}

	m.log.Debug("load done", "app", msg.app, "fromSnapshot", msg.info.FromSnapshot,
		"activeItems", len(msg.info.ActiveItemIDs))
	if m.view == viewLoading && m.loadingFor == msg.app {
		m.view = viewMain
	}

	// Reopen the editors the last session had open, bounded by the pool.
	if msg.app == m.curApp {
		restored := msg.info.ActiveItemIDs
		if len(restored) > m.pool.Max() {
			restored = restored[:m.pool.Max()]
		}
		for _, id := range restored {
			m.activateEditor(id)
		}
		m.resizeEditors()
	}
	switch {
	case msg.reload && msg.info.FromSnapshot:
		m.notify(toast.KindInfo, "Fresh session token fetched; kept your unsaved edits")
	case msg.reload:
		m.notify(toast.KindSuccess, "Reloaded from server")
	case msg.info.FromSnapshot:
		m.notify(toast.KindInfo, "Restored unsaved edits from your last session")
	}
	return m, nil
}

func (m *appModel) handleSaveDone(msg saveDoneMsg) {
	sess := m.sessions[msg.app]
	// The session may have swapped formatter output or advanced baselines;
	// bring open editors back in line with the authoritative content.
	for _, id := range msg.targets {
		m.resyncHost(msg.app, id, sess)
	}
	if msg.err == nil {
		return
	}
	m.log.Warn("save failed", "app", msg.app, "targets", msg.targets, "err", msg.err)
	kind, text := saveErrorToast(msg.err)
	m.notify(kind, text)
}

// resyncHost pushes the session's content into an open editor when the two
// disagree, without waking the change hook.
func (m *appModel) resyncHost(appID model.AppID, itemID string, sess *app.Session) {
	it, ok := sess.Item(itemID)
	if !ok {
		return
	}
	h := m.pool.Get(m.hostKeyFor(appID, itemID))
	if h == nil {
		return
	}
	if h.Value() != it.Content {
		h.SetValue(it.Content)
	}
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch msg.String() {
		case "esc", "?", "q":
			m.showHelp = false
		}
		return m, nil
	}
	if m.modal != modalNone {
		return m.handleModalKey(msg)
	}

	switch m.view {
	case viewLoading:
		switch msg.String() {
		case "q", "ctrl+c":
			return m.requestQuit()
		}
		return m, nil
	case viewError:
		switch msg.String() {
		case "r":
			cmd := m.startLoad(m.curApp)
			return m, cmd
		case "q", "ctrl+c":
			return m.requestQuit()
		}
		return m, nil
	}

	if msg.String() == "ctrl+c" {
		return m.requestQuit()
	}
	if m.focus == focusEditor {
		return m.handleEditorKey(msg)
	}
	return m.handleSidebarKey(msg)
}

func (m appModel) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.session().Items()
	switch msg.String() {
	case "q":
		return m.requestQuit()

	case "tab":
		cmd := m.switchApp()
		return m, cmd

	case "j", "down":
		if idx := m.selIdx[m.curApp]; idx < len(items)-1 {
			m.selIdx[m.curApp] = idx + 1
		}
		return m, nil

	case "k", "up":
		if idx := m.selIdx[m.curApp]; idx > 0 {
			m.selIdx[m.curApp] = idx - 1
		}
		return m, nil

	case " ":
		it, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		if m.isActive(it.Spec.ID) {
			m.deactivateEditor(it.Spec.ID)
		} else {
			m.openEditor(it.Spec.ID)
		}
		return m, nil

	case "enter":
		it, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		m.openEditor(it.Spec.ID)
		h := m.pool.Get(m.hostKey(it.Spec.ID))
		if h == nil {
			return m, nil
		}
		m.focusedID = it.Spec.ID
		m.focus = focusEditor
		return m, h.Focus()

	case "ctrl+s":
		it, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		return m, m.saveCmd(m.curApp, []string{it.Spec.ID}, false)

	case "ctrl+a":
		return m, m.saveAllCmd()

	case "R":
		cmd := m.startLoad(m.curApp)
		return m, cmd

	case "u":
		it, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		if it.Dirty {
			m.modal = modalConfirmRevert
			m.modalFocus = confirmFocusCancel
			m.modalItemID = it.Spec.ID
			return m, nil
		}
		if _, err := m.session().Revert(it.Spec.ID); err != nil {
			m.notify(toast.KindError, "Revert failed: "+err.Error())
		}
		return m, nil

	case "D":
		if m.session().AnyDirty() {
			m.modal = modalConfirmDiscard
			m.modalFocus = confirmFocusCancel
			m.modalItemID = ""
			return m, nil
		}
		m.session().DiscardAll()
		return m, nil

	case "e":
		it, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		cmd, err := m.openExternalEditor(it.Spec.ID)
		if err != nil {
			m.notify(toast.KindError, "Editor launch failed: "+err.Error())
			return m, nil
		}
		return m, cmd

	case "x":
		if vis := m.toasts.Visible(); len(vis) > 0 {
			m.toasts.Dismiss(vis[0].ID)
		}
		return m, nil

	case "X":
		m.toasts.DismissAll()
		return m, nil

	case "?":
		m.openHelp()
		return m, nil
	}
	return m, nil
}

func (m appModel) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	h := m.pool.Get(m.hostKey(m.focusedID))
	if h == nil {
		m.focusedID = ""
		m.focus = focusSidebar
		return m, nil
	}
	switch msg.String() {
	case "esc":
		h.Blur()
		m.focusedID = ""
		m.focus = focusSidebar
		return m, nil
	case "ctrl+s":
		return m, m.saveCmd(m.curApp, []string{m.focusedID}, false)
	case "ctrl+a":
		// Intercepted before the textarea, which would otherwise treat it
		// as line-start. Home and ctrl+e still work inside the editor.
		return m, m.saveAllCmd()
	}
	return m, h.Update(msg)
}

func (m appModel) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "left", "right":
		if m.modalFocus == confirmFocusConfirm {
			m.modalFocus = confirmFocusCancel
		} else {
			m.modalFocus = confirmFocusConfirm
		}
		return m, nil
	case "y":
		return m.confirmModal()
	case "n", "esc":
		m.closeModal()
		return m, nil
	case "enter":
		if m.modalFocus == confirmFocusConfirm {
			return m.confirmModal()
		}
		m.closeModal()
		return m, nil
	}
	return m, nil
}

func (m appModel) confirmModal() (tea.Model, tea.Cmd) {
	kind := m.modal
	itemID := m.modalItemID
	m.closeModal()

	switch kind {
	case modalConfirmRevert:
		sess := m.session()
		if _, err := sess.Revert(itemID); err != nil {
			m.notify(toast.KindError, "Revert failed: "+err.Error())
			return m, nil
		}
		m.resyncHost(m.curApp, itemID, sess)
		return m, nil

	case modalConfirmDiscard:
		sess := m.session()
		sess.DiscardAll()
		for _, it := range sess.Items() {
			m.resyncHost(m.curApp, it.Spec.ID, sess)
		}
		return m, nil

	case modalConfirmQuit:
		return m, tea.Quit
	}
	return m, nil
}

func (m *appModel) closeModal() {
	m.modal = modalNone
	m.modalItemID = ""
	m.modalFocus = confirmFocusCancel
}

func (m appModel) requestQuit() (tea.Model, tea.Cmd) {
	if m.anyDirtyAnywhere() {
		m.modal = modalConfirmQuit
		m.modalFocus = confirmFocusCancel
		m.modalItemID = ""
		return m, nil
	}
	return m, tea.Quit
}

// openEditor activates a host for the item and reports a pool eviction, if
// any, so the closed editor does not vanish silently.
func (m *appModel) openEditor(itemID string) {
	evicted := m.activateEditor(itemID)
	if evicted == "" {
		return
	}
	relApp, relItem := splitHostKey(evicted)
	label := relItem
	if s := m.sessions[relApp]; s != nil {
		if it, ok := s.Item(relItem); ok {
			label = it.Spec.Label
		}
	}
	m.notify(toast.KindInfo, fmt.Sprintf("Closed %s (editor limit reached)", label))
}

func (m *appModel) openHelp() {
	m.showHelp = true
	if !m.ui.HelpSeen {
		m.ui.HelpSeen = true
		if err := m.store.SaveUIState(m.ui); err != nil {
			m.log.Warn("ui state save failed", "err", err)
		}
	}
}

func (m *appModel) startLoad(id model.AppID) tea.Cmd {
	m.view = viewLoading
	m.loadingFor = id
	m.loadErr = ""
	m.loadSeq++
	m.loadStarted = time.Now()
	return tea.Batch(m.loadCmd(id, m.loadSeq), loadingTick(m.loadSeq))
}

func (m *appModel) saveAllCmd() tea.Cmd {
	var ids []string
	for _, it := range m.session().Items() {
		ids = append(ids, it.Spec.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	return m.saveCmd(m.curApp, ids, true)
}

// switchApp cycles to the next app, remembers the choice, and lazily loads
// sessions the first time they are shown.
func (m *appModel) switchApp() tea.Cmd {
	idx := 0
	for i, id := range m.appOrder {
		if id == m.curApp {
			idx = i
			break
		}
	}
	next := m.appOrder[(idx+1)%len(m.appOrder)]

	if m.focusedID != "" {
		if h := m.pool.Get(m.hostKey(m.focusedID)); h != nil {
			h.Blur()
		}
	}
	m.focusedID = ""
	m.focus = focusSidebar
	m.curApp = next

	m.ui.LastAppID = string(next)
	if err := m.store.SaveUIState(m.ui); err != nil {
		m.log.Warn("ui state save failed", "err", err)
	}

	if !m.sessions[next].Loaded() {
		return m.startLoad(next)
	}
	m.resizeEditors()
	return nil
}

func loadErrorText(err error) string {
	var se expert.StatusError
	switch {
	case errors.Is(err, expert.ErrNoToken):
		return "The edit page returned no session token. Is the cookie still signed in?"
	case errors.As(err, &se):
		if se.Code == 401 || se.Code == 403 {
			return fmt.Sprintf("Not authorized (HTTP %d). Check site.cookie in your config.", se.Code)
		}
		return fmt.Sprintf("The control panel answered HTTP %d.", se.Code)
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out fetching the edit page."
	default:
		return err.Error()
	}
}

func saveErrorToast(err error) (toast.Kind, string) {
	var se expert.StatusError
	switch {
	case errors.Is(err, app.ErrSaveInFlight):
		return toast.KindWarning, "A save is already running for that item"
	case errors.Is(err, app.ErrNotLoaded):
		return toast.KindWarning, "Nothing loaded to save yet"
	case errors.Is(err, expert.ErrNoToken):
		return toast.KindError, "Save needs a fresh session token: press R to reload"
	case errors.As(err, &se):
		return toast.KindError, fmt.Sprintf("Save failed: HTTP %d", se.Code)
	case errors.Is(err, context.DeadlineExceeded):
		return toast.KindError, "Save timed out"
	default:
		return toast.KindError, "Save failed: " + err.Error()
	}
}
