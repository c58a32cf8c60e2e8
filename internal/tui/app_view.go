package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func (m appModel) View() string {
	if !m.seenWindowSize {
		return ""
	}

	var base string
	switch m.view {
	case viewLoading:
		base = m.loadingScreen()
	case viewError:
		base = m.errorScreen()
	default:
		base = m.mainScreen()
	}
	base = normalizePane(base, m.width, m.height)

	switch {
	case m.modal != modalNone:
		base = overlayCenter(dimBackground(base), m.renderModal())
	case m.showHelp:
		// Wrap the markdown to the modal's body so the box never rewraps it.
		help := renderHelp(modalBodyWidth(m.width) + 8)
		base = overlayCenter(dimBackground(base), renderModalBox(m.width, "Help", help))
	}

	if stack := renderToastStack(m.toasts.Visible(), m.toasts.QueuedCount(), m.toasts.ShowDismissAll()); stack != "" {
		// Leading newline keeps the header row clear of the stack.
		base = overlayTopRight(base, "\n"+stack, 1)
	}
	return base
}

func (m appModel) loadingScreen() string {
	title := m.sessions[m.loadingFor].Spec().Title
	elapsed := int(time.Since(m.loadStarted).Seconds())
	content := lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.NewStyle().Bold(true).Render("Loading "+title),
		styleMuted().Render(fmt.Sprintf("Fetching the edit form and session token (%ds)", elapsed)),
		"",
		styleMuted().Render("q quit"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m appModel) errorScreen() string {
	title := m.sessions[m.loadingFor].Spec().Title
	bodyW := m.width - 8
	if bodyW > 72 {
		bodyW = 72
	}
	if bodyW < 20 {
		bodyW = 20
	}
	content := lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.NewStyle().Bold(true).Foreground(colorError).Render("Could not load "+title),
		"",
		lipgloss.NewStyle().Width(bodyW).Align(lipgloss.Center).Render(m.loadErr),
		"",
		styleMuted().Render("r retry   q quit"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m appModel) mainScreen() string {
	bodyH := m.height - 2
	if bodyH < 3 {
		bodyH = 3
	}
	sidebarW := m.sidebarWidth()
	editorsW := m.width - sidebarW - 1

	header := m.renderHeader()
	sidebar := normalizePane(m.renderSidebar(sidebarW, bodyH), sidebarW, bodyH)
	editors := normalizePane(m.renderEditors(editorsW, bodyH), editorsW, bodyH)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", editors)
	status := m.renderStatusBar()

	return header + "\n" + normalizePane(body, m.width, bodyH) + "\n" + status
}

func (m appModel) renderHeader() string {
	name := lipgloss.NewStyle().Bold(true).Render("expertedit")
	tabs := make([]string, 0, len(m.appOrder))
	for _, id := range m.appOrder {
		label := strings.ToUpper(string(id))
		var tab string
		if id == m.curApp {
			tab = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render("[" + label + "]")
		} else {
			tab = styleMuted().Render(" " + label + " ")
		}
		if m.sessions[id].AnyDirty() {
			tab += lipgloss.NewStyle().Foreground(colorWarning).Render(glyphDirty())
		}
		tabs = append(tabs, tab)
	}
	left := " " + name + "  " + strings.Join(tabs, " ")

	host := styleMuted().Render(m.cfg.Site.BaseURL)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(host) - 1
	if gap < 2 {
		return left
	}
	return left + strings.Repeat(" ", gap) + host
}

func (m appModel) renderSidebar(w, h int) string {
	sess := m.session()
	items := sess.Items()
	sel := m.selIdx[m.curApp]
	if sel >= len(items) {
		sel = len(items) - 1
	}

	labelW := w - 6
	if labelW < 4 {
		labelW = 4
	}

	lines := make([]string, 0, len(items)+4)
	lines = append(lines, " "+styleMuted().Render(sess.Spec().Title), "")

	for i, it := range items {
		cursor := " "
		if m.focus == focusSidebar && i == sel {
			cursor = glyphCursor()
		}
		open := " "
		if m.isActive(it.Spec.ID) {
			open = glyphActive()
		}
		label := it.Spec.Label
		if r := []rune(label); len(r) > labelW {
			label = string(r[:labelW-1]) + "…"
		}
		if pad := labelW - lipgloss.Width(label); pad > 0 {
			label += strings.Repeat(" ", pad)
		}
		marker := " "
		markerStyled := marker
		switch {
		case it.Saving:
			marker = glyphSaving()
			markerStyled = styleMuted().Render(marker)
		case it.Dirty:
			marker = glyphDirty()
			markerStyled = lipgloss.NewStyle().Foreground(colorWarning).Render(marker)
		}

		if i == sel {
			row := fmt.Sprintf("%s %s %s %s", cursor, open, label, marker)
			lines = append(lines, lipgloss.NewStyle().
				Background(colorSelectedBg).
				Foreground(colorSelectedFg).
				Bold(true).
				Render(row))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %s", cursor, open, label, markerStyled))
	}

	lines = append(lines, "")
	if n := sess.DirtyCount(); n > 0 {
		lines = append(lines, " "+lipgloss.NewStyle().Foreground(colorWarning).Render(plural(n, "unsaved item")))
	} else {
		lines = append(lines, " "+styleMuted().Render("all saved"))
	}

	return strings.Join(lines, "\n")
}

func (m appModel) renderEditors(w, h int) string {
	panes := m.visiblePanes()
	if len(panes) == 0 {
		hint := styleMuted().Render("space opens an editor for the selected item")
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, hint)
	}
	rendered := make([]string, 0, 2)
	for i, id := range panes {
		pw := m.paneWidth(w, len(panes), i)
		rendered = append(rendered, m.renderPane(id, pw, h))
	}
	if len(rendered) == 1 {
		return rendered[0]
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered[0], " ", rendered[1])
}

func (m appModel) renderPane(id string, w, h int) string {
	it, ok := m.session().Item(id)
	host := m.pool.Get(m.hostKey(id))
	if !ok || host == nil {
		return normalizePane("", w, h)
	}
	focused := m.focusedID == id

	title := lipgloss.NewStyle().Bold(focused).Render(it.Spec.Label)
	switch {
	case it.Saving:
		title += styleMuted().Render(" saving " + glyphSaving())
	case it.Dirty:
		title += lipgloss.NewStyle().Foreground(colorWarning).Render(" " + glyphDirty())
	}

	borderColor := colorPaneBorder
	if focused {
		borderColor = colorSelectedBorder
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(w - 2).
		Height(h - 2).
		Render(title + "\n" + host.View())
}

func (m appModel) renderStatusBar() string {
	sess := m.session()

	var left string
	if n := sess.DirtyCount(); n > 0 {
		left = lipgloss.NewStyle().Foreground(colorWarning).Render(plural(n, "unsaved item"))
	} else {
		left = styleMuted().Render("all saved")
	}
	for _, it := range sess.Items() {
		if it.Saving {
			left += styleMuted().Render("  saving " + glyphSaving())
			break
		}
	}

	var right string
	if m.focus == focusEditor {
		pos := ""
		if h := m.pool.Get(m.hostKey(m.focusedID)); h != nil {
			pos = fmt.Sprintf("Ln %d/%d   ", h.CursorLine(), h.LineCount())
		}
		right = styleMuted().Render(pos + "esc sidebar   ctrl+s save   ctrl+a save all")
	} else {
		hints := "space open   enter edit   ctrl+s save   u revert   e $EDITOR   ? help   q quit"
		right = styleMuted().Render(hints)
	}

	if m.debugEnabled {
		right += styleMuted().Render(fmt.Sprintf("   [seq %d pool %d/%d]", m.loadSeq, m.pool.Len(), m.pool.Max()))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 2 {
		return " " + left
	}
	return " " + left + strings.Repeat(" ", gap) + right
}

func (m appModel) renderModal() string {
	switch m.modal {
	case modalConfirmRevert:
		label := m.modalItemID
		if it, ok := m.session().Item(m.modalItemID); ok {
			label = it.Spec.Label
		}
		body := fmt.Sprintf("Throw away unsaved edits to %s and restore the last saved version?", label)
		return renderConfirmModal(m.width, "Revert item", body, "Revert", "Keep editing", m.modalFocus)

	case modalConfirmDiscard:
		body := fmt.Sprintf("Throw away unsaved edits to %s of %s?",
			plural(m.session().DirtyCount(), "item"), m.session().Spec().Title)
		return renderConfirmModal(m.width, "Discard all", body, "Discard", "Keep editing", m.modalFocus)

	case modalConfirmQuit:
		var parts []string
		for _, id := range m.appOrder {
			if n := m.sessions[id].DirtyCount(); n > 0 {
				parts = append(parts, plural(n, strings.ToUpper(string(id))+" item"))
			}
		}
		body := "Unsaved edits: " + strings.Join(parts, ", ") +
			". They stay on disk and come back next start. Quit anyway?"
		return renderConfirmModal(m.width, "Quit", body, "Quit", "Stay", m.modalFocus)
	}
	return ""
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
