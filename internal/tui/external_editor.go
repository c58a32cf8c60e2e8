package tui

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/toast"
)

type externalEditorDoneMsg struct {
	err error
}

func externalEditorName() string {
	if v := strings.TrimSpace(os.Getenv("VISUAL")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("EDITOR")); v != "" {
		return v
	}
	return "vi"
}

// openExternalEditor hands the item's current content to $VISUAL/$EDITOR via
// a temp file. The TUI suspends while the editor runs (tea.ExecProcess).
func (m *appModel) openExternalEditor(itemID string) (tea.Cmd, error) {
	sess := m.session()
	it, ok := sess.Item(itemID)
	if !ok {
		return nil, fmt.Errorf("unknown item %q", itemID)
	}

	editor := externalEditorName()
	args := splitShellWords(editor)
	if len(args) == 0 {
		args = []string{"vi"}
	}

	f, err := os.CreateTemp("", "expertedit-"+string(m.curApp)+"-"+itemID+"-*."+string(it.Spec.Language))
	if err != nil {
		return nil, err
	}
	path := f.Name()

	if _, err := f.WriteString(it.Content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	_ = f.Close()

	m.externalEditorPath = path
	m.externalEditorItem = itemID
	m.externalEditorBefore = it.Content

	cmd := exec.Command(args[0], append(args[1:], path)...)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return externalEditorDoneMsg{err: err}
	}), nil
}

// applyExternalEditorResult folds the edited file back into the session (and
// the open editor host, if any), exactly like a typed edit would.
func (m *appModel) applyExternalEditorResult(msg externalEditorDoneMsg) {
	path := m.externalEditorPath
	itemID := m.externalEditorItem
	before := m.externalEditorBefore

	m.externalEditorPath = ""
	m.externalEditorItem = ""
	m.externalEditorBefore = ""
	defer func() { _ = os.Remove(path) }()

	if strings.TrimSpace(path) == "" {
		return
	}

	if msg.err != nil {
		m.notify(toast.KindError, "Editor failed: "+msg.err.Error())
		return
	}

	b, err := os.ReadFile(path)
	if err != nil {
		m.notify(toast.KindError, "Editor read failed: "+err.Error())
		return
	}

	after := string(b)
	sess := m.session()
	sess.SetContent(itemID, after)
	if h := m.pool.Get(m.hostKey(itemID)); h != nil {
		h.SetValue(after)
	}

	if after == before {
		m.notify(toast.KindInfo, fmt.Sprintf("No changes from %s", externalEditorName()))
		return
	}
	m.notify(toast.KindInfo, fmt.Sprintf("Updated from %s (ctrl+s to save)", externalEditorName()))
}
