package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type confirmModalFocus int

const (
	confirmFocusConfirm confirmModalFocus = iota
	confirmFocusCancel
)

// modalBodyWidth returns the usable content width inside a modal box for a
// given terminal width.
func modalBodyWidth(totalW int) int {
	w := totalW - 12
	if w > 64 {
		w = 64
	}
	if w < 20 {
		w = 20
	}
	return w
}

// renderModalBox renders a titled modal surface. Borders are avoided on
// purpose: some terminals show background artifacts when nesting bordered
// components inside a surface with a background color.
func renderModalBox(totalW int, title, content string) string {
	bodyW := modalBodyWidth(totalW)

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorModalHeaderFg).
		Background(colorModalHeaderBg).
		Padding(0, 1).
		Width(bodyW + 2).
		Render(title)

	body := lipgloss.NewStyle().
		Foreground(colorModalSurfaceFg).
		Background(colorModalSurfaceBg).
		Padding(1, 1).
		Width(bodyW + 2).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

// dimBackground re-renders s as a uniform scrim so a modal on top reads as
// the only active surface. Inner ANSI styles are stripped first; otherwise a
// strongly-colored pane can override the scrim.
func dimBackground(s string) string {
	scrim := lipgloss.NewStyle().Foreground(colorScrimFg)
	lines := strings.Split(stripANSIEscapes(s), "\n")
	for i := range lines {
		if lines[i] == "" {
			continue
		}
		lines[i] = scrim.Render(lines[i])
	}
	return strings.Join(lines, "\n")
}

func renderConfirmModal(width int, title string, body string, confirmLabel string, cancelLabel string, focus confirmModalFocus) string {
	btnBase := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	btnActive := btnBase.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true)

	confirm := btnBase.Render(confirmLabel)
	cancel := btnBase.Render(cancelLabel)
	if focus == confirmFocusConfirm {
		confirm = btnActive.Render(confirmLabel)
	}
	if focus == confirmFocusCancel {
		cancel = btnActive.Render(cancelLabel)
	}

	sep := lipgloss.NewStyle().Background(colorControlBg).Render(" ")
	controls := lipgloss.JoinHorizontal(lipgloss.Top, confirm, sep, cancel)

	bodyW := modalBodyWidth(width)
	help := styleMuted().Width(bodyW).Render("tab: focus   enter: select   y/n: shortcut   esc: cancel")

	content := strings.Join([]string{
		body,
		"",
		controls,
		"",
		help,
	}, "\n")
	return renderModalBox(width, title, content)
}
