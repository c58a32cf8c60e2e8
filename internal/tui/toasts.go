package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/toast"
)

const toastBodyWidth = 36

func toastKindColor(k toast.Kind) lipgloss.TerminalColor {
	switch k {
	case toast.KindSuccess:
		return colorSuccess
	case toast.KindWarning:
		return colorWarning
	case toast.KindError:
		return colorError
	default:
		return colorInfo
	}
}

// renderToast renders a single notification card. Records in their enter or
// exit phase are dimmed so the stack visually animates even though cells are
// all the motion a terminal gives us.
func renderToast(r toast.Record) string {
	c := toastKindColor(r.Kind)
	st := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(c).
		Foreground(colorSurfaceFg).
		Padding(0, 1).
		Width(toastBodyWidth)
	if r.State == toast.StateRendering || r.State == toast.StateDismissing {
		st = st.Faint(true)
	}

	marker := lipgloss.NewStyle().Foreground(c).Bold(true).Render(toastMarker(r.Kind))
	return st.Render(marker + " " + r.Text)
}

func toastMarker(k toast.Kind) string {
	if glyphs() == glyphSetASCII {
		switch k {
		case toast.KindSuccess:
			return "ok"
		case toast.KindWarning:
			return "!"
		case toast.KindError:
			return "x"
		default:
			return "i"
		}
	}
	switch k {
	case toast.KindSuccess:
		return "✓"
	case toast.KindWarning:
		return "⚠"
	case toast.KindError:
		return "✗"
	default:
		return "ℹ"
	}
}

// renderToastStack renders the visible records top-down plus the dismiss-all
// hint and a queued counter when notifications are waiting for a slot.
func renderToastStack(records []toast.Record, queued int, showDismissAll bool) string {
	if len(records) == 0 {
		return ""
	}
	parts := make([]string, 0, len(records)+1)
	for _, r := range records {
		parts = append(parts, renderToast(r))
	}

	var hints []string
	if queued > 0 {
		hints = append(hints, "+"+strconv.Itoa(queued)+" queued")
	}
	if showDismissAll {
		hints = append(hints, "x dismiss  X dismiss all")
	} else if len(records) > 0 {
		hints = append(hints, "x dismiss")
	}
	if len(hints) > 0 {
		hint := styleMuted().Render(strings.Join(hints, "   "))
		parts = append(parts, lipgloss.PlaceHorizontal(toastBodyWidth+4, lipgloss.Right, hint))
	}
	return lipgloss.JoinVertical(lipgloss.Right, parts...)
}
