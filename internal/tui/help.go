package tui

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const helpMarkdown = `# expertedit

Edits the custom site CSS/HTML of a CXone Expert install. Edits live locally
until saved; closing the editor keeps unsaved work for the next session.

## Keys

| Key | Action |
| --- | ------ |
| tab | Switch between the CSS and HTML apps |
| j / k | Select item in the sidebar |
| space | Open/close an editor for the selected item |
| enter | Focus the selected item's editor |
| esc | Leave the editor, back to the sidebar |
| ctrl+s | Save the current item |
| ctrl+a | Save all items of the app |
| u | Revert the selected item to its baseline |
| D | Discard all unsaved edits of the app |
| R | Reload from the server (fetches a fresh session token) |
| e | Edit the selected item in $VISUAL / $EDITOR |
| x / X | Dismiss one / all notifications |
| ? | Toggle this help |
| q | Quit (asks when edits are unsaved) |

## Saving

A save transmits every field of the form; fields you did not target are sent
with their last-known server baseline so another editor's work is not
overwritten blindly. Keep edits small and save often.
`

var (
	helpRendererMu sync.Mutex
	// Cache renderers by wrap width + style. Creating a renderer with
	// WithAutoStyle can trigger terminal capability/background queries that
	// may block on some terminals. Fixed style + caching keeps the overlay
	// instant.
	helpRenderers = map[string]*glamour.TermRenderer{}
)

func renderHelp(width int) string {
	w := width - 8
	if w > 78 {
		w = 78
	}
	if w < 20 {
		w = 20
	}

	style := markdownStyle()
	key := style + ":" + strconv.Itoa(w)

	helpRendererMu.Lock()
	r := helpRenderers[key]
	if r == nil {
		rr, err := glamour.NewTermRenderer(
			// Avoid WithAutoStyle() here: it can block waiting on terminal queries.
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(w),
		)
		if err != nil {
			helpRendererMu.Unlock()
			return helpMarkdown
		}
		helpRenderers[key] = rr
		r = rr
	}
	helpRendererMu.Unlock()

	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return strings.TrimRight(out, "\n")
}

// markdownStyle keeps glamour's palette aligned with the TUI theme
// preference. Without this, help text can render with a dark palette even
// when the TUI is forced to light mode.
func markdownStyle() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("EXPERTEDIT_TUI_THEME"))) {
	case "light":
		return "light"
	case "dark":
		return "dark"
	}
	if v := strings.TrimSpace(os.Getenv("EXPERTEDIT_TUI_DARKBG")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			if b {
				return "dark"
			}
			return "light"
		}
	}
	// Heuristic: COLORFGBG is often "fg;bg" (e.g. "15;0" => dark bg).
	// Prefer this over terminal queries to avoid blocking.
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			if bg >= 7 {
				return "light"
			}
			return "dark"
		}
	}
	// Final fallback: follow Lip Gloss's current background detection.
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}
