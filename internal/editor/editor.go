// Package editor wraps bubbles' textarea behind the small capability set the
// editing session consumes: value in/out, change notification, layout, and
// release. A Pool bounds how many hosts are mounted at once.
package editor

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
)

// Options configures a Host at construction.
type Options struct {
	Language model.Language
	Width    int
	Height   int

	// OnChange fires synchronously from Update whenever a user edit changed
	// the buffer, with the new value. Programmatic SetValue never fires it.
	OnChange func(value string)
}

// Host is one mounted editing surface. It distinguishes user edits from
// programmatic value swaps so change listeners only hear real typing, and it
// is never the source of truth: every change flows out through OnChange
// immediately.
type Host struct {
	ta       textarea.Model
	language model.Language
	onChange func(string)
	last     string
}

// New returns a Host seeded with initial content.
func New(initial string, opts Options) *Host {
	ta := textarea.New()
	// Stylesheets blow through the bubbles defaults (small CharLimit, 99-row
	// MaxHeight, 500-col MaxWidth); uncap all three.
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.MaxWidth = 0
	ta.ShowLineNumbers = true
	if opts.Width > 0 {
		ta.SetWidth(opts.Width)
	}
	if opts.Height > 0 {
		ta.SetHeight(opts.Height)
	}
	ta.SetValue(initial)
	return &Host{
		ta:       ta,
		language: opts.Language,
		onChange: opts.OnChange,
		last:     ta.Value(),
	}
}

// Update forwards msg to the textarea and fires OnChange when the buffer
// changed as a result.
func (h *Host) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	h.ta, cmd = h.ta.Update(msg)
	if v := h.ta.Value(); v != h.last {
		h.last = v
		if h.onChange != nil {
			h.onChange(v)
		}
	}
	return cmd
}

func (h *Host) View() string { return h.ta.View() }

// Value returns the current buffer.
func (h *Host) Value() string { return h.ta.Value() }

// SetValue replaces the buffer without firing OnChange. Loads, reverts, and
// external-editor round trips go through here; the caller already knows the
// new value.
func (h *Host) SetValue(s string) {
	h.ta.SetValue(s)
	h.last = h.ta.Value()
}

// SetSize resizes the visible editing area.
func (h *Host) SetSize(width, height int) {
	if width > 0 {
		h.ta.SetWidth(width)
	}
	if height > 0 {
		h.ta.SetHeight(height)
	}
}

func (h *Host) Focus() tea.Cmd { return h.ta.Focus() }
func (h *Host) Blur()          { h.ta.Blur() }
func (h *Host) Focused() bool  { return h.ta.Focused() }

// Language returns the syntax hint the host was built with.
func (h *Host) Language() model.Language { return h.language }

// CursorLine returns the 1-based cursor row, for the status bar.
func (h *Host) CursorLine() int { return h.ta.Line() + 1 }

// LineCount returns how many lines the buffer holds.
func (h *Host) LineCount() int { return h.ta.LineCount() }

// Release detaches the host: the change listener is dropped and the surface
// blurred. A released host can still be read but no longer reports edits.
func (h *Host) Release() {
	h.ta.Blur()
	h.onChange = nil
}
