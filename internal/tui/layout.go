package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// normalizePane forces s to be exactly width columns wide (ANSI-aware) and height
// lines tall. This makes split-pane rendering stable when using lipgloss.JoinHorizontal.
func normalizePane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	lines := strings.Split(s, "\n")

	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}

	for i := range lines {
		ln := lines[i]
		// Fast path: avoid computing StringWidth on extremely long lines (can be slow).
		// If the raw string is huge, it's almost certainly visually wider than the pane;
		// cut it early so subsequent width computations are bounded.
		if width > 0 && len(ln) > 8192 {
			if width == 1 {
				ln = xansi.Cut(ln, 0, 1)
			} else {
				ln = xansi.Cut(ln, 0, width-1) + "…"
			}
		}

		w := xansi.StringWidth(ln)

		if w > width {
			if width <= 0 {
				ln = ""
			} else if width == 1 {
				ln = xansi.Cut(ln, 0, 1)
			} else {
				ln = xansi.Cut(ln, 0, width-1) + "…"
			}
			w = xansi.StringWidth(ln)
		}
		if w < width {
			ln = ln + strings.Repeat(" ", width-w)
		}
		lines[i] = ln
	}

	return strings.Join(lines, "\n")
}

// overlayTopRight merges overlay into the top-right corner of base, keeping
// rightPad columns of base visible at the right edge. base lines must already
// be normalized to a uniform width (see normalizePane); overlay lines may be
// ragged.
func overlayTopRight(base, overlay string, rightPad int) string {
	if strings.TrimSpace(overlay) == "" {
		return base
	}
	baseLines := strings.Split(base, "\n")
	ovLines := strings.Split(overlay, "\n")
	for i, ov := range ovLines {
		if i >= len(baseLines) {
			break
		}
		bw := xansi.StringWidth(baseLines[i])
		ow := xansi.StringWidth(ov)
		keep := bw - ow - rightPad
		if keep < 0 {
			// Overlay wider than the pane: let it win the whole line.
			baseLines[i] = xansi.Cut(ov, 0, bw)
			continue
		}
		pad := ""
		if rightPad > 0 {
			pad = strings.Repeat(" ", rightPad)
		}
		baseLines[i] = xansi.Cut(baseLines[i], 0, keep) + ov + pad
	}
	return strings.Join(baseLines, "\n")
}

// overlayCenter places overlay in the middle of base (both axes). Used for
// modal boxes over a dimmed background.
func overlayCenter(base, overlay string) string {
	if strings.TrimSpace(overlay) == "" {
		return base
	}
	baseLines := strings.Split(base, "\n")
	ovLines := strings.Split(overlay, "\n")

	top := (len(baseLines) - len(ovLines)) / 2
	if top < 0 {
		top = 0
	}
	for i, ov := range ovLines {
		bi := top + i
		if bi >= len(baseLines) {
			break
		}
		bw := xansi.StringWidth(baseLines[bi])
		ow := xansi.StringWidth(ov)
		left := (bw - ow) / 2
		if left < 0 {
			baseLines[bi] = xansi.Cut(ov, 0, bw)
			continue
		}
		right := bw - left - ow
		baseLines[bi] = xansi.Cut(baseLines[bi], 0, left) + ov + xansi.Cut(baseLines[bi], bw-right, bw)
	}
	return strings.Join(baseLines, "\n")
}
