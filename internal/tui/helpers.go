package tui

import "github.com/mattn/go-runewidth"

// truncate shortens s to at most max terminal cells
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	return runewidth.Truncate(s, max, "…")
}

// pad truncates or right-pads s to exactly width cells
func pad(s string, width int) string {
	return runewidth.FillRight(truncate(s, width), width)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// visibleRows is how many table rows fit under the header and above the footer
func (m Model) visibleRows() int {
	// header panel, table title and column header, footer lines
	reserved := 11
	if len(m.recent) > 0 {
		reserved += len(m.recent) + 3
	}
	return max(m.height-reserved, 3)
}

// window returns the slice bounds of rows to draw so the cursor stays visible
func (m Model) window() (start, end int) {
	n := m.visibleRows()
	if len(m.rows) <= n {
		return 0, len(m.rows)
	}
	start = clamp(m.cursor-n/2, 0, len(m.rows)-n)
	return start, start + n
}
