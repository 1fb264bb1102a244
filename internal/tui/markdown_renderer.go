package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// minHelpWrap is the narrowest wrap the help overlay renders at.
const minHelpWrap = 24

// markdownRenderer lazily builds the glamour renderer behind the help
// overlay and rebuilds it whenever the overlay wrap width changes.
type markdownRenderer struct {
	wrap int
	tr   *glamour.TermRenderer
}

// render styles a markdown document for the overlay. Any renderer
// failure falls back to the raw markdown so the key reference stays
// readable.
func (r *markdownRenderer) render(doc string, width int) string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return ""
	}
	wrap := max(width, minHelpWrap)
	if r.tr == nil || r.wrap != wrap {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(styles.DarkStyle),
			glamour.WithWordWrap(wrap),
			glamour.WithEmoji(),
		)
		if err != nil {
			return doc
		}
		r.tr = tr
		r.wrap = wrap
	}
	out, err := r.tr.Render(doc)
	if err != nil {
		return doc
	}
	return strings.TrimRight(out, "\n")
}
