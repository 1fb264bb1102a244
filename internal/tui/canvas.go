package tui

import (
	"errors"
	"strings"

	"charm.land/lipgloss/v2"
)

// cellStyle indexes the style palette applied at render time.
type cellStyle uint8

// Palette slots for canvas cells.
const (
	styleBlank cellStyle = iota
	styleLine
	styleBorder
	styleBorderHover
	styleLabel
	styleLabelDone
	styleLabelCancelled
	styleProgress
	styleActionRow
	styleActionHover
	styleAdd
)

// cellSurface is the immediate-mode drawing surface: a rune grid with
// one palette slot per cell, rebuilt from scratch every frame. The
// engine only ever issues the primitives below; anything that can
// draw boxes, curves, fills, and clipped text could replace it.
type cellSurface struct {
	w     int
	h     int
	runes []rune
	marks []cellStyle
}

// errNoSurface reports an unusable drawing area at startup.
var errNoSurface = errors.New("drawing surface has no usable area")

// newCellSurface allocates a cleared surface.
func newCellSurface(w, h int) (*cellSurface, error) {
	if w <= 0 || h <= 0 {
		return nil, errNoSurface
	}
	s := &cellSurface{
		w:     w,
		h:     h,
		runes: make([]rune, w*h),
		marks: make([]cellStyle, w*h),
	}
	for i := range s.runes {
		s.runes[i] = ' '
	}
	return s, nil
}

// set places one rune. Out-of-bounds writes are clipped.
func (s *cellSurface) set(x, y int, r rune, mark cellStyle) {
	if x < 0 || x >= s.w || y < 0 || y >= s.h {
		return
	}
	i := y*s.w + x
	s.runes[i] = r
	s.marks[i] = mark
}

// restyle changes a cell's palette slot without touching its rune.
func (s *cellSurface) restyle(x, y int, mark cellStyle) {
	if x < 0 || x >= s.w || y < 0 || y >= s.h {
		return
	}
	s.marks[y*s.w+x] = mark
}

// drawBox strokes a rounded-corner rectangle.
func (s *cellSurface) drawBox(x, y, w, h int, mark cellStyle) {
	if w < 2 || h < 1 {
		return
	}
	if h == 1 {
		s.set(x, y, '[', mark)
		for i := 1; i < w-1; i++ {
			s.set(x+i, y, ' ', mark)
		}
		s.set(x+w-1, y, ']', mark)
		return
	}
	s.set(x, y, '╭', mark)
	s.set(x+w-1, y, '╮', mark)
	s.set(x, y+h-1, '╰', mark)
	s.set(x+w-1, y+h-1, '╯', mark)
	for i := 1; i < w-1; i++ {
		s.set(x+i, y, '─', mark)
		s.set(x+i, y+h-1, '─', mark)
	}
	for j := 1; j < h-1; j++ {
		s.set(x, y+j, '│', mark)
		s.set(x+w-1, y+j, '│', mark)
		for i := 1; i < w-1; i++ {
			s.set(x+i, y+j, ' ', mark)
		}
	}
}

// fillRow restyles w cells starting at (x, y), used for the
// completion-progress overlay on a parent node.
func (s *cellSurface) fillRow(x, y, w int, mark cellStyle) {
	for i := 0; i < w; i++ {
		s.restyle(x+i, y, mark)
	}
}

// drawText writes a clipped single-line string.
func (s *cellSurface) drawText(x, y, maxW int, text string, mark cellStyle) {
	if maxW <= 0 {
		return
	}
	runes := []rune(text)
	if len(runes) > maxW {
		if maxW > 1 {
			runes = append(runes[:maxW-1], '…')
		} else {
			runes = runes[:maxW]
		}
	}
	for i, r := range runes {
		s.set(x+i, y, r, mark)
	}
}

// drawBezier flattens a cubic bezier into cell plots. Connectors run
// from a child's right edge to its parent, so the control points pull
// the curve horizontal at both ends.
func (s *cellSurface) drawBezier(x0, y0, x3, y3 float64, mark cellStyle) {
	midX := (x0 + x3) / 2
	x1, y1 := midX, y0
	x2, y2 := midX, y3

	steps := int(absFloat(x3-x0) + absFloat(y3-y0))
	if steps < 8 {
		steps = 8
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		u := 1 - t
		px := u*u*u*x0 + 3*u*u*t*x1 + 3*u*t*t*x2 + t*t*t*x3
		py := u*u*u*y0 + 3*u*u*t*y1 + 3*u*t*t*y2 + t*t*t*y3
		s.plotSoft(int(px+0.5), int(py+0.5), mark)
	}
}

// plotSoft writes a connector dot without clobbering box or text
// cells already drawn this frame.
func (s *cellSurface) plotSoft(x, y int, mark cellStyle) {
	if x < 0 || x >= s.w || y < 0 || y >= s.h {
		return
	}
	i := y*s.w + x
	if s.marks[i] != styleBlank {
		return
	}
	s.runes[i] = '·'
	s.marks[i] = mark
}

// Render resolves the grid against a palette into styled terminal
// lines, batching runs of equal style.
func (s *cellSurface) Render(palette map[cellStyle]lipgloss.Style) string {
	var b strings.Builder
	for y := 0; y < s.h; y++ {
		var run []rune
		runMark := styleBlank
		flush := func() {
			if len(run) == 0 {
				return
			}
			text := string(run)
			if style, ok := palette[runMark]; ok && runMark != styleBlank {
				text = style.Render(text)
			}
			b.WriteString(text)
			run = run[:0]
		}
		for x := 0; x < s.w; x++ {
			i := y*s.w + x
			if s.marks[i] != runMark {
				flush()
				runMark = s.marks[i]
			}
			run = append(run, s.runes[i])
		}
		flush()
		if y < s.h-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// absFloat returns |v|.
func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
