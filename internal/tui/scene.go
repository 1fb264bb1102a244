package tui

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/hylla/grenverk/internal/domain"
	"github.com/hylla/grenverk/internal/layout"
)

// scene is the product of one render pass: the drawn canvas, the
// hit-test index for the frame, and the display positions that a
// structural edit would capture for tweening.
type scene struct {
	content   string
	boxes     []hitbox
	layout    layout.Result
	displayed map[string]layout.Point
}

// box returns the frame's hitbox for a task id.
func (sc *scene) box(id string) (hitbox, bool) {
	for _, b := range sc.boxes {
		if b.task.ID == id {
			return b, true
		}
	}
	return hitbox{}, false
}

// rebuildScene recomputes layout, redraws the canvas, and replaces the
// hit-test index. One call is the unit of consistency: stale hitboxes
// never outlive the pass that built them.
func (m *Model) rebuildScene() error {
	w, h := m.canvasSize()
	surface, err := newCellSurface(w, h)
	if err != nil {
		return err
	}

	res := layout.Compute(m.tree.Root, m.metrics, float64(w))
	displayed := make(map[string]layout.Point, len(res.Positions))
	boxes := make([]hitbox, 0, len(res.Positions))

	type entry struct {
		task   *domain.Task
		parent *domain.Task
	}
	var order []entry
	var collect func(task, parent *domain.Task)
	collect = func(task, parent *domain.Task) {
		order = append(order, entry{task: task, parent: parent})
		for _, child := range task.Subtasks {
			collect(child, task)
		}
	}
	collect(m.tree.Root, nil)

	for _, e := range order {
		target, _ := res.Position(e.task.ID)
		displayed[e.task.ID] = m.anim.Displayed(e.task.ID, target)
	}

	// Connectors first so nodes draw over them.
	for _, e := range order {
		if e.parent == nil {
			continue
		}
		child := displayed[e.task.ID]
		parent := displayed[e.parent.ID]
		cx, cy := m.view.WorldToScreen(child.X, child.Y)
		px, py := m.view.WorldToScreen(parent.X, parent.Y)
		surface.drawBezier(cx+float64(m.nodeBoxWidth()), cy, px, py, styleLine)
	}

	for _, e := range order {
		p := displayed[e.task.ID]
		sx, sy := m.view.WorldToScreen(p.X, p.Y)
		bw := m.nodeBoxWidth()
		bh := m.nodeBoxHeight()
		box := hitbox{
			task:   e.task,
			parent: e.parent,
			x:      sx,
			y:      sy - float64(bh)/2,
			w:      float64(bw),
			h:      float64(bh),
			addX:   sx - 4,
			addY:   sy,
			addR:   2,
		}
		boxes = append(boxes, box)
		m.drawNode(surface, box)
	}

	m.scene = scene{
		content:   surface.Render(m.palette()),
		boxes:     boxes,
		layout:    res,
		displayed: displayed,
	}
	return nil
}

// nodeBoxWidth returns the zoom-scaled node width in cells.
func (m *Model) nodeBoxWidth() int {
	w := int(m.metrics.NodeWidth*m.view.Zoom + 0.5)
	if w < 6 {
		w = 6
	}
	return w
}

// nodeBoxHeight returns the zoom-scaled node height in cells.
func (m *Model) nodeBoxHeight() int {
	h := int(m.metrics.NodeHeight*m.view.Zoom + 0.5)
	if h < 1 {
		h = 1
	}
	return h
}

// drawNode renders one node box, its label or action row, its
// completion-progress fill, and the floating add affordance.
func (m *Model) drawNode(surface *cellSurface, box hitbox) {
	x := int(box.x + 0.5)
	y := int(box.y + 0.5)
	bw := int(box.w)
	bh := int(box.h)

	state := m.tree.States.Get(box.task.ID)
	hovered := m.hoverID == box.task.ID

	borderMark := styleBorder
	if hovered {
		borderMark = styleBorderHover
	}
	surface.drawBox(x, y, bw, bh, borderMark)

	labelMark := styleLabel
	prefix := ""
	switch state {
	case domain.StateCompleted:
		labelMark = styleLabelDone
		prefix = "✓ "
	case domain.StateCancelled:
		labelMark = styleLabelCancelled
		prefix = "✗ "
	}

	innerX := x + 1
	innerW := bw - 2
	labelY := y + bh/2

	if hovered && box.parent != nil && m.editingID == "" {
		// The whole node becomes the action row while hovered.
		m.drawActionRow(surface, box, labelY)
	} else {
		label := box.task.Label
		if label == "" {
			label = "(untitled)"
		}
		surface.drawText(innerX, labelY, innerW, prefix+label, labelMark)
	}

	// Completion-progress fill on the parent's bottom interior row.
	if ratio := m.tree.Progress(box.task); ratio > 0 && bh >= 3 {
		fillW := int(ratio*float64(innerW) + 0.5)
		surface.fillRow(innerX, y+bh-2, fillW, styleProgress)
	}

	surface.drawText(int(box.addX+0.5)-1, int(box.addY+0.5), 3, "(+)", styleAdd)
}

// drawActionRow renders equal-width action segments across the node.
func (m *Model) drawActionRow(surface *cellSurface, box hitbox, rowY int) {
	actions := availableActions(m.tree.States.Get(box.task.ID))
	segW := box.w / float64(len(actions))
	for i, action := range actions {
		mark := styleActionRow
		if m.hoverKind == hitNode && i == m.hoverAction {
			mark = styleActionHover
		}
		segX := int(box.x+float64(i)*segW) + 1
		caption := action.Label()
		width := int(segW) - 1
		if width < 1 {
			width = 1
		}
		if len(caption) > width {
			caption = caption[:width]
		}
		surface.drawText(segX, rowY, width, caption, mark)
	}
}

// palette maps canvas style slots to lipgloss styles.
func (m *Model) palette() map[cellStyle]lipgloss.Style {
	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	return map[cellStyle]lipgloss.Style{
		styleLine:           lipgloss.NewStyle().Foreground(dim),
		styleBorder:         lipgloss.NewStyle().Foreground(muted),
		styleBorderHover:    lipgloss.NewStyle().Foreground(accent),
		styleLabel:          lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		styleLabelDone:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Faint(true),
		styleLabelCancelled: lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Strikethrough(true),
		styleProgress:       lipgloss.NewStyle().Background(lipgloss.Color("24")),
		styleActionRow:      lipgloss.NewStyle().Foreground(muted),
		styleActionHover:    lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		styleAdd:            lipgloss.NewStyle().Foreground(dim),
	}
}

// describeHit formats the hovered target for the status line.
func describeHit(box hitbox, kind hitKind) string {
	switch kind {
	case hitAdd:
		return fmt.Sprintf("add subtask to %q", box.task.Label)
	case hitNode:
		return box.task.Label
	default:
		return ""
	}
}
