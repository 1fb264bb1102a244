package tui

import (
	"math"

	"github.com/hylla/grenverk/internal/domain"
)

// Action represents a selectable node action.
type Action int

// Node actions in action-row display order.
const (
	ActionCancel Action = iota
	ActionRename
	ActionComplete
	ActionDelete
	ActionRestore
	ActionAdd
)

// Label returns the action-row caption.
func (a Action) Label() string {
	switch a {
	case ActionCancel:
		return "cancel"
	case ActionRename:
		return "rename"
	case ActionComplete:
		return "done"
	case ActionDelete:
		return "delete"
	case ActionRestore:
		return "restore"
	case ActionAdd:
		return "add"
	default:
		return "?"
	}
}

// availableActions returns the action row for a node in the given
// state. The add-child affordance is separate: it is perpetually
// available and lives in its own floating hit region.
func availableActions(state domain.NodeState) []Action {
	switch state {
	case domain.StateCompleted, domain.StateCancelled:
		return []Action{ActionDelete, ActionRestore}
	default:
		return []Action{ActionCancel, ActionRename, ActionComplete}
	}
}

// hitbox is one frame's screen-space record for a drawn node. The
// list is rebuilt on every update pass; entries from a previous frame
// must never be consulted.
type hitbox struct {
	task   *domain.Task
	parent *domain.Task

	x float64
	y float64
	w float64
	h float64

	// Floating add-child region, offset left of the node toward where
	// subtasks appear.
	addX float64
	addY float64
	addR float64
}

// contains reports whether a screen point is inside the node box.
func (h hitbox) contains(px, py float64) bool {
	return px >= h.x && px < h.x+h.w && py >= h.y && py < h.y+h.h
}

// containsAdd reports whether a screen point is inside the floating
// add-child region.
func (h hitbox) containsAdd(px, py float64) bool {
	dx := px - h.addX
	dy := py - h.addY
	return dx*dx+dy*dy <= h.addR*h.addR
}

// hitKind classifies what part of a node a pointer landed on.
type hitKind int

const (
	hitNone hitKind = iota
	hitNode
	hitAdd
)

// hitTest resolves a screen point against the hitbox list in reverse
// order, so the topmost-drawn node wins. The add region is a fallback
// tested only when the point is outside every node box.
func hitTest(boxes []hitbox, px, py float64) (hitbox, hitKind) {
	for i := len(boxes) - 1; i >= 0; i-- {
		if boxes[i].contains(px, py) {
			return boxes[i], hitNode
		}
	}
	for i := len(boxes) - 1; i >= 0; i-- {
		if boxes[i].containsAdd(px, py) {
			return boxes[i], hitAdd
		}
	}
	return hitbox{}, hitNone
}

// actionIndexAt maps a pointer x-offset inside the node box onto one
// of count equal-width action segments.
func actionIndexAt(h hitbox, px float64, count int) int {
	if count <= 0 || h.w <= 0 {
		return 0
	}
	idx := int((px - h.x) / (h.w / float64(count)))
	if idx < 0 {
		idx = 0
	}
	if idx > count-1 {
		idx = count - 1
	}
	return idx
}

// direction identifies one keyboard navigation axis move.
type direction int

const (
	dirLeft direction = iota
	dirRight
	dirUp
	dirDown
)

// nearestInDirection picks the hitbox whose center is strictly on the
// given side of from, scoring primary-axis distance plus half the
// secondary-axis distance: closest first, straightest on ties.
func nearestInDirection(boxes []hitbox, from hitbox, dir direction) (hitbox, bool) {
	fx := from.x + from.w/2
	fy := from.y + from.h/2

	best := hitbox{}
	bestScore := math.Inf(1)
	found := false
	for _, candidate := range boxes {
		if candidate.task.ID == from.task.ID {
			continue
		}
		cx := candidate.x + candidate.w/2
		cy := candidate.y + candidate.h/2
		dx := cx - fx
		dy := cy - fy

		var primary, secondary float64
		switch dir {
		case dirLeft:
			primary, secondary = -dx, math.Abs(dy)
		case dirRight:
			primary, secondary = dx, math.Abs(dy)
		case dirUp:
			primary, secondary = -dy, math.Abs(dx)
		case dirDown:
			primary, secondary = dy, math.Abs(dx)
		}
		if primary <= 0 {
			continue
		}
		score := primary + 0.5*secondary
		if score < bestScore {
			best = candidate
			bestScore = score
			found = true
		}
	}
	return best, found
}
