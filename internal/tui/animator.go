package tui

import "github.com/hylla/grenverk/internal/layout"

// Animator tweens node positions across a structural edit. Before the
// tree mutates, the current display positions are captured; afterwards
// every node eases from its captured spot to its new layout target.
// Nodes with no captured spot (newly created) appear at their target
// with no motion. Purely cosmetic, never blocks input.
type Animator struct {
	from     map[string]layout.Point
	elapsed  float64
	duration float64
}

// Capture records the pre-edit display positions and arms the tween.
func (a *Animator) Capture(positions map[string]layout.Point, duration float64) {
	from := make(map[string]layout.Point, len(positions))
	for id, p := range positions {
		from[id] = p
	}
	a.from = from
	a.elapsed = 0
	a.duration = duration
}

// Active reports whether a tween is in flight.
func (a *Animator) Active() bool {
	return a.from != nil
}

// Advance adds dt seconds of progress. Returns true while the tween
// still runs; at the end all animation state is dropped (terminal).
func (a *Animator) Advance(dt float64) bool {
	if a.from == nil {
		return false
	}
	a.elapsed += dt
	if a.elapsed >= a.duration {
		a.from = nil
		a.elapsed = 0
		a.duration = 0
		return false
	}
	return true
}

// Displayed returns the drawn position for a node given its freshly
// computed layout target.
func (a *Animator) Displayed(id string, target layout.Point) layout.Point {
	if a.from == nil {
		return target
	}
	old, ok := a.from[id]
	if !ok {
		return target
	}
	t := easeInOutCubic(a.elapsed / a.duration)
	return layout.Point{
		X: old.X + (target.X-old.X)*t,
		Y: old.Y + (target.Y-old.Y)*t,
	}
}

// easeInOutCubic maps linear progress in [0,1] onto a cubic ease.
func easeInOutCubic(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}
