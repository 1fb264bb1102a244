// Package layout assigns world positions to every task of a tree.
//
// The layout is a recursive vertical partition: each node receives a
// slice of the normalized range [0,1] and splits it among its subtasks
// proportionally to their leaf counts. Horizontal position is measured
// from the deepest leaf of a node's own subtree, not from the root, so
// the most specific tasks line up in a single column on the left no
// matter which branch they hang from; the root sits on the right and
// connectors run right-to-left.
package layout

import (
	"math"

	"github.com/hylla/grenverk/internal/domain"
)

// spanEpsilon keeps padded child spans strictly positive.
const spanEpsilon = 1e-6

// Metrics holds the pixel-space tuning constants of a layout pass.
type Metrics struct {
	NodeWidth       float64
	NodeHeight      float64
	VerticalSpacing float64
	Margin          float64
	GapMin          float64
	GapMax          float64
}

// DefaultMetrics returns the standard node geometry, sized in terminal
// cells.
func DefaultMetrics() Metrics {
	return Metrics{
		NodeWidth:       24,
		NodeHeight:      3,
		VerticalSpacing: 1,
		Margin:          1,
		GapMin:          8,
		GapMax:          40,
	}
}

// Point is a world-space position.
type Point struct {
	X float64
	Y float64
}

// Result is the output of one layout pass.
type Result struct {
	Positions map[string]Point
	Height    float64
	LevelGap  float64
	Depth     int
}

// Position returns the computed position for a task id.
func (r Result) Position(id string) (Point, bool) {
	p, ok := r.Positions[id]
	return p, ok
}

// LevelGap computes the horizontal distance between depth columns for
// the given viewport width. Deep trees compress toward GapMin so the
// root stays reachable; shallow trees widen, capped at GapMax.
func LevelGap(viewportWidth float64, depth int, m Metrics) float64 {
	usable := math.Max(viewportWidth*0.9-m.NodeWidth, m.GapMin)
	levels := math.Max(float64(depth), 1)
	return clamp(usable/levels, m.GapMin, m.GapMax)
}

// Compute runs one full layout pass over the tree.
func Compute(root *domain.Task, m Metrics, viewportWidth float64) Result {
	counts := NewCounts()
	depth := root.Depth()
	res := Result{
		Positions: map[string]Point{},
		Height:    float64(counts.Leaves(root)) * (m.NodeHeight + m.VerticalSpacing),
		LevelGap:  LevelGap(viewportWidth, depth, m),
		Depth:     depth,
	}
	place(root, counts, m, &res, 0, 1)
	return res
}

// place assigns node's position from its vertical range and recurses
// into its subtasks with leaf-weighted, symmetrically padded slices.
func place(node *domain.Task, counts *Counts, m Metrics, res *Result, start, end float64) {
	res.Positions[node.ID] = Point{
		X: float64(node.Depth()) * res.LevelGap,
		Y: res.Height * (start + end) / 2,
	}
	if node.IsLeaf() {
		return
	}

	weights := make([]int, len(node.Subtasks))
	for i, child := range node.Subtasks {
		weights[i] = counts.Leaves(child)
	}
	for i, child := range node.Subtasks {
		s := split(start, end, weights, i)
		s = pad(s, m.Margin/math.Max(res.Height, 1))
		place(child, counts, m, res, s.start, s.end)
	}
}

// span is one child's slice of its parent's vertical range.
type span struct {
	start float64
	end   float64
}

// split returns child i's unpadded slice of [start,end], partitioned
// proportionally to the leaf weights in declaration order. The slices
// of all children tile the parent range exactly.
func split(start, end float64, weights []int, i int) span {
	total := 0
	for _, w := range weights {
		total += w
	}
	width := end - start
	before := 0
	for _, w := range weights[:i] {
		before += w
	}
	s := start + width*float64(before)/float64(total)
	return span{start: s, end: s + width*float64(weights[i])/float64(total)}
}

// pad shrinks a span symmetrically by the given amount of range units,
// clamped below half the span so the result stays strictly positive.
func pad(s span, amount float64) span {
	if limit := (s.end-s.start)/2 - spanEpsilon; amount > limit {
		amount = limit
	}
	if amount < 0 {
		amount = 0
	}
	return span{start: s.start + amount, end: s.end - amount}
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
