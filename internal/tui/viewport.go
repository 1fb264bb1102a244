package tui

import "math"

// smoothing is the fraction of the remaining delta covered per
// animation tick. Exponential decay, not linear: big jumps settle
// fast, the tail eases out.
const smoothing = 0.15

// panEpsilon and zoomEpsilon bound the residual deltas below which the
// viewport snaps to its targets and stops animating.
const (
	panEpsilon  = 0.05
	zoomEpsilon = 0.001
)

// Viewport holds the pan/zoom state of the canvas: the values drawn
// this frame and the targets the smoothing loop converges toward.
type Viewport struct {
	PanX float64
	PanY float64
	Zoom float64

	TargetPanX float64
	TargetPanY float64
	TargetZoom float64

	ZoomMin float64
	ZoomMax float64
}

// NewViewport constructs a viewport at identity with the given zoom
// bounds.
func NewViewport(zoomMin, zoomMax float64) Viewport {
	return Viewport{
		Zoom:       1,
		TargetZoom: 1,
		ZoomMin:    zoomMin,
		ZoomMax:    zoomMax,
	}
}

// Animating reports whether current values still differ from targets.
func (v *Viewport) Animating() bool {
	return math.Abs(v.TargetPanX-v.PanX) >= panEpsilon ||
		math.Abs(v.TargetPanY-v.PanY) >= panEpsilon ||
		math.Abs(v.TargetZoom-v.Zoom) >= zoomEpsilon
}

// Step advances one smoothing tick. Returns true while more ticks are
// needed; on convergence it snaps exactly to target so no residual
// drift survives.
func (v *Viewport) Step() bool {
	v.PanX += (v.TargetPanX - v.PanX) * smoothing
	v.PanY += (v.TargetPanY - v.PanY) * smoothing
	v.Zoom += (v.TargetZoom - v.Zoom) * smoothing
	if v.Animating() {
		return true
	}
	v.PanX = v.TargetPanX
	v.PanY = v.TargetPanY
	v.Zoom = v.TargetZoom
	return false
}

// PanTargetBy shifts the pan target, leaving the smoothing loop to
// catch up.
func (v *Viewport) PanTargetBy(dx, dy float64) {
	v.TargetPanX += dx
	v.TargetPanY += dy
}

// DragBy moves current and target pan together: a held pointer tracks
// 1:1 and leaves nothing for the smoothing loop to replay after
// release.
func (v *Viewport) DragBy(dx, dy float64) {
	v.PanX += dx
	v.PanY += dy
	v.TargetPanX = v.PanX
	v.TargetPanY = v.PanY
}

// ZoomAt applies a wheel step anchored at a screen point: the world
// point under the cursor stays under the cursor after the zoom.
func (v *Viewport) ZoomAt(screenX, screenY, wheelDelta, sensitivity float64) {
	factor := math.Exp(-wheelDelta * sensitivity)
	newZoom := clampFloat(v.TargetZoom*factor, v.ZoomMin, v.ZoomMax)

	// Solve the new pan against the target transform so queued wheel
	// steps compose instead of fighting the in-flight animation.
	worldX := (screenX - v.TargetPanX) / v.TargetZoom
	worldY := (screenY - v.TargetPanY) / v.TargetZoom
	v.TargetPanX = screenX - worldX*newZoom
	v.TargetPanY = screenY - worldY*newZoom
	v.TargetZoom = newZoom
}

// ScreenToWorld maps a screen point through the current transform.
func (v *Viewport) ScreenToWorld(sx, sy float64) (float64, float64) {
	return (sx - v.PanX) / v.Zoom, (sy - v.PanY) / v.Zoom
}

// WorldToScreen maps a world point through the current transform.
func (v *Viewport) WorldToScreen(wx, wy float64) (float64, float64) {
	return wx*v.Zoom + v.PanX, wy*v.Zoom + v.PanY
}

// clampFloat bounds v to [lo, hi].
func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
