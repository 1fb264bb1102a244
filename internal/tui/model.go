package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/hylla/grenverk/internal/app"
	"github.com/hylla/grenverk/internal/domain"
	"github.com/hylla/grenverk/internal/layout"
)

// Service represents service data used by this package.
type Service interface {
	LoadSnapshot(context.Context) (app.Snapshot, error)
	SaveSnapshot(context.Context, app.Snapshot) error
	RootLabel() string
}

// tickInterval is the frame period of the smoothing and tween loops.
const tickInterval = time.Second / 60

// holdTimeout bounds how long a pan key counts as held after its last
// autorepeat. Terminals deliver no key-release events, so a key whose
// repeats stop arriving is treated as released.
const holdTimeout = 250 * time.Millisecond

// headerHeight and footerHeight frame the canvas rows inside the
// terminal window.
const (
	headerHeight = 1
	footerHeight = 2
)

// opTimeout bounds one persistence call.
const opTimeout = 5 * time.Second

// Model represents model data used by this package.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error

	status string

	help help.Model
	keys keyMap

	canvasCfg CanvasConfig
	metrics   layout.Metrics
	clock     func() time.Time
	copyText  func(string) error

	tree  *domain.Tree
	view  Viewport
	anim  Animator
	scene scene

	hoverID     string
	hoverKind   hitKind
	hoverAction int

	editingID   string
	editInitial string
	input       textinput.Model

	dragging  bool
	dragX     int
	dragY     int
	dragMoved bool

	heldPan map[string]time.Time

	showHelp     bool
	helpRenderer markdownRenderer

	smoothPending  bool
	tweenPending   bool
	lastSmoothTick time.Time
	lastTweenTick  time.Time

	pendingHoverID string
	pendingEditID  string
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	snap app.Snapshot
	err  error
}

// savedMsg carries message data through update handling.
type savedMsg struct {
	err error
}

// copiedMsg carries message data through update handling.
type copiedMsg struct {
	err error
}

// smoothTickMsg drives the viewport smoothing and held-pan loop.
type smoothTickMsg time.Time

// tweenTickMsg drives the layout tween loop.
type tweenTickMsg time.Time

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = "task label"
	input.CharLimit = 120
	cfg := DefaultCanvasConfig()
	m := Model{
		svc:       svc,
		status:    "loading...",
		help:      h,
		keys:      newKeyMap(),
		canvasCfg: cfg,
		metrics:   metricsFrom(cfg),
		clock:     time.Now,
		copyText:  clipboard.WriteAll,
		view:      NewViewport(cfg.ZoomMin, cfg.ZoomMax),
		input:     input,
		heldPan:   map[string]time.Time{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// loadData loads required data for the current operation.
func (m Model) loadData() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	snap, err := m.svc.LoadSnapshot(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{snap: snap}
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		firstSize := !m.ready
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		if firstSize && m.tree != nil {
			m.centerOnRoot()
		}
		m.rebuild()
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, app.ErrSnapshotNotFound) {
				m.tree = domain.NewTree(m.svc.RootLabel())
				m.status = "new tree"
			} else {
				m.err = msg.err
				return m, nil
			}
		} else {
			tree, err := msg.snap.Tree()
			if err != nil {
				m.err = err
				return m, nil
			}
			m.tree = tree
			m.status = "ready"
		}
		m.err = nil
		if m.ready {
			m.centerOnRoot()
			m.rebuild()
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.status = "save failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "saved"
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "copied"
		return m, nil

	case smoothTickMsg:
		return m.handleSmoothTick(time.Time(msg))

	case tweenTickMsg:
		return m.handleTweenTick(time.Time(msg))

	case tea.KeyPressMsg:
		if m.editingID != "" {
			return m.handleEditKey(msg)
		}
		return m.handleNormalKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	case tea.BlurMsg:
		// Key-release events never arrive; losing focus is the one
		// signal that whatever was held is held no longer.
		for k := range m.heldPan {
			delete(m.heldPan, k)
		}
		m.dragging = false
		return m, nil

	default:
		return m, nil
	}
}

// handleSmoothTick advances one frame of viewport smoothing plus any
// held-key panning.
func (m Model) handleSmoothTick(now time.Time) (tea.Model, tea.Cmd) {
	m.smoothPending = false
	dt := tickInterval.Seconds()
	if !m.lastSmoothTick.IsZero() {
		if d := now.Sub(m.lastSmoothTick).Seconds(); d > 0 && d < 0.1 {
			dt = d
		}
	}
	m.lastSmoothTick = now

	m.applyHeldPan(now, dt)
	animating := m.view.Step()
	m.rebuild()
	if animating || len(m.heldPan) > 0 {
		return m, m.ensureSmooth()
	}
	m.lastSmoothTick = time.Time{}
	return m, nil
}

// handleTweenTick advances one frame of the layout tween.
func (m Model) handleTweenTick(now time.Time) (tea.Model, tea.Cmd) {
	m.tweenPending = false
	dt := tickInterval.Seconds()
	if !m.lastTweenTick.IsZero() {
		if d := now.Sub(m.lastTweenTick).Seconds(); d > 0 && d < 0.1 {
			dt = d
		}
	}
	m.lastTweenTick = now

	running := m.anim.Advance(dt)
	m.rebuild()
	if running {
		return m, m.ensureTween()
	}
	m.lastTweenTick = time.Time{}
	return m, nil
}

// applyHeldPan pans the viewport target for every key still considered
// held, expiring entries whose autorepeat went quiet.
func (m *Model) applyHeldPan(now time.Time, dt float64) {
	var dx, dy float64
	for k, last := range m.heldPan {
		if now.Sub(last) > holdTimeout {
			delete(m.heldPan, k)
			continue
		}
		switch k {
		case "a":
			dx += 1
		case "d":
			dx -= 1
		case "w":
			dy += 1
		case "s":
			dy -= 1
		}
	}
	if dx != 0 || dy != 0 {
		// Terminal cells are roughly twice as tall as wide; halving the
		// vertical rate keeps diagonal pans feeling square.
		m.view.PanTargetBy(dx*m.canvasCfg.PanSpeed*dt, dy*m.canvasCfg.PanSpeed*dt/2)
	}
}

// handleNormalKey handles key presses outside of label editing.
func (m Model) handleNormalKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.toggleHelp), msg.String() == "esc":
			m.showHelp = false
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.toggleHelp):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.rename):
		if box, ok := m.hoveredBox(); ok {
			return m.beginEdit(box.task)
		}
		return m, nil

	case key.Matches(msg, m.keys.addChild):
		id := m.hoverID
		if id == "" && m.tree != nil {
			id = m.tree.Root.ID
		}
		return m.startAddChild(id)

	case key.Matches(msg, m.keys.complete):
		if box, ok := m.hoveredBox(); ok {
			return m.toggleComplete(box.task.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.cancel):
		if box, ok := m.hoveredBox(); ok {
			return m.toggleCancel(box.task.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.deleteNode):
		if box, ok := m.hoveredBox(); ok {
			return m.deleteBranch(box)
		}
		return m, nil

	case key.Matches(msg, m.keys.restore):
		if box, ok := m.hoveredBox(); ok {
			return m.restoreBranch(box.task.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.copyBranch):
		if box, ok := m.hoveredBox(); ok {
			return m.copyBranch(box.task)
		}
		return m, nil

	case key.Matches(msg, m.keys.save):
		return m, m.saveCmd()

	case key.Matches(msg, m.keys.moveLeft):
		return m.moveHover(dirLeft)
	case key.Matches(msg, m.keys.moveRight):
		return m.moveHover(dirRight)
	case key.Matches(msg, m.keys.moveUp):
		return m.moveHover(dirUp)
	case key.Matches(msg, m.keys.moveDown):
		return m.moveHover(dirDown)

	case key.Matches(msg, m.keys.panLeft), key.Matches(msg, m.keys.panRight),
		key.Matches(msg, m.keys.panUp), key.Matches(msg, m.keys.panDown):
		m.heldPan[msg.String()] = m.clock()
		return m, m.ensureSmooth()

	case key.Matches(msg, m.keys.zoomIn):
		cx, cy := m.canvasCenter()
		m.view.ZoomAt(cx, cy, -1, m.canvasCfg.WheelSensitivity)
		return m, m.ensureSmooth()

	case key.Matches(msg, m.keys.zoomOut):
		cx, cy := m.canvasCenter()
		m.view.ZoomAt(cx, cy, 1, m.canvasCfg.WheelSensitivity)
		return m, m.ensureSmooth()

	default:
		return m, nil
	}
}

// handleEditKey handles key presses while a label edit is in flight.
func (m Model) handleEditKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.cancelEdit()
	case "enter":
		return m.commitEdit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleMouseClick dispatches a left press: action on a node, add on
// an add region, drag start on empty canvas.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseLeft || m.showHelp || m.editingID != "" {
		return m, nil
	}
	px, py := float64(msg.X), float64(msg.Y-headerHeight)
	box, kind := hitTest(m.scene.boxes, px, py)
	switch kind {
	case hitNode:
		if box.parent == nil {
			// Root carries no lifecycle actions; a click renames it.
			return m.beginEdit(box.task)
		}
		actions := availableActions(m.tree.States.Get(box.task.ID))
		return m.applyAction(box, actions[actionIndexAt(box, px, len(actions))])
	case hitAdd:
		return m.startAddChild(box.task.ID)
	default:
		m.dragging = true
		m.dragMoved = false
		m.dragX = msg.X
		m.dragY = msg.Y
		return m, nil
	}
}

// handleMouseMotion either drags the canvas or retargets hover.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.showHelp || m.editingID != "" {
		return m, nil
	}
	if m.dragging {
		dx := msg.X - m.dragX
		dy := msg.Y - m.dragY
		m.dragX = msg.X
		m.dragY = msg.Y
		if dx != 0 || dy != 0 {
			m.dragMoved = true
			m.view.DragBy(float64(dx), float64(dy))
			m.rebuild()
		}
		return m, nil
	}

	px, py := float64(msg.X), float64(msg.Y-headerHeight)
	box, kind := hitTest(m.scene.boxes, px, py)
	hoverID := ""
	hoverAction := -1
	if kind != hitNone {
		hoverID = box.task.ID
	}
	if kind == hitNode && box.parent != nil {
		actions := availableActions(m.tree.States.Get(box.task.ID))
		hoverAction = actionIndexAt(box, px, len(actions))
	}
	if hoverID != m.hoverID || kind != m.hoverKind || hoverAction != m.hoverAction {
		m.hoverID = hoverID
		m.hoverKind = kind
		m.hoverAction = hoverAction
		m.rebuild()
	}
	return m, nil
}

// handleMouseRelease ends a drag.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	m.dragging = false
	return m, nil
}

// handleMouseWheel zooms about the cursor.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.showHelp || m.editingID != "" {
		return m, nil
	}
	var delta float64
	switch msg.Button {
	case tea.MouseWheelUp:
		delta = -1
	case tea.MouseWheelDown:
		delta = 1
	default:
		return m, nil
	}
	m.view.ZoomAt(float64(msg.X), float64(msg.Y-headerHeight), delta, m.canvasCfg.WheelSensitivity)
	return m, m.ensureSmooth()
}

// applyAction dispatches one action-row selection.
func (m Model) applyAction(box hitbox, action Action) (tea.Model, tea.Cmd) {
	switch action {
	case ActionCancel:
		return m.toggleCancel(box.task.ID)
	case ActionRename:
		return m.beginEdit(box.task)
	case ActionComplete:
		return m.toggleComplete(box.task.ID)
	case ActionDelete:
		return m.deleteBranch(box)
	case ActionRestore:
		return m.restoreBranch(box.task.ID)
	case ActionAdd:
		return m.startAddChild(box.task.ID)
	default:
		return m, nil
	}
}

// startAddChild appends an empty subtask and opens its label editor
// once the rebuilt scene knows where it landed.
func (m Model) startAddChild(parentID string) (tea.Model, tea.Cmd) {
	if m.tree == nil || parentID == "" {
		return m, nil
	}
	child, err := m.tree.AddChild(parentID)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	tween := m.beginTween()
	m.pendingEditID = child.ID
	m.rebuild()
	var focus tea.Cmd
	m, focus = m.applyPendingEdit()
	return m, tea.Batch(tween, focus, m.saveCmd())
}

// toggleComplete flips the completed state of one task.
func (m Model) toggleComplete(id string) (tea.Model, tea.Cmd) {
	if err := m.tree.ToggleComplete(id); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.rebuild()
	return m, m.saveCmd()
}

// toggleCancel cancels or restores a whole branch.
func (m Model) toggleCancel(id string) (tea.Model, tea.Cmd) {
	if err := m.tree.ToggleCancel(id); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.rebuild()
	return m, m.saveCmd()
}

// deleteBranch removes a branch and moves hover to its parent.
func (m Model) deleteBranch(box hitbox) (tea.Model, tea.Cmd) {
	if err := m.tree.Delete(box.task.ID); err != nil {
		m.status = err.Error()
		return m, nil
	}
	tween := m.beginTween()
	if box.parent != nil {
		m.pendingHoverID = box.parent.ID
	}
	m.rebuild()
	return m, tea.Batch(tween, m.saveCmd())
}

// restoreBranch clears lifecycle state below a task.
func (m Model) restoreBranch(id string) (tea.Model, tea.Cmd) {
	if err := m.tree.Restore(id); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.rebuild()
	return m, m.saveCmd()
}

// copyBranch puts the branch outline on the system clipboard.
func (m Model) copyBranch(task *domain.Task) (tea.Model, tea.Cmd) {
	outline := m.tree.Outline(task)
	write := m.copyText
	return m, func() tea.Msg {
		return copiedMsg{err: write(outline)}
	}
}

// beginEdit opens the inline label editor on a task.
func (m Model) beginEdit(task *domain.Task) (tea.Model, tea.Cmd) {
	m.editingID = task.ID
	m.editInitial = task.Label
	m.input.SetValue(task.Label)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

// commitEdit stores the edited label. A blank commit deletes the task;
// the root instead keeps its previous label, so it can never be blanked
// or removed through the editor.
func (m Model) commitEdit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	id := m.editingID
	initial := m.editInitial
	m.closeEdit()
	if value == "" {
		if task, parent, err := m.tree.Find(id); err == nil && parent == nil {
			task.Label = initial
			m.rebuild()
			return m, nil
		}
		return m.removeEdited(id)
	}
	if err := m.tree.Rename(id, value); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.rebuild()
	return m, m.saveCmd()
}

// cancelEdit reverts the edit unconditionally. A task that entered the
// editor without a label yet is removed instead of being left behind
// empty.
func (m Model) cancelEdit() (tea.Model, tea.Cmd) {
	id := m.editingID
	initial := m.editInitial
	m.closeEdit()
	if strings.TrimSpace(initial) == "" {
		return m.removeEdited(id)
	}
	m.rebuild()
	return m, nil
}

// removeEdited deletes the task an editor was open on.
func (m Model) removeEdited(id string) (tea.Model, tea.Cmd) {
	if box, ok := m.scene.box(id); ok {
		return m.deleteBranch(box)
	}
	if err := m.tree.Delete(id); err == nil {
		m.rebuild()
		return m, m.saveCmd()
	}
	m.rebuild()
	return m, nil
}

// closeEdit drops all editing state.
func (m *Model) closeEdit() {
	m.editingID = ""
	m.editInitial = ""
	m.input.Blur()
	m.input.SetValue("")
}

// moveHover retargets hover to the nearest node in a direction.
func (m Model) moveHover(dir direction) (tea.Model, tea.Cmd) {
	from, ok := m.hoveredBox()
	if !ok {
		if m.tree == nil {
			return m, nil
		}
		m.hoverID = m.tree.Root.ID
		m.hoverKind = hitNode
		m.hoverAction = -1
		m.rebuild()
		return m, nil
	}
	if next, found := nearestInDirection(m.scene.boxes, from, dir); found {
		m.hoverID = next.task.ID
		m.hoverKind = hitNode
		m.hoverAction = -1
		m.rebuild()
	}
	return m, nil
}

// hoveredBox resolves the hovered task against the current scene.
func (m *Model) hoveredBox() (hitbox, bool) {
	if m.hoverID == "" {
		return hitbox{}, false
	}
	return m.scene.box(m.hoverID)
}

// beginTween captures the last drawn display positions and returns the
// command that drives the tween. Call it after a structural edit has
// succeeded but before the scene is rebuilt; the scene still holds the
// pre-edit positions at that point, and a rejected edit never arms the
// animator.
func (m *Model) beginTween() tea.Cmd {
	if len(m.scene.displayed) == 0 {
		return nil
	}
	m.anim.Capture(m.scene.displayed, float64(m.canvasCfg.TweenMillis)/1000)
	return m.ensureTween()
}

// ensureSmooth schedules the next smoothing frame exactly once.
func (m *Model) ensureSmooth() tea.Cmd {
	if m.smoothPending {
		return nil
	}
	m.smoothPending = true
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return smoothTickMsg(t)
	})
}

// ensureTween schedules the next tween frame exactly once.
func (m *Model) ensureTween() tea.Cmd {
	if m.tweenPending {
		return nil
	}
	m.tweenPending = true
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tweenTickMsg(t)
	})
}

// saveCmd persists the current tree as a snapshot.
func (m Model) saveCmd() tea.Cmd {
	if m.tree == nil {
		return nil
	}
	snap := app.SnapshotFromTree(m.tree, m.clock().UTC())
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return savedMsg{err: svc.SaveSnapshot(ctx, snap)}
	}
}

// rebuild redraws the scene and applies deferred hover retargeting.
func (m *Model) rebuild() {
	if !m.ready || m.tree == nil {
		return
	}
	w, h := m.canvasSize()
	if w <= 0 || h <= 0 {
		return
	}
	if err := m.rebuildScene(); err != nil {
		m.err = err
		return
	}
	if m.pendingHoverID != "" {
		if _, ok := m.scene.box(m.pendingHoverID); ok {
			m.hoverID = m.pendingHoverID
			m.hoverKind = hitNode
			m.hoverAction = -1
		}
		m.pendingHoverID = ""
	}
}

// applyPendingEdit opens the editor queued by startAddChild, once the
// scene contains the new node.
func (m Model) applyPendingEdit() (Model, tea.Cmd) {
	if m.pendingEditID == "" {
		return m, nil
	}
	id := m.pendingEditID
	m.pendingEditID = ""
	task, _, err := m.tree.Find(id)
	if err != nil {
		return m, nil
	}
	m.hoverID = id
	m.hoverKind = hitNode
	m.hoverAction = -1
	next, cmd := m.beginEdit(task)
	return next.(Model), cmd
}

// canvasSize returns the drawable cell area between header and footer.
func (m Model) canvasSize() (int, int) {
	return m.width, m.height - headerHeight - footerHeight
}

// canvasCenter returns the canvas midpoint in canvas coordinates.
func (m Model) canvasCenter() (float64, float64) {
	w, h := m.canvasSize()
	return float64(w) / 2, float64(h) / 2
}

// centerOnRoot parks the viewport so the root sits near the right edge
// at identity zoom, the way the tree reads: specifics left, goal right.
func (m *Model) centerOnRoot() {
	if m.tree == nil {
		return
	}
	w, h := m.canvasSize()
	if w <= 0 || h <= 0 {
		return
	}
	res := layout.Compute(m.tree.Root, m.metrics, float64(w))
	root, _ := res.Position(m.tree.Root.ID)
	m.view.PanX = float64(w) - m.metrics.NodeWidth - 2 - root.X
	m.view.PanY = float64(h)/2 - root.Y
	m.view.TargetPanX = m.view.PanX
	m.view.TargetPanY = m.view.PanY
}

// View handles view.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress q to quit\n")
		v.MouseMode = tea.MouseModeAllMotion
		v.AltScreen = true
		return v
	}
	if !m.ready || m.tree == nil {
		v := tea.NewView("loading...")
		v.MouseMode = tea.MouseModeAllMotion
		v.AltScreen = true
		return v
	}

	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("grenverk") + "  " + m.tree.Root.Label
	header += statusStyle.Render(fmt.Sprintf("  zoom %.0f%%", m.view.Zoom*100))
	if box, ok := m.hoveredBox(); ok {
		if hint := describeHit(box, m.hoverKind); hint != "" {
			header += statusStyle.Render("  • " + truncate(hint, 40))
		}
	}

	status := m.status
	if status == "" {
		status = "ready"
	}

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	sections := []string{
		header,
		m.scene.content,
		statusStyle.Render(truncate(status, max(1, m.width))),
		helpLine,
	}
	content := fitLines(strings.Join(sections, "\n"), max(1, m.height))

	if m.editingID != "" {
		content = m.composeEditOverlay(content)
	}
	if m.showHelp {
		content = overlayOnContent(content, m.renderHelpOverlay(), max(1, m.width), max(1, m.height))
	}

	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeAllMotion
	v.AltScreen = true
	return v
}

// composeEditOverlay layers the label editor over the edited node.
func (m Model) composeEditOverlay(base string) string {
	box, ok := m.scene.box(m.editingID)
	if !ok {
		return base
	}
	editW := max(int(box.w), 24)
	editor := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("212")).
		Padding(0, 1).
		Width(editW).
		Render(m.input.View())

	x := clamp(int(box.x+0.5), 0, max(0, m.width-editW-4))
	y := clamp(int(box.y+0.5)+headerHeight-1, 0, max(0, m.height-3))

	canvas := lipgloss.NewCanvas(max(1, m.width), max(1, m.height))
	canvas.Compose(lipgloss.NewLayer(fitLines(base, m.height)).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(editor).X(x).Y(y).Z(10))
	return canvas.Render()
}

// renderHelpOverlay renders the markdown key reference.
func (m Model) renderHelpOverlay() string {
	body := m.helpRenderer.render(helpMarkdown, min(72, max(24, m.width-8)))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Render(body)
}

// helpMarkdown is the full key reference shown by the help overlay.
const helpMarkdown = `# grenverk

Tasks branch leftward: the goal sits on the right, the concrete
next steps line up on the left.

## Pointer

- **click a node** — pick the action under the cursor
- **click (+)** — add a subtask
- **drag empty canvas** — pan
- **wheel** — zoom about the cursor

## Keys

| Key | Action |
| --- | ------ |
| arrows | move hover between tasks |
| enter | rename hovered task |
| shift+enter | add subtask |
| space | toggle done |
| backspace | cancel branch |
| shift+backspace | delete branch |
| u | restore branch |
| y | copy branch outline |
| w a s d | pan |
| + / - | zoom |
| ctrl+s | save now |
| ? | close this help |
| q | quit |
`
