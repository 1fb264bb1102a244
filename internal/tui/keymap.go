package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit       key.Binding
	toggleHelp key.Binding
	rename     key.Binding
	addChild   key.Binding
	complete   key.Binding
	cancel     key.Binding
	deleteNode key.Binding
	restore    key.Binding
	copyBranch key.Binding
	save       key.Binding
	moveLeft   key.Binding
	moveRight  key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	panLeft    key.Binding
	panRight   key.Binding
	panUp      key.Binding
	panDown    key.Binding
	zoomIn     key.Binding
	zoomOut    key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		rename:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "rename task")),
		addChild:   key.NewBinding(key.WithKeys("shift+enter"), key.WithHelp("shift+enter", "add subtask")),
		complete:   key.NewBinding(key.WithKeys("space"), key.WithHelp("space", "toggle done")),
		cancel:     key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "toggle cancelled")),
		deleteNode: key.NewBinding(key.WithKeys("shift+backspace"), key.WithHelp("shift+backspace", "delete branch")),
		restore:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "restore")),
		copyBranch: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy branch")),
		save:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		moveLeft:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "hover left")),
		moveRight:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "hover right")),
		moveUp:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "hover up")),
		moveDown:   key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "hover down")),
		panLeft:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "pan left")),
		panRight:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "pan right")),
		panUp:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "pan up")),
		panDown:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "pan down")),
		zoomIn:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		zoomOut:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addChild, k.rename, k.complete, k.cancel, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addChild, k.rename, k.complete, k.cancel, k.deleteNode, k.restore, k.copyBranch, k.save, k.toggleHelp, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown},
		{k.panLeft, k.panRight, k.panUp, k.panDown, k.zoomIn, k.zoomOut},
	}
}
