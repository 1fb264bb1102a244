package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Task is one node of the hierarchy. A parent owns its subtasks
// exclusively: the structure is a strict tree, never a DAG.
type Task struct {
	ID       string
	Label    string
	Subtasks []*Task
}

// NewTask constructs a task with a fresh identity.
func NewTask(label string) *Task {
	return &Task{ID: uuid.NewString(), Label: label}
}

// IsLeaf reports whether the task has no subtasks.
func (t *Task) IsLeaf() bool {
	return len(t.Subtasks) == 0
}

// Walk visits the task and every descendant depth-first in
// declaration order.
func (t *Task) Walk(fn func(*Task)) {
	fn(t)
	for _, child := range t.Subtasks {
		child.Walk(fn)
	}
}

// Depth returns the maximum depth of the subtree rooted at the task,
// where a leaf has depth zero.
func (t *Task) Depth() int {
	deepest := 0
	for _, child := range t.Subtasks {
		if d := child.Depth() + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Tree pairs the task hierarchy with the per-task transient state
// side-map. The map is keyed by task ID rather than embedded in Task
// so that structural code never carries lifecycle concerns; entries
// are removed explicitly when a task leaves the tree.
type Tree struct {
	Root   *Task
	States StateMap
}

// NewTree constructs a tree with a labeled root and an empty state map.
func NewTree(rootLabel string) *Tree {
	return &Tree{
		Root:   NewTask(rootLabel),
		States: StateMap{},
	}
}

// Find returns the task with the given id and its parent. The root's
// parent is nil. Returns ErrNotFound when the id is not in the tree.
func (tr *Tree) Find(id string) (task, parent *Task, err error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, ErrInvalidID
	}
	if tr.Root.ID == id {
		return tr.Root, nil, nil
	}
	task, parent = findIn(tr.Root, id)
	if task == nil {
		return nil, nil, ErrNotFound
	}
	return task, parent, nil
}

// findIn searches node's descendants for id, returning the match and
// its parent.
func findIn(node *Task, id string) (*Task, *Task) {
	for _, child := range node.Subtasks {
		if child.ID == id {
			return child, node
		}
		if found, parent := findIn(child, id); found != nil {
			return found, parent
		}
	}
	return nil, nil
}

// Contains reports whether a task with the given id is in the tree.
func (tr *Tree) Contains(id string) bool {
	_, _, err := tr.Find(id)
	return err == nil
}

// AddChild appends a new empty-labeled task as the last subtask of
// parentID and clears any state on the parent: attaching fresh work
// reopens a completed or cancelled task.
func (tr *Tree) AddChild(parentID string) (*Task, error) {
	parent, _, err := tr.Find(parentID)
	if err != nil {
		return nil, err
	}
	child := NewTask("")
	parent.Subtasks = append(parent.Subtasks, child)
	tr.States.Clear(parent.ID)
	return child, nil
}

// Rename replaces the task's label. Renaming the root is allowed only
// through Rename's caller policy; the tree itself just stores text.
func (tr *Tree) Rename(id, label string) error {
	task, _, err := tr.Find(id)
	if err != nil {
		return err
	}
	task.Label = label
	return nil
}

// Delete removes the task from its parent's subtask sequence and
// drops state entries for it and every descendant. The root cannot be
// deleted.
func (tr *Tree) Delete(id string) error {
	task, parent, err := tr.Find(id)
	if err != nil {
		return err
	}
	if parent == nil {
		return ErrRootExcluded
	}
	for i, child := range parent.Subtasks {
		if child.ID == id {
			parent.Subtasks = append(parent.Subtasks[:i], parent.Subtasks[i+1:]...)
			break
		}
	}
	task.Walk(func(t *Task) {
		tr.States.Clear(t.ID)
	})
	return nil
}

// ToggleCancel cancels the task and, recursively, everything under
// it. Toggling an already-cancelled task clears the whole subtree
// back to default: a cascade is undone as a unit, not per-descendant.
func (tr *Tree) ToggleCancel(id string) error {
	task, parent, err := tr.Find(id)
	if err != nil {
		return err
	}
	if parent == nil {
		return ErrRootExcluded
	}
	if tr.States.Get(task.ID) == StateCancelled {
		task.Walk(func(t *Task) {
			tr.States.Clear(t.ID)
		})
		return nil
	}
	task.Walk(func(t *Task) {
		tr.States.Set(t.ID, StateCancelled)
	})
	return nil
}

// ToggleComplete flips the task between completed and default. It is
// deliberately not recursive; a parent reflects child completion
// through its progress ratio instead.
func (tr *Tree) ToggleComplete(id string) error {
	task, parent, err := tr.Find(id)
	if err != nil {
		return err
	}
	if parent == nil {
		return ErrRootExcluded
	}
	if tr.States.Get(task.ID) == StateCompleted {
		tr.States.Clear(task.ID)
		return nil
	}
	tr.States.Set(task.ID, StateCompleted)
	return nil
}

// Restore clears state on the task and every descendant.
func (tr *Tree) Restore(id string) error {
	task, _, err := tr.Find(id)
	if err != nil {
		return err
	}
	task.Walk(func(t *Task) {
		tr.States.Clear(t.ID)
	})
	return nil
}

// Progress returns the completed fraction of the task's direct
// subtasks, or zero for a leaf.
func (tr *Tree) Progress(task *Task) float64 {
	if len(task.Subtasks) == 0 {
		return 0
	}
	done := 0
	for _, child := range task.Subtasks {
		if tr.States.Get(child.ID) == StateCompleted {
			done++
		}
	}
	return float64(done) / float64(len(task.Subtasks))
}

// Outline renders the subtree as plain indented text, one label per
// line, suitable for the clipboard.
func (tr *Tree) Outline(task *Task) string {
	var b strings.Builder
	writeOutline(&b, task, 0)
	return b.String()
}

// writeOutline appends one node and its descendants to the builder.
func writeOutline(b *strings.Builder, task *Task, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	label := task.Label
	if strings.TrimSpace(label) == "" {
		label = "(untitled)"
	}
	b.WriteString(label)
	b.WriteString("\n")
	for _, child := range task.Subtasks {
		writeOutline(b, child, depth+1)
	}
}
