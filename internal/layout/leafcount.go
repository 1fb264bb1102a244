package layout

import "github.com/hylla/grenverk/internal/domain"

// Counts memoizes subtree leaf counts for one layout pass. A fresh
// Counts is built at the start of every pass so structural edits are
// always reflected; entries are never invalidated in place.
type Counts struct {
	byID map[string]int
}

// NewCounts constructs an empty per-pass cache.
func NewCounts() *Counts {
	return &Counts{byID: map[string]int{}}
}

// Leaves returns the number of leaf descendants of the task, or 1 if
// the task is itself a leaf.
func (c *Counts) Leaves(task *domain.Task) int {
	if n, ok := c.byID[task.ID]; ok {
		return n
	}
	n := 0
	for _, child := range task.Subtasks {
		n += c.Leaves(child)
	}
	if n < 1 {
		n = 1
	}
	c.byID[task.ID] = n
	return n
}
