package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hylla/grenverk/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "grenverk.snapshot.v1"

// Snapshot is the serialized form of a task tree: the nested
// label/subtasks records plus the transient state side-map.
type Snapshot struct {
	Version    string                      `json:"version"`
	ExportedAt time.Time                   `json:"exported_at"`
	Root       SnapshotTask                `json:"root"`
	States     map[string]domain.NodeState `json:"states,omitempty"`
}

// SnapshotTask represents one serialized task node.
type SnapshotTask struct {
	ID       string         `json:"id,omitempty"`
	Label    string         `json:"label"`
	Subtasks []SnapshotTask `json:"subtasks,omitempty"`
}

// SnapshotFromTree serializes a tree.
func SnapshotFromTree(tr *domain.Tree, now time.Time) Snapshot {
	states := make(map[string]domain.NodeState, tr.States.Len())
	for id, state := range tr.States {
		states[id] = state
	}
	return Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: now.UTC(),
		Root:       snapshotTaskFromDomain(tr.Root),
		States:     states,
	}
}

// snapshotTaskFromDomain converts one task subtree.
func snapshotTaskFromDomain(t *domain.Task) SnapshotTask {
	out := SnapshotTask{ID: t.ID, Label: t.Label}
	for _, child := range t.Subtasks {
		out.Subtasks = append(out.Subtasks, snapshotTaskFromDomain(child))
	}
	return out
}

// Tree rebuilds a domain tree from the snapshot. Nodes without an ID
// (plain label/subtasks documents produced by other tools) receive a
// fresh one; state entries can only reference nodes that carried an ID.
func (s Snapshot) Tree() (*domain.Tree, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	tr := &domain.Tree{
		Root:   s.Root.toDomain(),
		States: domain.StateMap{},
	}
	for id, state := range s.States {
		tr.States.Set(id, state)
	}
	return tr, nil
}

// toDomain converts one serialized subtree, minting IDs where absent.
func (st SnapshotTask) toDomain() *domain.Task {
	id := strings.TrimSpace(st.ID)
	if id == "" {
		id = uuid.NewString()
	}
	task := &domain.Task{ID: id, Label: st.Label}
	for _, child := range st.Subtasks {
		task.Subtasks = append(task.Subtasks, child.toDomain())
	}
	return task
}

// Validate checks structural consistency before import.
func (s Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, s.Version)
	}
	ids := map[string]struct{}{}
	if err := collectIDs(s.Root, ids); err != nil {
		return err
	}
	for id, state := range s.States {
		if _, ok := ids[id]; !ok {
			return fmt.Errorf("%w: state entry references unknown task id %q", ErrInvalidSnapshot, id)
		}
		switch state {
		case domain.StateCompleted, domain.StateCancelled, domain.StateDefault:
		default:
			return fmt.Errorf("%w: state for %q must be default|completed|cancelled", ErrInvalidSnapshot, id)
		}
	}
	return nil
}

// collectIDs gathers explicit node IDs and rejects duplicates.
func collectIDs(st SnapshotTask, ids map[string]struct{}) error {
	if id := strings.TrimSpace(st.ID); id != "" {
		if _, exists := ids[id]; exists {
			return fmt.Errorf("%w: duplicate task id %q", ErrInvalidSnapshot, id)
		}
		ids[id] = struct{}{}
	}
	for _, child := range st.Subtasks {
		if err := collectIDs(child, ids); err != nil {
			return err
		}
	}
	return nil
}

// Encode marshals the snapshot as indented JSON.
func (s Snapshot) Encode() ([]byte, error) {
	payload, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(payload, '\n'), nil
}

// DecodeSnapshot unmarshals and validates snapshot JSON.
func DecodeSnapshot(payload []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
