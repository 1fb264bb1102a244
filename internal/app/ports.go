package app

import (
	"context"
	"time"
)

// SnapshotStore persists named snapshot documents.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, name string, payload []byte, updatedAt time.Time) error
	LoadSnapshot(ctx context.Context, name string) ([]byte, time.Time, error)
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)
}

// SnapshotInfo describes one stored snapshot document.
type SnapshotInfo struct {
	Name      string
	UpdatedAt time.Time
	Size      int
}

// Clock returns the current time.
type Clock func() time.Time
