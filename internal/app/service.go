package app

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultDocumentName is the store key of the working tree.
const DefaultDocumentName = "default"

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	DocumentName string
	RootLabel    string
}

// Service represents service data used by this package. It owns the
// persistence flow between the in-memory tree and the snapshot store.
type Service struct {
	store     SnapshotStore
	clock     Clock
	docName   string
	rootLabel string
}

// NewService constructs a new value for this package.
func NewService(store SnapshotStore, clock Clock, cfg ServiceConfig) *Service {
	if clock == nil {
		clock = time.Now
	}
	docName := strings.TrimSpace(cfg.DocumentName)
	if docName == "" {
		docName = DefaultDocumentName
	}
	rootLabel := strings.TrimSpace(cfg.RootLabel)
	if rootLabel == "" {
		rootLabel = "Tasks"
	}
	return &Service{
		store:     store,
		clock:     clock,
		docName:   docName,
		rootLabel: rootLabel,
	}
}

// DocumentName returns the configured store key.
func (s *Service) DocumentName() string {
	return s.docName
}

// RootLabel returns the label used when bootstrapping an empty tree.
func (s *Service) RootLabel() string {
	return s.rootLabel
}

// SaveSnapshot encodes and persists a snapshot under the configured
// document name.
func (s *Service) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	payload, err := snap.Encode()
	if err != nil {
		return err
	}
	if err := s.store.SaveSnapshot(ctx, s.docName, payload, s.clock().UTC()); err != nil {
		return fmt.Errorf("save snapshot %q: %w", s.docName, err)
	}
	return nil
}

// LoadSnapshot loads and decodes the configured document. Returns
// ErrSnapshotNotFound when nothing has been saved yet.
func (s *Service) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	payload, _, err := s.store.LoadSnapshot(ctx, s.docName)
	if err != nil {
		return Snapshot{}, err
	}
	return DecodeSnapshot(payload)
}

// RawSnapshot returns the stored payload without decoding, for export
// and push flows that forward the document verbatim.
func (s *Service) RawSnapshot(ctx context.Context) ([]byte, error) {
	payload, _, err := s.store.LoadSnapshot(ctx, s.docName)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// ListSnapshots returns metadata for every stored document.
func (s *Service) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	infos, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return infos, nil
}

// ImportSnapshot validates foreign snapshot bytes and persists them as
// the working document.
func (s *Service) ImportSnapshot(ctx context.Context, payload []byte) (Snapshot, error) {
	snap, err := DecodeSnapshot(payload)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
