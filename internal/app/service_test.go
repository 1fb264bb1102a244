package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hylla/grenverk/internal/domain"
)

type fakeStore struct {
	docs map[string][]byte
	at   map[string]time.Time
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string][]byte{}, at: map[string]time.Time{}}
}

func (f *fakeStore) SaveSnapshot(_ context.Context, name string, payload []byte, updatedAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.docs[name] = append([]byte(nil), payload...)
	f.at[name] = updatedAt
	return nil
}

func (f *fakeStore) LoadSnapshot(_ context.Context, name string) ([]byte, time.Time, error) {
	if f.err != nil {
		return nil, time.Time{}, f.err
	}
	payload, ok := f.docs[name]
	if !ok {
		return nil, time.Time{}, ErrSnapshotNotFound
	}
	return payload, f.at[name], nil
}

func (f *fakeStore) ListSnapshots(context.Context) ([]SnapshotInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	infos := make([]SnapshotInfo, 0, len(f.docs))
	for name, payload := range f.docs {
		infos = append(infos, SnapshotInfo{Name: name, UpdatedAt: f.at[name], Size: len(payload)})
	}
	return infos, nil
}

func TestServiceSaveLoadSnapshot(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, func() time.Time { return now }, ServiceConfig{DocumentName: "plans"})

	tr := domain.NewTree("Base")
	if err := svc.SaveSnapshot(context.Background(), SnapshotFromTree(tr, now)); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if store.at["plans"] != now {
		t.Fatalf("unexpected store timestamp %v", store.at["plans"])
	}

	snap, err := svc.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if snap.Root.Label != "Base" {
		t.Fatalf("unexpected root label %q", snap.Root.Label)
	}
}

func TestServiceLoadMissingSnapshot(t *testing.T) {
	svc := NewService(newFakeStore(), nil, ServiceConfig{})
	if _, err := svc.LoadSnapshot(context.Background()); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("LoadSnapshot() = %v, want ErrSnapshotNotFound", err)
	}
}

func TestServiceDefaults(t *testing.T) {
	svc := NewService(newFakeStore(), nil, ServiceConfig{})
	if svc.DocumentName() != DefaultDocumentName {
		t.Fatalf("DocumentName() = %q", svc.DocumentName())
	}
	if svc.RootLabel() != "Tasks" {
		t.Fatalf("RootLabel() = %q", svc.RootLabel())
	}
}

func TestServiceListSnapshots(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, func() time.Time { return now }, ServiceConfig{DocumentName: "plans"})

	infos, err := svc.ListSnapshots(context.Background())
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected empty listing, got %v", infos)
	}

	tr := domain.NewTree("Base")
	if err := svc.SaveSnapshot(context.Background(), SnapshotFromTree(tr, now)); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	infos, err = svc.ListSnapshots(context.Background())
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "plans" || infos[0].Size == 0 {
		t.Fatalf("unexpected listing %v", infos)
	}

	store.err = errors.New("disk gone")
	if _, err := svc.ListSnapshots(context.Background()); err == nil {
		t.Fatal("expected store failure surfaced")
	}
}

func TestServiceImportSnapshotRejectsInvalid(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, ServiceConfig{})
	payload := []byte(`{"version":"grenverk.snapshot.v1","root":{"id":"a","label":"x"},"states":{"nope":"cancelled"}}`)
	if _, err := svc.ImportSnapshot(context.Background(), payload); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("ImportSnapshot() = %v, want ErrInvalidSnapshot", err)
	}
	if len(store.docs) != 0 {
		t.Fatal("invalid import must not touch the store")
	}
}

func TestServiceImportSnapshotPersists(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, ServiceConfig{})
	payload := []byte(`{"root":{"label":"from elsewhere","subtasks":[{"label":"child"}]}}`)
	snap, err := svc.ImportSnapshot(context.Background(), payload)
	if err != nil {
		t.Fatalf("ImportSnapshot() error = %v", err)
	}
	if snap.Root.Label != "from elsewhere" {
		t.Fatalf("unexpected root label %q", snap.Root.Label)
	}
	if _, ok := store.docs[DefaultDocumentName]; !ok {
		t.Fatal("expected imported snapshot persisted")
	}
}
