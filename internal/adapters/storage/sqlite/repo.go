package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/grenverk/internal/app"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package. It
// stores snapshot documents as opaque payloads keyed by name.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			name TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveSnapshot upserts one snapshot document.
func (r *Repository) SaveSnapshot(ctx context.Context, name string, payload []byte, updatedAt time.Time) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("snapshot name is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at;`,
		name, payload, updatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", name, err)
	}
	return nil
}

// LoadSnapshot returns the stored payload and timestamp for name.
func (r *Repository) LoadSnapshot(ctx context.Context, name string) ([]byte, time.Time, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT payload, updated_at FROM snapshots WHERE name = ?;`, name)
	var payload []byte
	var updatedAt string
	if err := row.Scan(&payload, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, app.ErrSnapshotNotFound
		}
		return nil, time.Time{}, fmt.Errorf("load snapshot %q: %w", name, err)
	}
	at, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load snapshot %q: parse updated_at: %w", name, err)
	}
	return payload, at, nil
}

// ListSnapshots returns stored document metadata ordered by name.
func (r *Repository) ListSnapshots(ctx context.Context) ([]app.SnapshotInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, length(payload), updated_at FROM snapshots ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var infos []app.SnapshotInfo
	for rows.Next() {
		var info app.SnapshotInfo
		var updatedAt string
		if err := rows.Scan(&info.Name, &info.Size, &updatedAt); err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: parse updated_at: %w", err)
		}
		info.UpdatedAt = at
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return infos, nil
}
