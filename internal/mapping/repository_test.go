package mapping

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerrad567/luxbridge/internal/infrastructure/database"
)

// openTestRepo creates a temporary SQLite database with the mappings
// schema applied.
func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	schema := `
		CREATE TABLE mappings (
			id              TEXT PRIMARY KEY,
			light_id        TEXT NOT NULL,
			light_ip        TEXT NOT NULL,
			light_label     TEXT NOT NULL DEFAULT '',
			universe        INTEGER NOT NULL,
			start_channel   INTEGER NOT NULL,
			mode            TEXT NOT NULL DEFAULT 'rgb8',
			enabled         INTEGER NOT NULL DEFAULT 1,
			brightness_cap  REAL NOT NULL DEFAULT 1.0,
			kelvin          INTEGER NOT NULL DEFAULT 3500,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		)`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_CRUD(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	m := validMapping()
	m.ID = "map-001"

	if err := repo.Create(ctx, &m); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if m.CreatedAt.IsZero() || m.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}

	got, err := repo.GetByID(ctx, "map-001")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LightID != m.LightID || got.Mode != m.Mode || !got.Enabled {
		t.Errorf("GetByID() = %+v, want %+v", got, m)
	}
	if got.BrightnessCap != 1.0 {
		t.Errorf("BrightnessCap = %v, want 1.0", got.BrightnessCap)
	}

	got.BrightnessCap = 0.8
	got.Enabled = false
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	updated, err := repo.GetByID(ctx, "map-001")
	if err != nil {
		t.Fatalf("GetByID() after update error = %v", err)
	}
	if updated.BrightnessCap != 0.8 || updated.Enabled {
		t.Errorf("update not persisted: %+v", updated)
	}

	if err := repo.Delete(ctx, "map-001"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, "map-001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() = %v, want ErrNotFound", err)
	}

	ghost := validMapping()
	ghost.ID = "ghost"
	if err := repo.Update(ctx, &ghost); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() = %v, want ErrNotFound", err)
	}

	if err := repo.Delete(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_ListByUniverse(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for i, universe := range []uint16{1, 1, 2} {
		m := validMapping()
		m.ID = string(rune('a' + i))
		m.Universe = universe
		m.StartChannel = 1 + i*10
		if err := repo.Create(ctx, &m); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	one, err := repo.ListByUniverse(ctx, 1)
	if err != nil {
		t.Fatalf("ListByUniverse(1) error = %v", err)
	}
	if len(one) != 2 {
		t.Errorf("ListByUniverse(1) = %d mappings, want 2", len(one))
	}

	// Ordered by start channel.
	if len(one) == 2 && one[0].StartChannel > one[1].StartChannel {
		t.Error("ListByUniverse() not ordered by start_channel")
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List() = %d mappings, want 3", len(all))
	}
}
