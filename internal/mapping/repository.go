package mapping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for mapping persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a mapping by its unique identifier.
	// Returns ErrNotFound if the mapping does not exist.
	GetByID(ctx context.Context, id string) (*Mapping, error)

	// List retrieves all mappings.
	List(ctx context.Context) ([]Mapping, error)

	// ListByUniverse retrieves all mappings for one universe.
	ListByUniverse(ctx context.Context, universe uint16) ([]Mapping, error)

	// Create inserts a new mapping.
	Create(ctx context.Context, m *Mapping) error

	// Update modifies an existing mapping.
	// Returns ErrNotFound if the mapping does not exist.
	Update(ctx context.Context, m *Mapping) error

	// Delete removes a mapping by ID.
	// Returns ErrNotFound if the mapping does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with the
// mappings migration applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const mappingColumns = `id, light_id, light_ip, light_label, universe, start_channel,
		mode, enabled, brightness_cap, kelvin, created_at, updated_at`

// GetByID retrieves a mapping by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM mappings WHERE id = ?`

	m, err := scanMapping(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying mapping by id: %w", err)
	}
	return m, nil
}

// List retrieves all mappings ordered by universe and start channel.
func (r *SQLiteRepository) List(ctx context.Context) ([]Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM mappings ORDER BY universe, start_channel`
	return r.queryMappings(ctx, query)
}

// ListByUniverse retrieves all mappings for one universe.
func (r *SQLiteRepository) ListByUniverse(ctx context.Context, universe uint16) ([]Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM mappings WHERE universe = ? ORDER BY start_channel`
	return r.queryMappings(ctx, query, universe)
}

// Create inserts a new mapping. Timestamps are set to now.
func (r *SQLiteRepository) Create(ctx context.Context, m *Mapping) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	query := `
		INSERT INTO mappings (` + mappingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.LightID, m.LightIP, m.LightLabel, m.Universe, m.StartChannel,
		string(m.Mode), boolToInt(m.Enabled), m.BrightnessCap, m.Kelvin,
		m.CreatedAt.Format(time.RFC3339), m.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting mapping: %w", err)
	}
	return nil
}

// Update modifies an existing mapping.
func (r *SQLiteRepository) Update(ctx context.Context, m *Mapping) error {
	m.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE mappings
		SET light_id = ?, light_ip = ?, light_label = ?, universe = ?,
			start_channel = ?, mode = ?, enabled = ?, brightness_cap = ?,
			kelvin = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		m.LightID, m.LightIP, m.LightLabel, m.Universe,
		m.StartChannel, string(m.Mode), boolToInt(m.Enabled), m.BrightnessCap,
		m.Kelvin, m.UpdatedAt.Format(time.RFC3339),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating mapping: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a mapping by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM mappings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting mapping: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// queryMappings executes a query returning multiple mapping rows.
func (r *SQLiteRepository) queryMappings(ctx context.Context, query string, args ...interface{}) ([]Mapping, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying mappings: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only iteration

	var mappings []Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning mapping row: %w", err)
		}
		mappings = append(mappings, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mappings: %w", err)
	}
	return mappings, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanMapping scans one mapping row.
func scanMapping(row scanner) (*Mapping, error) {
	var (
		m                    Mapping
		mode                 string
		enabled              int
		createdAt, updatedAt string
	)

	err := row.Scan(
		&m.ID, &m.LightID, &m.LightIP, &m.LightLabel, &m.Universe, &m.StartChannel,
		&mode, &enabled, &m.BrightnessCap, &m.Kelvin, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Mode = Mode(mode)
	m.Enabled = enabled != 0
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled
	return &m, nil
}

// boolToInt converts a bool to the SQLite integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
