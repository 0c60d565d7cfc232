package mapping

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Store is a write-through cache over a mapping Repository.
//
// All mappings are held in memory so the frame dispatcher can look
// them up per packet without touching SQLite. Mutations go to the
// repository first and update the cache only on success.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Store struct {
	repo Repository

	mu       sync.RWMutex
	mappings map[string]*Mapping
}

// NewStore creates a store backed by the given repository.
// Call Load before serving reads.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:     repo,
		mappings: make(map[string]*Mapping),
	}
}

// Load populates the cache from the repository.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: If the repository read fails
func (s *Store) Load(ctx context.Context) error {
	mappings, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading mappings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mappings = make(map[string]*Mapping, len(mappings))
	for i := range mappings {
		m := mappings[i]
		s.mappings[m.ID] = &m
	}
	return nil
}

// Get returns a copy of the mapping, or ErrNotFound.
func (s *Store) Get(id string) (Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[id]
	if !ok {
		return Mapping{}, ErrNotFound
	}
	return *m, nil
}

// List returns a snapshot of all mappings.
func (s *Store) List() []Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Mapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		out = append(out, *m)
	}
	return out
}

// ByUniverse returns all enabled mappings for a universe.
func (s *Store) ByUniverse(universe uint16) []Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Mapping
	for _, m := range s.mappings {
		if m.Universe == universe && m.Enabled {
			out = append(out, *m)
		}
	}
	return out
}

// Universes returns the distinct universes that have at least one
// enabled mapping.
func (s *Store) Universes() []uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uint16]bool)
	for _, m := range s.mappings {
		if m.Enabled {
			seen[m.Universe] = true
		}
	}

	out := make([]uint16, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	return out
}

// Count returns the number of mappings, enabled or not.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mappings)
}

// Create validates and persists a new mapping, assigning it a UUID.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - m: Mapping to create; ID, CreatedAt, UpdatedAt are set here
//
// Returns:
//   - error: Validation error, ErrOverlap, or a repository error
func (s *Store) Create(ctx context.Context, m *Mapping) error {
	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return err
	}
	if err := s.checkOverlap(m, ""); err != nil {
		return err
	}

	m.ID = uuid.NewString()
	if err := s.repo.Create(ctx, m); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *m
	s.mappings[m.ID] = &stored
	return nil
}

// Update validates and persists changes to an existing mapping.
func (s *Store) Update(ctx context.Context, m *Mapping) error {
	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return err
	}
	if err := s.checkOverlap(m, m.ID); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *m
	s.mappings[m.ID] = &stored
	return nil
}

// Delete removes a mapping.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mappings, id)
	return nil
}

// checkOverlap rejects a mapping whose channel block intersects an
// existing mapping for the same light in the same universe. Distinct
// lights may share channels: that is how grouped fixtures work.
func (s *Store) checkOverlap(candidate *Mapping, excludeID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.mappings {
		if existing.ID == excludeID {
			continue
		}
		if existing.LightID != candidate.LightID || existing.Universe != candidate.Universe {
			continue
		}
		if candidate.StartChannel <= existing.EndChannel() && existing.StartChannel <= candidate.EndChannel() {
			return fmt.Errorf("%w: channels %d-%d collide with mapping %s (%d-%d)",
				ErrOverlap, candidate.StartChannel, candidate.EndChannel(),
				existing.ID, existing.StartChannel, existing.EndChannel())
		}
	}
	return nil
}
