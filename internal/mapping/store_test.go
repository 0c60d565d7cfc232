package mapping

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeRepo is an in-memory Repository for store tests.
type fakeRepo struct {
	mu       sync.Mutex
	mappings map[string]Mapping
	failNext error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{mappings: make(map[string]Mapping)}
}

func (f *fakeRepo) takeErr() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Mapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mappings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (f *fakeRepo) List(context.Context) ([]Mapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	out := make([]Mapping, 0, len(f.mappings))
	for _, m := range f.mappings {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeRepo) ListByUniverse(_ context.Context, universe uint16) ([]Mapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Mapping
	for _, m := range f.mappings {
		if m.Universe == universe {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) Create(_ context.Context, m *Mapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return err
	}
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	f.mappings[m.ID] = *m
	return nil
}

func (f *fakeRepo) Update(_ context.Context, m *Mapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.mappings[m.ID]; !ok {
		return ErrNotFound
	}
	m.UpdatedAt = time.Now().UTC()
	f.mappings[m.ID] = *m
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.mappings[id]; !ok {
		return ErrNotFound
	}
	delete(f.mappings, id)
	return nil
}

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(newFakeRepo())
	ctx := context.Background()

	m := validMapping()
	if err := store.Create(ctx, &m); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if m.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}

	got, err := store.Get(m.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.LightID != m.LightID {
		t.Errorf("LightID = %q, want %q", got.LightID, m.LightID)
	}
}

func TestStore_CreateValidates(t *testing.T) {
	store := NewStore(newFakeRepo())

	m := validMapping()
	m.Universe = 0
	if err := store.Create(context.Background(), &m); !errors.Is(err, ErrInvalid) {
		t.Errorf("Create() error = %v, want ErrInvalid", err)
	}
	if store.Count() != 0 {
		t.Error("invalid mapping reached the cache")
	}
}

func TestStore_CreateRejectsOverlap(t *testing.T) {
	store := NewStore(newFakeRepo())
	ctx := context.Background()

	first := validMapping() // rgb8: channels 1-3
	if err := store.Create(ctx, &first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Same light, same universe, intersecting channels.
	second := validMapping()
	second.StartChannel = 3
	if err := store.Create(ctx, &second); !errors.Is(err, ErrOverlap) {
		t.Errorf("overlapping Create() error = %v, want ErrOverlap", err)
	}

	// Same channels, different light: allowed (grouped fixtures).
	third := validMapping()
	third.LightID = "d073d5aaaaaa"
	if err := store.Create(ctx, &third); err != nil {
		t.Errorf("same-channel different-light Create() error = %v", err)
	}

	// Same light, adjacent but non-intersecting channels: allowed.
	fourth := validMapping()
	fourth.StartChannel = 4
	if err := store.Create(ctx, &fourth); err != nil {
		t.Errorf("adjacent Create() error = %v", err)
	}
}

func TestStore_UpdateExcludesSelfFromOverlap(t *testing.T) {
	store := NewStore(newFakeRepo())
	ctx := context.Background()

	m := validMapping()
	if err := store.Create(ctx, &m); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Updating a mapping in place must not collide with itself.
	m.BrightnessCap = 0.5
	if err := store.Update(ctx, &m); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := store.Get(m.ID)
	if got.BrightnessCap != 0.5 {
		t.Errorf("BrightnessCap = %v, want 0.5", got.BrightnessCap)
	}
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(newFakeRepo())
	ctx := context.Background()

	m := validMapping()
	if err := store.Create(ctx, &m); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}

	if err := store.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() unknown = %v, want ErrNotFound", err)
	}
}

func TestStore_ByUniverseFiltersDisabled(t *testing.T) {
	store := NewStore(newFakeRepo())
	ctx := context.Background()

	enabled := validMapping()
	if err := store.Create(ctx, &enabled); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	disabled := validMapping()
	disabled.LightID = "d073d5bbbbbb"
	disabled.StartChannel = 10
	disabled.Enabled = false
	if err := store.Create(ctx, &disabled); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got := store.ByUniverse(1)
	if len(got) != 1 {
		t.Fatalf("ByUniverse(1) returned %d mappings, want 1", len(got))
	}
	if got[0].ID != enabled.ID {
		t.Errorf("ByUniverse(1) returned %s, want %s", got[0].ID, enabled.ID)
	}

	if got := store.ByUniverse(2); len(got) != 0 {
		t.Errorf("ByUniverse(2) returned %d mappings, want 0", len(got))
	}
}

func TestStore_Universes(t *testing.T) {
	store := NewStore(newFakeRepo())
	ctx := context.Background()

	a := validMapping()
	a.Universe = 1
	b := validMapping()
	b.LightID = "d073d5bbbbbb"
	b.Universe = 5
	c := validMapping()
	c.LightID = "d073d5cccccc"
	c.Universe = 9
	c.Enabled = false

	for _, m := range []*Mapping{&a, &b, &c} {
		if err := store.Create(ctx, m); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	universes := store.Universes()
	if len(universes) != 2 {
		t.Fatalf("Universes() = %v, want two entries", universes)
	}
	seen := map[uint16]bool{}
	for _, u := range universes {
		seen[u] = true
	}
	if !seen[1] || !seen[5] {
		t.Errorf("Universes() = %v, want 1 and 5", universes)
	}
}

func TestStore_Load(t *testing.T) {
	repo := newFakeRepo()
	repo.mappings["abc"] = Mapping{ID: "abc", LightID: "x", Universe: 1, StartChannel: 1, Mode: ModeRGB8, Enabled: true}

	store := NewStore(repo)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("Count() = %d, want 1", store.Count())
	}

	repo.failNext = errors.New("db gone")
	if err := store.Load(context.Background()); err == nil {
		t.Error("Load() expected error when repository fails")
	}
}
