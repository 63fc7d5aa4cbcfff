package geocoder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/foodcart/pkg/geo"
	"github.com/example/foodcart/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]models.AddressCoordinates
	saveErr error
	loadErr error
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: map[string]models.AddressCoordinates{}}
}

func (s *memoryStore) LoadCoordinates(_ context.Context, address string) (*models.AddressCoordinates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	e, ok := s.entries[address]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *memoryStore) SaveCoordinates(_ context.Context, entry *models.AddressCoordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.entries[entry.Address] = *entry
	return nil
}

func (s *memoryStore) DeleteCoordinates(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, address)
	s.deleted = append(s.deleted, address)
	return nil
}

type fakeGeocoder struct {
	calls  map[string]int
	points map[string]*geo.Point
	err    error
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{calls: map[string]int{}, points: map[string]*geo.Point{}}
}

func (g *fakeGeocoder) Geocode(_ context.Context, address string) (*geo.Point, error) {
	g.calls[address]++
	if g.err != nil {
		return nil, g.err
	}
	p, ok := g.points[address]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func newTestResolver(store Store, gc Geocoder, now *time.Time) *Resolver {
	r := NewResolver(store, gc, 24*time.Hour, zap.NewNop())
	r.now = func() time.Time { return *now }
	return r
}

func TestResolver_CachesWithinTTL(t *testing.T) {
	now := time.Date(2025, 2, 20, 10, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	gc := newFakeGeocoder()
	gc.points["Москва, Тверская 1"] = &geo.Point{Lat: 55.76, Lon: 37.61}
	r := newTestResolver(store, gc, &now)
	ctx := context.Background()

	first := r.Resolve(ctx, "Москва, Тверская 1")
	require.Equal(t, StatusFound, first.Status)
	assert.False(t, first.Cached)

	now = now.Add(23 * time.Hour)
	second := r.Resolve(ctx, "Москва, Тверская 1")
	require.Equal(t, StatusFound, second.Status)
	assert.True(t, second.Cached)
	assert.Equal(t, *first.Point, *second.Point)
	assert.Equal(t, 1, gc.calls["Москва, Тверская 1"])
}

func TestResolver_RefreshesStaleEntry(t *testing.T) {
	now := time.Date(2025, 2, 20, 10, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	gc := newFakeGeocoder()
	gc.points["Тула"] = &geo.Point{Lat: 54.19, Lon: 37.61}
	r := newTestResolver(store, gc, &now)
	ctx := context.Background()

	r.Resolve(ctx, "Тула")
	now = now.Add(25 * time.Hour)
	res := r.Resolve(ctx, "Тула")

	assert.Equal(t, StatusFound, res.Status)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, gc.calls["Тула"])
	assert.True(t, store.entries["Тула"].UpdatedAt.Equal(now))
}

func TestResolver_NotFoundIsCached(t *testing.T) {
	now := time.Now()
	store := newMemoryStore()
	gc := newFakeGeocoder()
	r := newTestResolver(store, gc, &now)
	ctx := context.Background()

	res := r.Resolve(ctx, "nowhere")
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Nil(t, res.Point)
	assert.NoError(t, res.Err)

	entry, ok := store.entries["nowhere"]
	require.True(t, ok)
	assert.Nil(t, entry.Latitude)
	assert.Nil(t, entry.Longitude)

	again := r.Resolve(ctx, "nowhere")
	assert.Equal(t, StatusNotFound, again.Status)
	assert.True(t, again.Cached)
	assert.Equal(t, 1, gc.calls["nowhere"])
}

func TestResolver_FailurePersistsNull(t *testing.T) {
	now := time.Now()
	store := newMemoryStore()
	gc := newFakeGeocoder()
	gc.err = errors.New("connection refused")
	r := newTestResolver(store, gc, &now)

	res := r.Resolve(context.Background(), "Москва")
	assert.Equal(t, StatusFailed, res.Status)
	assert.Error(t, res.Err)
	assert.Nil(t, r.Lookup(context.Background(), "Москва"))

	entry, ok := store.entries["Москва"]
	require.True(t, ok)
	assert.Nil(t, entry.Point())
	assert.Equal(t, 1, gc.calls["Москва"])
}

func TestResolver_SaveFailureIsFailure(t *testing.T) {
	now := time.Now()
	store := newMemoryStore()
	store.saveErr = errors.New("disk full")
	gc := newFakeGeocoder()
	gc.points["Тула"] = &geo.Point{Lat: 54.19, Lon: 37.61}
	r := newTestResolver(store, gc, &now)

	res := r.Resolve(context.Background(), "Тула")
	assert.Equal(t, StatusFailed, res.Status)
	assert.Nil(t, res.Point)
}

func TestResolver_LoadFailureFallsThrough(t *testing.T) {
	now := time.Now()
	store := newMemoryStore()
	store.loadErr = errors.New("timeout")
	gc := newFakeGeocoder()
	gc.points["Тула"] = &geo.Point{Lat: 54.19, Lon: 37.61}
	r := newTestResolver(store, gc, &now)

	res := r.Resolve(context.Background(), "Тула")
	assert.Equal(t, StatusFound, res.Status)
	assert.Equal(t, 1, gc.calls["Тула"])
}

func TestResolver_NoNormalisation(t *testing.T) {
	now := time.Now()
	store := newMemoryStore()
	gc := newFakeGeocoder()
	r := newTestResolver(store, gc, &now)
	ctx := context.Background()

	r.Resolve(ctx, "Тула")
	r.Resolve(ctx, " Тула ")
	r.Resolve(ctx, "тула")

	assert.Len(t, store.entries, 3)
}

func TestResolver_EmptyAddress(t *testing.T) {
	now := time.Now()
	gc := newFakeGeocoder()
	r := newTestResolver(newMemoryStore(), gc, &now)

	res := r.Resolve(context.Background(), "")
	assert.Equal(t, StatusFailed, res.Status)
	assert.Empty(t, gc.calls)
}

func TestResolver_Invalidate(t *testing.T) {
	now := time.Now()
	store := newMemoryStore()
	gc := newFakeGeocoder()
	gc.points["Тула"] = &geo.Point{Lat: 54.19, Lon: 37.61}
	r := newTestResolver(store, gc, &now)
	ctx := context.Background()

	r.Resolve(ctx, "Тула")
	require.NoError(t, r.Invalidate(ctx, "Тула"))
	r.Resolve(ctx, "Тула")

	assert.Equal(t, []string{"Тула"}, store.deleted)
	assert.Equal(t, 2, gc.calls["Тула"])
}
