package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrlplanedev/workspace-engine/internal/domain"
)

// fakeStore is an in-memory stand-in for a store-backed repository with
// conflict-ignore create semantics and injectable failures.
type fakeStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*domain.Resource
	failAll error

	createCalls int
	deleteCalls int
}

func newFakeStore(seed ...*domain.Resource) *fakeStore {
	s := &fakeStore{rows: make(map[uuid.UUID]*domain.Resource)}
	for _, r := range seed {
		s.rows[r.ID] = r
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, id uuid.UUID) (*domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return nil, s.failAll
	}
	return s.rows[id], nil
}

func (s *fakeStore) GetAll(_ context.Context) ([]*domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return nil, s.failAll
	}
	out := make([]*domain.Resource, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, r *domain.Resource) (*domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.failAll != nil {
		return nil, s.failAll
	}
	if existing, ok := s.rows[r.ID]; ok {
		return existing, nil
	}
	s.rows[r.ID] = r
	return r, nil
}

func (s *fakeStore) Update(_ context.Context, r *domain.Resource) (*domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return nil, s.failAll
	}
	s.rows[r.ID] = r
	return r, nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) (*domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	if s.failAll != nil {
		return nil, s.failAll
	}
	existing := s.rows[id]
	delete(s.rows, id)
	return existing, nil
}

func (s *fakeStore) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[id]
	return ok, nil
}

func (s *fakeStore) stored(id uuid.UUID) *domain.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

func testResource(name string) *domain.Resource {
	return &domain.Resource{
		ID:          uuid.New(),
		WorkspaceID: uuid.New(),
		Name:        name,
		Kind:        "service",
		Metadata:    map[string]string{},
	}
}

func TestCachedRepository_HydratesSnapshot(t *testing.T) {
	seed := []*domain.Resource{testResource("a"), testResource("b"), testResource("c")}
	store := newFakeStore(seed...)

	cache, err := NewCachedRepository(context.Background(), "resource", store, WriteAwait)
	require.NoError(t, err)

	all, err := cache.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	for _, r := range seed {
		got, err := cache.Get(context.Background(), r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.Name, got.Name)
	}
}

func TestCachedRepository_HydrationFailure(t *testing.T) {
	store := newFakeStore()
	store.failAll = errors.New("connection refused")

	cache, err := NewCachedRepository(context.Background(), "resource", store, WriteAwait)
	require.Error(t, err)
	assert.Nil(t, cache)
}

func TestCachedRepository_GetMissReturnsNil(t *testing.T) {
	cache, err := NewCachedRepository(context.Background(), "resource", newFakeStore(), WriteAwait)
	require.NoError(t, err)

	got, err := cache.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCachedRepository_ReadYourWrites(t *testing.T) {
	store := newFakeStore()
	cache, err := NewCachedRepository(context.Background(), "resource", store, WriteAwait)
	require.NoError(t, err)

	res := testResource("web")
	_, err = cache.Create(context.Background(), res)
	require.NoError(t, err)

	got, err := cache.Get(context.Background(), res.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "web", got.Name)
	assert.NotNil(t, store.stored(res.ID))
}

func TestCachedRepository_DuplicateCreateDiverges(t *testing.T) {
	first := testResource("first")
	store := newFakeStore(first)
	cache, err := NewCachedRepository(context.Background(), "resource", store, WriteAwait)
	require.NoError(t, err)

	second := *first
	second.Name = "second"
	_, err = cache.Create(context.Background(), &second)
	require.NoError(t, err)

	// The cache keeps the latest payload while the store retains the
	// original row.
	cached, err := cache.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", cached.Name)
	assert.Equal(t, "first", store.stored(first.ID).Name)
}

func TestCachedRepository_AwaitedFailurePropagates(t *testing.T) {
	store := newFakeStore()
	cache, err := NewCachedRepository(context.Background(), "resource", store, WriteAwait)
	require.NoError(t, err)

	store.failAll = errors.New("write timeout")
	res := testResource("web")
	_, err = cache.Create(context.Background(), res)
	require.Error(t, err)

	// The cache mutation stands; reconciliation is the caller's call.
	got, err := cache.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestCachedRepository_DetachedFailureIsSwallowed(t *testing.T) {
	store := newFakeStore()
	var (
		mu       sync.Mutex
		failures []uuid.UUID
	)
	cache, err := NewCachedRepository(context.Background(), "release", store, WriteDetach,
		WithFailureHandler[*domain.Resource](func(id uuid.UUID, _ error) {
			mu.Lock()
			failures = append(failures, id)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	store.failAll = errors.New("write timeout")
	res := testResource("web")
	_, err = cache.Create(context.Background(), res)
	require.NoError(t, err)
	cache.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failures, 1)
	assert.Equal(t, res.ID, failures[0])
}

func TestCachedRepository_DetachedWriteReachesStore(t *testing.T) {
	store := newFakeStore()
	cache, err := NewCachedRepository(context.Background(), "release", store, WriteDetach)
	require.NoError(t, err)

	res := testResource("web")
	_, err = cache.Create(context.Background(), res)
	require.NoError(t, err)
	cache.Wait()

	assert.NotNil(t, store.stored(res.ID))
}

func TestCachedRepository_DetachedWriteSurvivesCancelledContext(t *testing.T) {
	store := newFakeStore()
	cache, err := NewCachedRepository(context.Background(), "release", store, WriteDetach)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	res := testResource("web")
	_, err = cache.Create(ctx, res)
	require.NoError(t, err)
	cancel()
	cache.Wait()

	assert.NotNil(t, store.stored(res.ID))
}

func TestCachedRepository_DeleteRemovesFromCacheFirst(t *testing.T) {
	res := testResource("web")
	store := newFakeStore(res)
	cache, err := NewCachedRepository(context.Background(), "resource", store, WriteAwait)
	require.NoError(t, err)

	snapshot, err := cache.Delete(context.Background(), res.ID)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, res.ID, snapshot.ID)

	got, err := cache.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, store.stored(res.ID))
}

func TestCachedRepository_DeleteMissingReturnsNil(t *testing.T) {
	store := newFakeStore()
	cache, err := NewCachedRepository(context.Background(), "resource", store, WriteAwait)
	require.NoError(t, err)

	snapshot, err := cache.Delete(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, snapshot)
	assert.Equal(t, 1, store.deleteCalls)
}

func TestCachedRepository_UpdateReplacesCachedValue(t *testing.T) {
	res := testResource("web")
	store := newFakeStore(res)
	cache, err := NewCachedRepository(context.Background(), "resource", store, WriteAwait)
	require.NoError(t, err)

	updated := *res
	updated.Name = "web-v2"
	_, err = cache.Update(context.Background(), &updated)
	require.NoError(t, err)

	got, err := cache.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "web-v2", got.Name)
	assert.Equal(t, "web-v2", store.stored(res.ID).Name)
}

func TestCachedRepository_ExistsTracksCache(t *testing.T) {
	res := testResource("web")
	store := newFakeStore(res)
	cache, err := NewCachedRepository(context.Background(), "resource", store, WriteAwait)
	require.NoError(t, err)

	ok, err := cache.Exists(context.Background(), res.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Exists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}
