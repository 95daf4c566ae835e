package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dineatlas/restaurant-directory/internal/application/services"
	"github.com/dineatlas/restaurant-directory/internal/core/domain/restaurant"
)

// fakeStore keeps restaurants in insertion order so tie order in query
// results is deterministic.
type fakeStore struct {
	mu         sync.Mutex
	items      []restaurant.Restaurant
	getCalls   int
	queryCalls int
	failAll    error
}

func (f *fakeStore) Get(ctx context.Context, name string) (*restaurant.Restaurant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.failAll != nil {
		return nil, f.failAll
	}
	for _, r := range f.items {
		if r.Name == name {
			cp := r
			return &cp, nil
		}
	}
	return nil, restaurant.ErrRestaurantNotFound
}

func (f *fakeStore) Put(ctx context.Context, r *restaurant.Restaurant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	for i := range f.items {
		if f.items[i].Name == r.Name {
			f.items[i] = *r
			return nil
		}
	}
	f.items = append(f.items, *r)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	for i := range f.items {
		if f.items[i].Name == name {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) UpdateRating(ctx context.Context, name string, rating float64, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	for i := range f.items {
		if f.items[i].Name == name {
			f.items[i].Rating = rating
			f.items[i].RatingCount = count
			return nil
		}
	}
	return restaurant.ErrRestaurantNotFound
}

func (f *fakeStore) QueryByCuisine(ctx context.Context, cuisine string, limit int) ([]restaurant.Restaurant, error) {
	return f.query(func(r restaurant.Restaurant) bool { return r.Cuisine == cuisine }, limit)
}

func (f *fakeStore) QueryByRegion(ctx context.Context, region string, limit int) ([]restaurant.Restaurant, error) {
	return f.query(func(r restaurant.Restaurant) bool { return r.Region == region }, limit)
}

func (f *fakeStore) QueryByRegionAndCuisine(ctx context.Context, region, cuisine string, limit int) ([]restaurant.Restaurant, error) {
	return f.query(func(r restaurant.Restaurant) bool { return r.Region == region && r.Cuisine == cuisine }, limit)
}

func (f *fakeStore) query(match func(restaurant.Restaurant) bool, limit int) ([]restaurant.Restaurant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []restaurant.Restaurant
	for _, r := range f.items {
		if match(r) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	failAll  error
	setKeys  []string
	getCalls int
	setCalls int
	delCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.failAll != nil {
		return nil, false, f.failAll
	}
	b, ok := f.data[key]
	return b, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.failAll != nil {
		return f.failAll
	}
	f.data[key] = value
	f.setKeys = append(f.setKeys, key)
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delCalls++
	if f.failAll != nil {
		return f.failAll
	}
	delete(f.data, key)
	return nil
}

func (f *fakeCache) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func (f *fakeCache) seed(t *testing.T, key string, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	f.mu.Lock()
	f.data[key] = b
	f.mu.Unlock()
}

func newService(store *fakeStore, cache *fakeCache, cachingEnabled bool) *services.RestaurantService {
	if cache == nil {
		return services.NewRestaurantService(store, nil, cachingEnabled, time.Minute, time.Minute, nil)
	}
	return services.NewRestaurantService(store, cache, cachingEnabled, time.Minute, time.Minute, nil)
}

func TestCreateThenGet(t *testing.T) {
	for _, cached := range []bool{true, false} {
		name := "cache disabled"
		if cached {
			name = "cache enabled"
		}
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{}
			cache := newFakeCache()
			svc := newService(store, cache, cached)
			ctx := context.Background()

			err := svc.Create(ctx, &restaurant.Restaurant{
				Name: "Pasta Palace", Region: "north", Cuisine: "Italian", Rating: 4.5,
			})
			require.NoError(t, err)

			proj, err := svc.Get(ctx, "Pasta Palace")
			require.NoError(t, err)
			require.Equal(t, "Pasta Palace", proj.Name)
			require.Equal(t, "Italian", proj.Cuisine)
			require.Equal(t, "north", proj.Region)
			require.Equal(t, 4.5, proj.Rating)
		})
	}
}

func TestCreateDuplicateInStore(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{{Name: "Taco Town"}}}
	cache := newFakeCache()
	svc := newService(store, cache, true)

	err := svc.Create(context.Background(), &restaurant.Restaurant{Name: "Taco Town"})
	require.ErrorIs(t, err, restaurant.ErrRestaurantExists)
}

func TestCreateDuplicateInCacheOnly(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	cache.seed(t, "restaurant:Taco Town", restaurant.Restaurant{Name: "Taco Town"})
	svc := newService(store, cache, true)

	err := svc.Create(context.Background(), &restaurant.Restaurant{Name: "Taco Town"})
	require.ErrorIs(t, err, restaurant.ErrRestaurantExists)
	require.Zero(t, store.getCalls, "cache hit must short-circuit the store check")
}

func TestCreatePopulatesPointKey(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	svc := newService(store, cache, true)

	require.NoError(t, svc.Create(context.Background(), &restaurant.Restaurant{Name: "Sushi Spot"}))
	require.True(t, cache.has("restaurant:Sushi Spot"))
}

func TestGetMissing(t *testing.T) {
	svc := newService(&fakeStore{}, newFakeCache(), true)

	_, err := svc.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, restaurant.ErrRestaurantNotFound)
}

func TestGetServesFromCacheWithoutStore(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	cache.seed(t, "restaurant:Cached Corner", restaurant.Restaurant{Name: "Cached Corner", Rating: 4})
	svc := newService(store, cache, true)

	proj, err := svc.Get(context.Background(), "Cached Corner")
	require.NoError(t, err)
	require.Equal(t, 4.0, proj.Rating)
	require.Zero(t, store.getCalls)
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc := newService(&fakeStore{}, newFakeCache(), true)
	require.NoError(t, svc.Delete(context.Background(), "never existed"))
}

func TestDeleteInvalidatesPointKey(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{{Name: "Closing Down"}}}
	cache := newFakeCache()
	cache.seed(t, "restaurant:Closing Down", restaurant.Restaurant{Name: "Closing Down"})
	svc := newService(store, cache, true)

	require.NoError(t, svc.Delete(context.Background(), "Closing Down"))
	require.False(t, cache.has("restaurant:Closing Down"))
	require.Empty(t, store.items)
}

func TestRateComputesRunningMean(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{{Name: "Bistro", Rating: 3, RatingCount: 1}}}
	svc := newService(store, nil, false)
	ctx := context.Background()

	require.NoError(t, svc.Rate(ctx, "Bistro", 5))

	require.InDelta(t, 4.0, store.items[0].Rating, 1e-9)
	require.Equal(t, 2, store.items[0].RatingCount)

	require.NoError(t, svc.Rate(ctx, "Bistro", 1))
	require.InDelta(t, 3.0, store.items[0].Rating, 1e-9)
	require.Equal(t, 3, store.items[0].RatingCount)
}

func TestRateFirstSubmission(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{{Name: "New Place"}}}
	svc := newService(store, nil, false)

	require.NoError(t, svc.Rate(context.Background(), "New Place", 5))
	require.InDelta(t, 5.0, store.items[0].Rating, 1e-9)
	require.Equal(t, 1, store.items[0].RatingCount)
}

func TestRateMissing(t *testing.T) {
	svc := newService(&fakeStore{}, nil, false)
	err := svc.Rate(context.Background(), "ghost", 4)
	require.ErrorIs(t, err, restaurant.ErrRestaurantNotFound)
}

func TestRateReadsStoreNotCache(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{{Name: "Bistro", Rating: 3, RatingCount: 1}}}
	cache := newFakeCache()
	// A stale snapshot in the cache must not feed the mean.
	cache.seed(t, "restaurant:Bistro", restaurant.Restaurant{Name: "Bistro", Rating: 1, RatingCount: 1})
	svc := newService(store, cache, true)

	require.NoError(t, svc.Rate(context.Background(), "Bistro", 5))
	require.InDelta(t, 4.0, store.items[0].Rating, 1e-9)
}

func TestRateInvalidatesPointKey(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{{Name: "Bistro", Rating: 3, RatingCount: 1}}}
	cache := newFakeCache()
	svc := newService(store, cache, true)
	ctx := context.Background()

	_, err := svc.Get(ctx, "Bistro")
	require.NoError(t, err)
	require.True(t, cache.has("restaurant:Bistro"))

	require.NoError(t, svc.Rate(ctx, "Bistro", 5))
	require.False(t, cache.has("restaurant:Bistro"))

	proj, err := svc.Get(ctx, "Bistro")
	require.NoError(t, err)
	require.InDelta(t, 4.0, proj.Rating, 1e-9)
}

func TestTopByCuisineOrdersAndLimits(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{
		{Name: "A", Cuisine: "Italian", Rating: 3},
		{Name: "B", Cuisine: "Italian", Rating: 5},
		{Name: "C", Cuisine: "Italian", Rating: 4},
	}}
	svc := newService(store, nil, false)

	results, err := svc.TopByCuisine(context.Background(), "Italian", 0, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "B", results[0].Name)
	require.Equal(t, "C", results[1].Name)
}

func TestTopByCuisineMinRating(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{
		{Name: "A", Cuisine: "Italian", Rating: 3},
		{Name: "B", Cuisine: "Italian", Rating: 5},
		{Name: "C", Cuisine: "Italian", Rating: 4},
	}}
	svc := newService(store, nil, false)
	ctx := context.Background()

	results, err := svc.TopByCuisine(ctx, "Italian", 4, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	_, err = svc.TopByCuisine(ctx, "Italian", 5.1, 10)
	require.ErrorIs(t, err, restaurant.ErrRestaurantNotFound)
}

func TestTopByRegion(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{
		{Name: "A", Region: "north", Rating: 2},
		{Name: "B", Region: "south", Rating: 5},
		{Name: "C", Region: "north", Rating: 4},
	}}
	svc := newService(store, nil, false)

	results, err := svc.TopByRegion(context.Background(), "north", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "C", results[0].Name)
	require.Equal(t, "A", results[1].Name)
}

func TestTopByRegionAndCuisine(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{
		{Name: "A", Region: "north", Cuisine: "Italian", Rating: 2},
		{Name: "B", Region: "north", Cuisine: "Mexican", Rating: 5},
		{Name: "C", Region: "south", Cuisine: "Italian", Rating: 4},
	}}
	svc := newService(store, nil, false)

	results, err := svc.TopByRegionAndCuisine(context.Background(), "north", "Italian", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "A", results[0].Name)
}

func TestTopNEmptyResultNotCached(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	svc := newService(store, cache, true)
	ctx := context.Background()

	_, err := svc.TopByCuisine(ctx, "Martian", 0, 10)
	require.ErrorIs(t, err, restaurant.ErrRestaurantNotFound)
	require.Zero(t, cache.setCalls)

	// A second query must re-consult the store instead of pinning the miss.
	_, err = svc.TopByCuisine(ctx, "Martian", 0, 10)
	require.ErrorIs(t, err, restaurant.ErrRestaurantNotFound)
	require.Equal(t, 2, store.queryCalls)
}

func TestTopNServedFromCacheAfterFirstQuery(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{
		{Name: "A", Cuisine: "Italian", Rating: 3},
		{Name: "B", Cuisine: "Italian", Rating: 5},
	}}
	cache := newFakeCache()
	svc := newService(store, cache, true)
	ctx := context.Background()

	first, err := svc.TopByCuisine(ctx, "Italian", 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, store.queryCalls)

	// Mutate the store; the cached result is served verbatim until its TTL.
	require.NoError(t, svc.Rate(ctx, "B", 0))

	second, err := svc.TopByCuisine(ctx, "Italian", 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, store.queryCalls)
	require.Equal(t, first, second)
}

func TestTopNQueryKeysDistinctPerShape(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{
		{Name: "A", Region: "X", Cuisine: "X", Rating: 4},
	}}
	cache := newFakeCache()
	svc := newService(store, cache, true)
	ctx := context.Background()

	_, err := svc.TopByCuisine(ctx, "X", 0, 10)
	require.NoError(t, err)
	_, err = svc.TopByRegion(ctx, "X", 10)
	require.NoError(t, err)
	_, err = svc.TopByRegionAndCuisine(ctx, "X", "X", 10)
	require.NoError(t, err)

	require.Len(t, cache.setKeys, 3)
	seen := map[string]bool{}
	for _, k := range cache.setKeys {
		require.False(t, seen[k], "key %q reused across query shapes", k)
		seen[k] = true
	}
	require.Contains(t, seen, "topn:cuisine:X-minRating:0-limit:10")
	require.Contains(t, seen, "topn:region:X-limit:10")
	require.Contains(t, seen, "topn:region:X-cuisine:X-limit:10")
}

func TestTopNLimitDefaultsAndClamps(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 15; i++ {
		store.items = append(store.items, restaurant.Restaurant{
			Name: string(rune('a' + i)), Cuisine: "Thai", Rating: float64(i%5) + 0.5,
		})
	}
	cache := newFakeCache()
	svc := newService(store, cache, true)
	ctx := context.Background()

	results, err := svc.TopByCuisine(ctx, "Thai", 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 10, "absent limit defaults to 10")
	require.Contains(t, cache.setKeys[0], "-limit:10", "cache key carries the clamped limit")

	results, err = svc.TopByCuisine(ctx, "Thai", 0, 1000)
	require.NoError(t, err)
	require.Len(t, results, 15, "oversized limit clamps rather than errors")
}

func TestCacheFailureFallsBackToStore(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{
		{Name: "Bistro", Cuisine: "French", Rating: 4, RatingCount: 2},
	}}
	cache := newFakeCache()
	cache.failAll = errors.New("connection refused")
	svc := newService(store, cache, true)
	ctx := context.Background()

	proj, err := svc.Get(ctx, "Bistro")
	require.NoError(t, err)
	require.Equal(t, "Bistro", proj.Name)

	require.NoError(t, svc.Create(ctx, &restaurant.Restaurant{Name: "Brand New", Cuisine: "French"}))
	require.NoError(t, svc.Rate(ctx, "Bistro", 5))
	require.NoError(t, svc.Delete(ctx, "Brand New"))

	results, err := svc.TopByCuisine(ctx, "French", 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestCachingDisabledNeverTouchesCache(t *testing.T) {
	store := &fakeStore{items: []restaurant.Restaurant{
		{Name: "Bistro", Cuisine: "French", Rating: 4, RatingCount: 1},
	}}
	cache := newFakeCache()
	svc := newService(store, cache, false)
	ctx := context.Background()

	_, err := svc.Get(ctx, "Bistro")
	require.NoError(t, err)
	require.NoError(t, svc.Rate(ctx, "Bistro", 5))
	_, err = svc.TopByCuisine(ctx, "French", 0, 10)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "Bistro"))

	require.Zero(t, cache.getCalls+cache.setCalls+cache.delCalls)
}

func TestStoreFailureSurfaces(t *testing.T) {
	boom := errors.New("provisioned throughput exceeded")
	store := &fakeStore{failAll: boom}
	svc := newService(store, newFakeCache(), true)
	ctx := context.Background()

	_, err := svc.Get(ctx, "any")
	require.ErrorIs(t, err, boom)

	err = svc.Create(ctx, &restaurant.Restaurant{Name: "any"})
	require.ErrorIs(t, err, boom)

	_, err = svc.TopByCuisine(ctx, "any", 0, 10)
	require.ErrorIs(t, err, boom)
}
