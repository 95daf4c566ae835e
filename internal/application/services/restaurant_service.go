package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/dineatlas/restaurant-directory/internal/core/domain/restaurant"
	"github.com/dineatlas/restaurant-directory/internal/core/ports"
)

var (
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_cache_hits_total",
			Help: "Cache hits by key namespace",
		},
		[]string{"namespace"},
	)
	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_cache_misses_total",
			Help: "Cache misses by key namespace",
		},
		[]string{"namespace"},
	)
)

func init() {
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
}

// Cache key construction. The format is an implementation contract: two
// logically distinct namespaces ("restaurant:" point keys, "topn:" query
// keys) share one cache instance, and any change to field order or
// formatting invalidates the entire cache on deploy.
func pointKey(name string) string {
	return "restaurant:" + name
}

func cuisineKey(cuisine string, minRating float64, limit int) string {
	return "topn:cuisine:" + cuisine +
		"-minRating:" + strconv.FormatFloat(minRating, 'g', -1, 64) +
		"-limit:" + strconv.Itoa(limit)
}

func regionKey(region string, limit int) string {
	return "topn:region:" + region + "-limit:" + strconv.Itoa(limit)
}

func regionCuisineKey(region, cuisine string, limit int) string {
	return "topn:region:" + region + "-cuisine:" + cuisine + "-limit:" + strconv.Itoa(limit)
}

// cacheGet treats any cache error or decode failure as a miss so the caller
// falls through to the durable store.
func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// cacheSetSilently populates the cache best-effort; a failed write never
// fails the enclosing operation.
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

// RestaurantService coordinates every read and write across the durable
// store and the lookaside cache so the cache never serves a snapshot the
// store has superseded. It is stateless across requests; both adapters must
// be safe for concurrent use.
//
// Known race window: between Rate's store write and its point-key
// invalidation, a concurrent Get may repopulate the point key with the
// pre-rating snapshot. That stale entry lasts until the next mutation of the
// same name or cache expiry. Bounded staleness of this kind is accepted
// rather than locked away. Likewise, top-N query entries are not invalidated
// by name when an underlying restaurant changes; they age out on their own
// TTL.
type RestaurantService struct {
	repo           ports.RestaurantRepository
	cache          ports.Cache
	cachingEnabled bool
	pointTTL       time.Duration
	queryTTL       time.Duration
	logger         *logrus.Logger
	sf             singleflight.Group
}

func NewRestaurantService(repo ports.RestaurantRepository, cache ports.Cache, cachingEnabled bool, pointTTL, queryTTL time.Duration, logger *logrus.Logger) *RestaurantService {
	if cache == nil {
		cachingEnabled = false
	}
	return &RestaurantService{
		repo:           repo,
		cache:          cache,
		cachingEnabled: cachingEnabled,
		pointTTL:       pointTTL,
		queryTTL:       queryTTL,
		logger:         logger,
	}
}

// Create adds a restaurant that does not exist yet. The duplicate check
// consults the cache first: a cache hit is authoritative for the conflict,
// while a cache miss (or cache failure) is always re-checked against the
// store. The store write must complete; the cache populate afterwards is
// best-effort.
func (s *RestaurantService) Create(ctx context.Context, r *restaurant.Restaurant) error {
	if s.cachingEnabled {
		if _, ok := cacheGet[restaurant.Restaurant](s.cache, ctx, pointKey(r.Name)); ok {
			return restaurant.ErrRestaurantExists
		}
	}

	if _, err := s.repo.Get(ctx, r.Name); err == nil {
		return restaurant.ErrRestaurantExists
	} else if !errors.Is(err, restaurant.ErrRestaurantNotFound) {
		return fmt.Errorf("failed to check existing restaurant: %w", err)
	}

	if err := s.repo.Put(ctx, r); err != nil {
		return fmt.Errorf("failed to store restaurant: %w", err)
	}

	if s.cachingEnabled {
		cacheSetSilently(s.cache, ctx, pointKey(r.Name), r, s.pointTTL)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"name": r.Name, "cuisine": r.Cuisine, "region": r.Region}).Info("restaurant created")
	}
	return nil
}

// Get returns the restaurant projection, serving from the point-key cache
// when possible and populating it after a store read.
func (s *RestaurantService) Get(ctx context.Context, name string) (*restaurant.Projection, error) {
	if s.cachingEnabled {
		if cached, ok := cacheGet[restaurant.Restaurant](s.cache, ctx, pointKey(name)); ok {
			cacheHits.WithLabelValues("point").Inc()
			p := cached.Project()
			return &p, nil
		}
		cacheMisses.WithLabelValues("point").Inc()
	}

	r, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	if s.cachingEnabled {
		cacheSetSilently(s.cache, ctx, pointKey(name), r, s.pointTTL)
	}
	p := r.Project()
	return &p, nil
}

// Delete removes the point-key cache entry first, then deletes from the
// store. Deleting an absent restaurant still succeeds.
func (s *RestaurantService) Delete(ctx context.Context, name string) error {
	if s.cachingEnabled {
		if err := s.cache.Delete(ctx, pointKey(name)); err != nil && s.logger != nil {
			s.logger.WithError(err).WithField("name", name).Warn("cache invalidation failed on delete")
		}
	}
	if err := s.repo.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete restaurant: %w", err)
	}
	return nil
}

// Rate folds one rating submission into the running mean. The current state
// is always read from the store, never the cache, so stale snapshots cannot
// compound into the average. The point-key entry is invalidated after the
// write; query-namespace entries are left to expire on TTL.
func (s *RestaurantService) Rate(ctx context.Context, name string, rating float64) error {
	current, err := s.repo.Get(ctx, name)
	if err != nil {
		return err
	}

	newCount := current.RatingCount + 1
	newRating := (current.Rating*float64(current.RatingCount) + rating) / float64(newCount)

	if err := s.repo.UpdateRating(ctx, name, newRating, newCount); err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}

	if s.cachingEnabled {
		if err := s.cache.Delete(ctx, pointKey(name)); err != nil && s.logger != nil {
			s.logger.WithError(err).WithField("name", name).Warn("cache invalidation failed on rate")
		}
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"name": name, "rating": newRating, "count": newCount}).Debug("rating updated")
	}
	return nil
}

// TopByCuisine returns the top-rated restaurants for a cuisine, at or above
// minRating, best rating first.
func (s *RestaurantService) TopByCuisine(ctx context.Context, cuisine string, minRating float64, limit int) ([]restaurant.Projection, error) {
	limit = restaurant.ClampLimit(limit)
	key := cuisineKey(cuisine, minRating, limit)
	return s.topN(ctx, key, minRating, limit, func(ctx context.Context) ([]restaurant.Restaurant, error) {
		return s.repo.QueryByCuisine(ctx, cuisine, limit)
	})
}

// TopByRegion returns the top-rated restaurants for a region, best rating
// first.
func (s *RestaurantService) TopByRegion(ctx context.Context, region string, limit int) ([]restaurant.Projection, error) {
	limit = restaurant.ClampLimit(limit)
	key := regionKey(region, limit)
	return s.topN(ctx, key, 0, limit, func(ctx context.Context) ([]restaurant.Restaurant, error) {
		return s.repo.QueryByRegion(ctx, region, limit)
	})
}

// TopByRegionAndCuisine returns the top-rated restaurants matching both
// region and cuisine, best rating first.
func (s *RestaurantService) TopByRegionAndCuisine(ctx context.Context, region, cuisine string, limit int) ([]restaurant.Projection, error) {
	limit = restaurant.ClampLimit(limit)
	key := regionCuisineKey(region, cuisine, limit)
	return s.topN(ctx, key, 0, limit, func(ctx context.Context) ([]restaurant.Restaurant, error) {
		return s.repo.QueryByRegionAndCuisine(ctx, region, cuisine, limit)
	})
}

// topN runs one derived query: cached result verbatim on hit, otherwise the
// store's secondary path plus the aggregator, coalescing concurrent misses
// for the same key. Empty results are returned as ErrRestaurantNotFound and
// never cached, so a later hit against fresh data is not pinned out.
func (s *RestaurantService) topN(ctx context.Context, key string, minRating float64, limit int, load func(ctx context.Context) ([]restaurant.Restaurant, error)) ([]restaurant.Projection, error) {
	if s.cachingEnabled {
		if cached, ok := cacheGet[[]restaurant.Projection](s.cache, ctx, key); ok {
			cacheHits.WithLabelValues("query").Inc()
			return *cached, nil
		}
		cacheMisses.WithLabelValues("query").Inc()
	}

	res, err, _ := s.sf.Do(key, func() (any, error) {
		if s.cachingEnabled {
			if cached, ok := cacheGet[[]restaurant.Projection](s.cache, ctx, key); ok {
				return *cached, nil
			}
		}
		items, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query restaurants: %w", err)
		}
		top := restaurant.TopN(items, minRating, limit)
		if len(top) == 0 {
			return nil, restaurant.ErrRestaurantNotFound
		}
		if s.cachingEnabled {
			cacheSetSilently(s.cache, ctx, key, top, s.queryTTL)
		}
		return top, nil
	})
	if err != nil {
		return nil, err
	}
	top, ok := res.([]restaurant.Projection)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	return top, nil
}

var _ ports.RestaurantService = (*RestaurantService)(nil)
