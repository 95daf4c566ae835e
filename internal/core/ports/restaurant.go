package ports

import (
	"context"

	"github.com/dineatlas/restaurant-directory/internal/core/domain/restaurant"
)

// RestaurantRepository defines the durable, authoritative store for
// restaurants. Get and UpdateRating report absence as
// restaurant.ErrRestaurantNotFound; Delete is idempotent and does not
// distinguish "didn't exist" from "deleted". The three query methods are the
// store's secondary access paths and return candidates in store order,
// unsorted and unfiltered by rating.
type RestaurantRepository interface {
	Get(ctx context.Context, name string) (*restaurant.Restaurant, error)
	Put(ctx context.Context, r *restaurant.Restaurant) error
	Delete(ctx context.Context, name string) error
	UpdateRating(ctx context.Context, name string, rating float64, count int) error
	QueryByCuisine(ctx context.Context, cuisine string, limit int) ([]restaurant.Restaurant, error)
	QueryByRegion(ctx context.Context, region string, limit int) ([]restaurant.Restaurant, error)
	QueryByRegionAndCuisine(ctx context.Context, region, cuisine string, limit int) ([]restaurant.Restaurant, error)
}

// RestaurantService is the application-facing surface: point operations plus
// the derived top-N queries, with the cache-aside protocol behind it.
type RestaurantService interface {
	Create(ctx context.Context, r *restaurant.Restaurant) error
	Get(ctx context.Context, name string) (*restaurant.Projection, error)
	Delete(ctx context.Context, name string) error
	Rate(ctx context.Context, name string, rating float64) error
	TopByCuisine(ctx context.Context, cuisine string, minRating float64, limit int) ([]restaurant.Projection, error)
	TopByRegion(ctx context.Context, region string, limit int) ([]restaurant.Projection, error)
	TopByRegionAndCuisine(ctx context.Context, region, cuisine string, limit int) ([]restaurant.Projection, error)
}
