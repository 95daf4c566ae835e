package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dineatlas/restaurant-directory/internal/core/domain/restaurant"
	"github.com/dineatlas/restaurant-directory/internal/core/ports"
	"github.com/dineatlas/restaurant-directory/internal/infrastructure/db"
)

// PostgresRestaurantRepository implements the restaurant store on Postgres.
// It exists for deployments (and local development) without DynamoDB; the
// cuisine and region query paths are served by btree indexes instead of
// GSIs.
type PostgresRestaurantRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewPostgresRestaurantRepository(database *db.Database, logger *logrus.Logger) ports.RestaurantRepository {
	return &PostgresRestaurantRepository{
		db:     database,
		logger: logger,
	}
}

const restaurantColumns = `restaurant_name, geo_regional, cuisine, rating, rating_count`

func (r *PostgresRestaurantRepository) Get(ctx context.Context, name string) (*restaurant.Restaurant, error) {
	var rest restaurant.Restaurant
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE restaurant_name = $1`

	err := r.db.DB.GetContext(ctx, &rest, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, restaurant.ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}
	return &rest, nil
}

// Put has DynamoDB PutItem semantics: insert or overwrite.
func (r *PostgresRestaurantRepository) Put(ctx context.Context, rest *restaurant.Restaurant) error {
	query := `
		INSERT INTO restaurants (restaurant_name, geo_regional, cuisine, rating, rating_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (restaurant_name) DO UPDATE
		SET geo_regional = EXCLUDED.geo_regional,
		    cuisine = EXCLUDED.cuisine,
		    rating = EXCLUDED.rating,
		    rating_count = EXCLUDED.rating_count`

	_, err := r.db.DB.ExecContext(ctx, query, rest.Name, rest.Region, rest.Cuisine, rest.Rating, rest.RatingCount)
	if err != nil {
		return fmt.Errorf("failed to put restaurant: %w", err)
	}
	return nil
}

// Delete is idempotent; zero rows affected is not an error.
func (r *PostgresRestaurantRepository) Delete(ctx context.Context, name string) error {
	query := `DELETE FROM restaurants WHERE restaurant_name = $1`

	_, err := r.db.DB.ExecContext(ctx, query, name)
	if err != nil {
		return fmt.Errorf("failed to delete restaurant: %w", err)
	}
	return nil
}

func (r *PostgresRestaurantRepository) UpdateRating(ctx context.Context, name string, rating float64, count int) error {
	query := `UPDATE restaurants SET rating = $2, rating_count = $3 WHERE restaurant_name = $1`

	result, err := r.db.DB.ExecContext(ctx, query, name, rating, count)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return restaurant.ErrRestaurantNotFound
	}
	return nil
}

func (r *PostgresRestaurantRepository) QueryByCuisine(ctx context.Context, cuisine string, limit int) ([]restaurant.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE cuisine = $1 LIMIT $2`
	return r.selectRestaurants(ctx, query, cuisine, limit)
}

func (r *PostgresRestaurantRepository) QueryByRegion(ctx context.Context, region string, limit int) ([]restaurant.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE geo_regional = $1 LIMIT $2`
	return r.selectRestaurants(ctx, query, region, limit)
}

func (r *PostgresRestaurantRepository) QueryByRegionAndCuisine(ctx context.Context, region, cuisine string, limit int) ([]restaurant.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE geo_regional = $1 AND cuisine = $2 LIMIT $3`
	return r.selectRestaurants(ctx, query, region, cuisine, limit)
}

func (r *PostgresRestaurantRepository) selectRestaurants(ctx context.Context, query string, args ...any) ([]restaurant.Restaurant, error) {
	var restaurants []restaurant.Restaurant
	if err := r.db.DB.SelectContext(ctx, &restaurants, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query restaurants: %w", err)
	}
	return restaurants, nil
}

var _ ports.RestaurantRepository = (*PostgresRestaurantRepository)(nil)
