package restaurant

import "errors"

var (
	// ErrRestaurantExists is returned when a create targets a name that is
	// already present in the cache or the durable store.
	ErrRestaurantExists = errors.New("restaurant already exists")
	// ErrRestaurantNotFound is returned for lookups, rating submissions and
	// top-N queries that match nothing.
	ErrRestaurantNotFound = errors.New("restaurant not found")
)

// Restaurant is the authoritative record for a single restaurant. Name is
// the primary key and immutable once created. Rating is always the
// arithmetic mean of the submissions folded in so far; RatingCount grows by
// one per accepted submission and never decreases.
//
// The dynamodbav/db tags carry the store attribute names, which predate this
// service and differ from the external JSON shape.
type Restaurant struct {
	Name        string  `json:"name" db:"restaurant_name" dynamodbav:"RestaurantName"`
	Region      string  `json:"region" db:"geo_regional" dynamodbav:"GeoRegional"`
	Cuisine     string  `json:"cuisine" db:"cuisine" dynamodbav:"Cuisine"`
	Rating      float64 `json:"rating" db:"rating" dynamodbav:"Rating"`
	RatingCount int     `json:"rating_count" db:"rating_count" dynamodbav:"RatingCount"`
}

// Projection is the external read shape for entity reads and top-N query
// results. The store attribute names never leak past this boundary.
type Projection struct {
	Name    string  `json:"name"`
	Cuisine string  `json:"cuisine"`
	Rating  float64 `json:"rating"`
	Region  string  `json:"region"`
}

// Project maps the stored record to its external view.
func (r *Restaurant) Project() Projection {
	return Projection{
		Name:    r.Name,
		Cuisine: r.Cuisine,
		Rating:  r.Rating,
		Region:  r.Region,
	}
}

// CreateRestaurantRequest is the request body for creating a restaurant.
// Region, cuisine and the initial rating are optional.
type CreateRestaurantRequest struct {
	Name    string  `json:"name"`
	Region  string  `json:"region"`
	Cuisine string  `json:"cuisine"`
	Rating  float64 `json:"rating"`
}

// RateRestaurantRequest is the request body for submitting a rating.
type RateRestaurantRequest struct {
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}
