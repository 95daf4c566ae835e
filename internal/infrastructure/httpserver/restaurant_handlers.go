package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dineatlas/restaurant-directory/internal/core/domain/restaurant"
)

func (s *Server) getRuntimeInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, s.runtimeInfo)
}

func (s *Server) createRestaurant(c echo.Context) error {
	var req restaurant.CreateRestaurantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if req.Rating < 0 || req.Rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 0 and 5")
	}

	err := s.restaurantSvc.Create(c.Request().Context(), &restaurant.Restaurant{
		Name:    req.Name,
		Region:  req.Region,
		Cuisine: req.Cuisine,
		Rating:  req.Rating,
	})
	if err != nil {
		if errors.Is(err, restaurant.ErrRestaurantExists) {
			return c.JSON(http.StatusConflict, map[string]interface{}{"success": false, "message": "Restaurant already exists"})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Error adding restaurant")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) getRestaurant(c echo.Context) error {
	name := c.Param("restaurantName")

	proj, err := s.restaurantSvc.Get(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, restaurant.ErrRestaurantNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Restaurant not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Error retrieving restaurant")
	}
	return c.JSON(http.StatusOK, proj)
}

func (s *Server) deleteRestaurant(c echo.Context) error {
	name := c.Param("restaurantName")

	if err := s.restaurantSvc.Delete(c.Request().Context(), name); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Error deleting restaurant")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) rateRestaurant(c echo.Context) error {
	var req restaurant.RateRestaurantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if req.Rating < 0 || req.Rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 0 and 5")
	}

	if err := s.restaurantSvc.Rate(c.Request().Context(), req.Name, req.Rating); err != nil {
		if errors.Is(err, restaurant.ErrRestaurantNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Restaurant not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Error updating rating")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) topByCuisine(c echo.Context) error {
	cuisine := c.Param("cuisine")
	limit := queryIntParam(c, "limit")
	minRating := queryFloatParam(c, "minRating")

	results, err := s.restaurantSvc.TopByCuisine(c.Request().Context(), cuisine, minRating, limit)
	if err != nil {
		if errors.Is(err, restaurant.ErrRestaurantNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "No restaurants found for the given cuisine and rating criteria")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Error retrieving top restaurants by cuisine")
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) topByRegion(c echo.Context) error {
	region := c.Param("region")
	limit := queryIntParam(c, "limit")

	results, err := s.restaurantSvc.TopByRegion(c.Request().Context(), region, limit)
	if err != nil {
		if errors.Is(err, restaurant.ErrRestaurantNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "No restaurants found for the given region")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Error retrieving top restaurants by region")
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) topByRegionAndCuisine(c echo.Context) error {
	region := c.Param("region")
	cuisine := c.Param("cuisine")
	limit := queryIntParam(c, "limit")

	results, err := s.restaurantSvc.TopByRegionAndCuisine(c.Request().Context(), region, cuisine, limit)
	if err != nil {
		if errors.Is(err, restaurant.ErrRestaurantNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "No restaurants found for the given region and cuisine")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Error retrieving top restaurants by region and cuisine")
	}
	return c.JSON(http.StatusOK, results)
}

// queryIntParam returns 0 when the parameter is absent or malformed; the
// service substitutes the default limit and clamps the range.
func queryIntParam(c echo.Context, name string) int {
	if raw := c.QueryParam(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return 0
}

func queryFloatParam(c echo.Context, name string) float64 {
	if raw := c.QueryParam(name); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return 0
}
