package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/", s.getRuntimeInfo)
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	s.echo.POST("/restaurants", s.createRestaurant)
	s.echo.POST("/restaurants/rating", s.rateRestaurant)
	s.echo.GET("/restaurants/cuisine/:cuisine", s.topByCuisine)
	s.echo.GET("/restaurants/region/:region", s.topByRegion)
	s.echo.GET("/restaurants/region/:region/cuisine/:cuisine", s.topByRegionAndCuisine)
	s.echo.GET("/restaurants/:restaurantName", s.getRestaurant)
	s.echo.DELETE("/restaurants/:restaurantName", s.deleteRestaurant)
}
