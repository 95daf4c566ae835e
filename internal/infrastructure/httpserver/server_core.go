package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/dineatlas/restaurant-directory/internal/core/ports"
	customMiddleware "github.com/dineatlas/restaurant-directory/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RuntimeInfo is what GET / reports: which backends this instance is wired
// to. It mirrors the behavior of the hosted deployment, whose root endpoint
// echoes its configuration for smoke tests.
type RuntimeInfo struct {
	StoreBackend  string `json:"store_backend"`
	TableName     string `json:"table_name,omitempty"`
	AWSRegion     string `json:"aws_region,omitempty"`
	CacheEnabled  bool   `json:"cache_enabled"`
	CacheBackend  string `json:"cache_backend,omitempty"`
	CacheEndpoint string `json:"cache_endpoint,omitempty"`
}

type ServerDeps struct {
	RestaurantService ports.RestaurantService
	HealthCheckers    []ports.HealthChecker
	RuntimeInfo       RuntimeInfo
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	restaurantSvc  ports.RestaurantService
	healthCheckers []ports.HealthChecker
	runtimeInfo    RuntimeInfo
	middleware     *customMiddleware.MiddlewareCollection
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		restaurantSvc:  deps.RestaurantService,
		healthCheckers: deps.HealthCheckers,
		runtimeInfo:    deps.RuntimeInfo,
		middleware: customMiddleware.NewMiddlewareCollection(
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
