package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dineatlas/restaurant-directory/configs"
	"github.com/dineatlas/restaurant-directory/internal/application/services"
	"github.com/dineatlas/restaurant-directory/internal/core/ports"
	breaker "github.com/dineatlas/restaurant-directory/internal/infrastructure/cache"
	"github.com/dineatlas/restaurant-directory/internal/infrastructure/db"
	"github.com/dineatlas/restaurant-directory/internal/infrastructure/dynamo"
	"github.com/dineatlas/restaurant-directory/internal/infrastructure/health"
	"github.com/dineatlas/restaurant-directory/internal/infrastructure/httpserver"
	"github.com/dineatlas/restaurant-directory/internal/infrastructure/memcache"
	"github.com/dineatlas/restaurant-directory/internal/infrastructure/redis"
	"github.com/dineatlas/restaurant-directory/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting restaurant directory service...")

	ctx := context.Background()
	var healthCheckers []ports.HealthChecker

	// Wire the durable store
	var repo ports.RestaurantRepository
	tableName, awsRegion := "", ""
	switch cfg.Store.Backend {
	case configs.StoreDynamoDB:
		tableName, awsRegion = cfg.Dynamo.TableName, cfg.Dynamo.Region
		client, err := dynamo.NewClient(ctx, &cfg.Dynamo)
		if err != nil {
			logger.Fatal("Failed to create DynamoDB client:", err)
		}
		repo = repositories.NewDynamoRestaurantRepository(client, cfg.Dynamo.TableName, cfg.Dynamo.UseIndexes, logger)
		healthCheckers = append(healthCheckers, health.NewDynamoHealthChecker(client, cfg.Dynamo.TableName))
		logger.WithFields(logrus.Fields{"table": cfg.Dynamo.TableName, "indexes": cfg.Dynamo.UseIndexes}).Info("Using DynamoDB store")
	case configs.StorePostgres:
		database, err := db.NewDatabase(&cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database:", err)
		}
		defer database.Close()
		if err := database.Migrate("./migrations"); err != nil {
			logger.Warn("Failed to run migrations:", err)
		}
		repo = repositories.NewPostgresRestaurantRepository(database, logger)
		healthCheckers = append(healthCheckers, health.NewDBHealthChecker(database))
		logger.Info("Using Postgres store")
	default:
		logger.Fatalf("Unknown store backend %q", cfg.Store.Backend)
	}

	// Wire the lookaside cache
	var cacheAdapter ports.Cache
	cacheBackend, cacheEndpoint := "", ""
	if cfg.Cache.Enabled {
		cacheBackend = cfg.Cache.Backend
		switch cfg.Cache.Backend {
		case configs.CacheMemcached:
			mcCache := memcache.New(cfg.Cache.MemcachedEndpoints...)
			cacheAdapter = mcCache
			cacheEndpoint = strings.Join(cfg.Cache.MemcachedEndpoints, ",")
			healthCheckers = append(healthCheckers, health.NewMemcachedHealthChecker(mcCache))
		case configs.CacheRedis:
			redisClient, err := redis.NewRedisClient(&cfg.Redis)
			if err != nil {
				logger.Fatal("Failed to connect to Redis:", err)
			}
			defer redisClient.Close()
			cacheAdapter = redis.NewRedisCache(redisClient, "restaurants")
			cacheEndpoint = fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port)
			healthCheckers = append(healthCheckers, health.NewRedisHealthChecker(redisClient))
		default:
			logger.Fatalf("Unknown cache backend %q", cfg.Cache.Backend)
		}
		if cfg.Cache.BreakerEnabled {
			cacheAdapter = breaker.NewBreakerCache(cacheAdapter, logger)
		}
		logger.WithField("backend", cfg.Cache.Backend).Info("Lookaside cache enabled")
	} else {
		logger.Info("Lookaside cache disabled; serving from the store only")
	}

	restaurantService := services.NewRestaurantService(
		repo,
		cacheAdapter,
		cfg.Cache.Enabled,
		cfg.Cache.PointTTL,
		cfg.Cache.QueryTTL,
		logger,
	)

	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	deps := httpserver.ServerDeps{
		RestaurantService: restaurantService,
		HealthCheckers:    healthCheckers,
		RuntimeInfo: httpserver.RuntimeInfo{
			StoreBackend:  cfg.Store.Backend,
			TableName:     tableName,
			AWSRegion:     awsRegion,
			CacheEnabled:  cfg.Cache.Enabled,
			CacheBackend:  cacheBackend,
			CacheEndpoint: cacheEndpoint,
		},
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
