package configs

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Backend != StoreDynamoDB {
		t.Errorf("default store backend = %q, want %q", cfg.Store.Backend, StoreDynamoDB)
	}
	if cfg.Dynamo.TableName != "Restaurants" {
		t.Errorf("default table name = %q", cfg.Dynamo.TableName)
	}
	if !cfg.Dynamo.UseIndexes {
		t.Error("index-backed queries should default on")
	}
	if cfg.Cache.Enabled {
		t.Error("cache should default off")
	}
	if cfg.Cache.Backend != CacheMemcached {
		t.Errorf("default cache backend = %q, want %q", cfg.Cache.Backend, CacheMemcached)
	}
	if cfg.Cache.PointTTL != 5*time.Minute || cfg.Cache.QueryTTL != time.Minute {
		t.Errorf("unexpected default TTLs: point=%v query=%v", cfg.Cache.PointTTL, cfg.Cache.QueryTTL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("USE_CACHE", "true")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_POINT_TTL", "90s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Backend != StorePostgres {
		t.Errorf("store backend = %q, want postgres", cfg.Store.Backend)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Backend != CacheRedis {
		t.Errorf("cache = %+v, want enabled redis", cfg.Cache)
	}
	if cfg.Cache.PointTTL != 90*time.Second {
		t.Errorf("point TTL = %v, want 90s", cfg.Cache.PointTTL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestMemcachedEndpointListParsing(t *testing.T) {
	t.Setenv("MEMCACHED_CONFIGURATION_ENDPOINT", "node1:11211, node2:11211 ,node3:11211")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := cfg.Cache.MemcachedEndpoints
	want := []string{"node1:11211", "node2:11211", "node3:11211"}
	if len(got) != len(want) {
		t.Fatalf("endpoints = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("endpoints = %v, want %v", got, want)
		}
	}
}

func TestDatabaseDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "dining")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := "host=db.internal port=5432 user=postgres password=postgres dbname=dining sslmode=disable"
	if cfg.Database.DSN != want {
		t.Errorf("DSN = %q, want %q", cfg.Database.DSN, want)
	}
}
