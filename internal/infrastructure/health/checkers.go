package health

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	goredis "github.com/go-redis/redis/v8"

	"github.com/dineatlas/restaurant-directory/internal/core/ports"
	infraDB "github.com/dineatlas/restaurant-directory/internal/infrastructure/db"
	"github.com/dineatlas/restaurant-directory/internal/infrastructure/memcache"
)

// dynamoHealthChecker probes the restaurants table.
type dynamoHealthChecker struct {
	client *dynamodb.Client
	table  string
}

func (d *dynamoHealthChecker) Name() string { return "dynamodb" }
func (d *dynamoHealthChecker) Check(ctx context.Context) error {
	_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)})
	return err
}

// dbHealthChecker wraps the Postgres store for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "postgres" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client *goredis.Client }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// memcachedHealthChecker pings the memcached cluster.
type memcachedHealthChecker struct{ cache *memcache.MemcachedCache }

func (m *memcachedHealthChecker) Name() string                    { return "memcached" }
func (m *memcachedHealthChecker) Check(ctx context.Context) error { return m.cache.Ping() }

// NewDynamoHealthChecker creates a health checker for the DynamoDB store.
func NewDynamoHealthChecker(client *dynamodb.Client, table string) ports.HealthChecker {
	return &dynamoHealthChecker{client: client, table: table}
}

// NewDBHealthChecker creates a health checker for the Postgres store.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client *goredis.Client) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewMemcachedHealthChecker creates a health checker for memcached.
func NewMemcachedHealthChecker(cache *memcache.MemcachedCache) ports.HealthChecker {
	return &memcachedHealthChecker{cache: cache}
}
