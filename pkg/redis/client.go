package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	availableDriversKey = "drivers:available"
	lastPositionPrefix  = "driver:pos:"
)

// Client wraps the Redis connection.
type Client struct {
	rdb *goredis.Client
}

// NewClient connects to Redis with retry.
func NewClient(addr string, logger *slog.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err == nil {
			cancel()
			logger.Info("connected to redis")
			return &Client{rdb: rdb}, nil
		}
		cancel()
		logger.Info("waiting for redis", "attempt", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("redis: failed to connect after 20 attempts")
}

// SetLastPosition caches a driver's most recent position with a short TTL.
// The tracking relay reads this for request_location before falling back to
// the database.
func (c *Client) SetLastPosition(ctx context.Context, driverID string, lat, lng float64, at time.Time) error {
	key := lastPositionPrefix + driverID
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"lat": strconv.FormatFloat(lat, 'f', -1, 64),
		"lng": strconv.FormatFloat(lng, 'f', -1, 64),
		"at":  at.UTC().Format(time.RFC3339),
	})
	pipe.Expire(ctx, key, 24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// GetLastPosition returns the cached position, or ok=false when absent.
func (c *Client) GetLastPosition(ctx context.Context, driverID string) (lat, lng float64, at time.Time, ok bool, err error) {
	vals, err := c.rdb.HGetAll(ctx, lastPositionPrefix+driverID).Result()
	if err != nil || len(vals) == 0 {
		return 0, 0, time.Time{}, false, err
	}
	lat, err1 := strconv.ParseFloat(vals["lat"], 64)
	lng, err2 := strconv.ParseFloat(vals["lng"], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, time.Time{}, false, nil
	}
	at, _ = time.Parse(time.RFC3339, vals["at"])
	return lat, lng, at, true, nil
}

// MarkDriverAvailable adds a driver to the availability GEO set.
func (c *Client) MarkDriverAvailable(ctx context.Context, driverID string, lat, lng float64) error {
	return c.rdb.GeoAdd(ctx, availableDriversKey, &goredis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// MarkDriverBusy removes a driver from the availability GEO set, e.g. when a
// pickup is confirmed.
func (c *Client) MarkDriverBusy(ctx context.Context, driverID string) error {
	return c.rdb.ZRem(ctx, availableDriversKey, driverID).Err()
}

// NearbyAvailableDrivers returns available driver IDs within radiusKm of the
// given point, closest first.
func (c *Client) NearbyAvailableDrivers(ctx context.Context, lat, lng, radiusKm float64, count int) ([]string, error) {
	return c.rdb.GeoSearch(ctx, availableDriversKey, &goredis.GeoSearchQuery{
		Longitude:  lng,
		Latitude:   lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Count:      count,
		Sort:       "ASC",
	}).Result()
}

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
