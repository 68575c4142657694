package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

const stationGeoKey = "stations:geo"

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// IndexStationLocation upserts a station into the geo set
func IndexStationLocation(ctx context.Context, stationID uint, lat, lng float64) error {
	return RedisClient.GeoAdd(ctx, stationGeoKey, &redis.GeoLocation{
		Name:      strconv.FormatUint(uint64(stationID), 10),
		Latitude:  lat,
		Longitude: lng,
	}).Err()
}

// RemoveStationLocation drops a station from the geo set
func RemoveStationLocation(ctx context.Context, stationID uint) error {
	return RedisClient.ZRem(ctx, stationGeoKey, strconv.FormatUint(uint64(stationID), 10)).Err()
}

// NearbyStationIDs returns station ids within radiusKm, nearest first
func NearbyStationIDs(ctx context.Context, lat, lng, radiusKm float64) ([]uint, error) {
	results, err := RedisClient.GeoSearch(ctx, stationGeoKey, &redis.GeoSearchQuery{
		Latitude:   lat,
		Longitude:  lng,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(results))
	for _, r := range results {
		id, err := strconv.ParseUint(r, 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// CacheNearbyStations stores a nearby-stations result for a query point
func CacheNearbyStations(ctx context.Context, lat, lng, radiusKm float64, payload interface{}) error {
	key := nearbyStationsKey(lat, lng, radiusKm)
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return RedisClient.Set(ctx, key, data, 5*time.Minute).Err()
}

// GetCachedNearbyStations retrieves a cached nearby-stations result
func GetCachedNearbyStations(ctx context.Context, lat, lng, radiusKm float64, out interface{}) (bool, error) {
	key := nearbyStationsKey(lat, lng, radiusKm)
	data, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return false, err
	}
	return true, nil
}

func nearbyStationsKey(lat, lng, radiusKm float64) string {
	return fmt.Sprintf("nearby:stations:%.6f:%.6f:%.1f", lat, lng, radiusKm)
}

// PublishRequestUpdate publishes a request lifecycle update to Redis pub/sub
func PublishRequestUpdate(ctx context.Context, requestID uint, status string, data map[string]interface{}) error {
	updateData := map[string]interface{}{
		"requestId": requestID,
		"status":    status,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(updateData)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "request:updates", jsonData).Err()
}
