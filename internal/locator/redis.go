package locator

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/LifeLink-Blood-Care/blood-service/internal/bloodtype"
)

const (
	geoKey         = "donors:geo"
	donorKeyPrefix = "donor:"
)

// RedisLocator is a Locator backed by a Redis GEO set plus a per-donor
// hash holding blood type, contact snapshot and availability.
type RedisLocator struct {
	client *redis.Client
}

// NewRedisClient connects to Redis using REDIS_ADDR / REDIS_PASSWORD /
// REDIS_DB environment variables.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	db := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			db = parsed
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Printf("✓ Connected to Redis donor index at %s", addr)
	return client, nil
}

func NewRedisLocator(client *redis.Client) *RedisLocator {
	return &RedisLocator{client: client}
}

// Ensure RedisLocator implements Locator
var _ Locator = (*RedisLocator)(nil)

func donorKey(id string) string {
	return donorKeyPrefix + id
}

// UpsertDonor indexes or re-indexes a donor's location and metadata.
func (l *RedisLocator) UpsertDonor(ctx context.Context, loc DonorLocation) error {
	if loc.ID == "" {
		return fmt.Errorf("donor id is required")
	}
	if !loc.BloodType.Valid() {
		return fmt.Errorf("invalid blood type: %q", loc.BloodType)
	}

	pipe := l.client.TxPipeline()
	pipe.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      loc.ID,
		Longitude: loc.Point.Longitude,
		Latitude:  loc.Point.Latitude,
	})
	pipe.HSet(ctx, donorKey(loc.ID), map[string]interface{}{
		"name":       loc.Name,
		"phone":      loc.Phone,
		"blood_type": string(loc.BloodType),
		"available":  strconv.FormatBool(loc.Available),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index donor %s: %w", loc.ID, err)
	}
	return nil
}

// SetAvailability flips the availability flag without touching location.
func (l *RedisLocator) SetAvailability(ctx context.Context, donorID string, available bool) error {
	err := l.client.HSet(ctx, donorKey(donorID), "available", strconv.FormatBool(available)).Err()
	if err != nil {
		return fmt.Errorf("failed to set availability for donor %s: %w", donorID, err)
	}
	return nil
}

// RemoveDonor drops a donor from the index entirely.
func (l *RedisLocator) RemoveDonor(ctx context.Context, donorID string) error {
	pipe := l.client.TxPipeline()
	pipe.ZRem(ctx, geoKey, donorID)
	pipe.Del(ctx, donorKey(donorID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove donor %s: %w", donorID, err)
	}
	return nil
}

// FindNearby runs a GEOSEARCH around the point and filters the hits by
// blood type and availability. Results stay in Redis's distance order.
func (l *RedisLocator) FindNearby(ctx context.Context, p Point, radiusMeters float64, acceptable []bloodtype.BloodType) ([]DonorSummary, error) {
	hits, err := l.client.GeoSearchLocation(ctx, geoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  p.Longitude,
			Latitude:   p.Latitude,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to search donor index: %w", err)
	}

	acceptableSet := make(map[bloodtype.BloodType]struct{}, len(acceptable))
	for _, bt := range acceptable {
		acceptableSet[bt] = struct{}{}
	}

	var donors []DonorSummary
	for _, hit := range hits {
		meta, err := l.client.HGetAll(ctx, donorKey(hit.Name)).Result()
		if err != nil {
			log.Printf("Warning: failed to load metadata for donor %s: %v", hit.Name, err)
			continue
		}
		if len(meta) == 0 {
			// Geo entry without a metadata hash is a stale index record.
			continue
		}
		if meta["available"] != "true" {
			continue
		}

		bt := bloodtype.BloodType(meta["blood_type"])
		if _, ok := acceptableSet[bt]; !ok {
			continue
		}

		donors = append(donors, DonorSummary{
			ID:        hit.Name,
			Name:      meta["name"],
			Phone:     meta["phone"],
			BloodType: bt,
			DistanceM: hit.Dist,
		})
	}

	return donors, nil
}
