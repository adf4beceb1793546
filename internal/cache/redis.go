package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crm-backend/internal/config"
	"crm-backend/internal/models"
)

// Dashboard cache keys
const (
	StatusSummaryKey = "invoices:status_summary"
	StatusSummaryTTL = 2 * time.Minute
)

var client *redis.Client

// Init initializes the Redis connection. A failed connection leaves the
// client nil and the application degrades to uncached queries.
func Init(cfg *config.Config) error {
	host := cfg.Redis.Host
	if host == "" {
		host = "redis" // fallback to service name
	}

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetStatusSummary returns the cached dashboard aggregate, or nil on miss
func GetStatusSummary(ctx context.Context) []models.StatusSummary {
	if client == nil {
		return nil
	}

	data, err := client.Get(ctx, StatusSummaryKey).Bytes()
	if err != nil {
		return nil
	}

	var summary []models.StatusSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil
	}
	return summary
}

// SetStatusSummary caches the dashboard aggregate with a short TTL
func SetStatusSummary(ctx context.Context, summary []models.StatusSummary) {
	if client == nil {
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	client.Set(ctx, StatusSummaryKey, data, StatusSummaryTTL)
}

// InvalidateStatusSummary drops the cached aggregate after a mutation
func InvalidateStatusSummary(ctx context.Context) {
	if client == nil {
		return
	}
	client.Del(ctx, StatusSummaryKey)
}
