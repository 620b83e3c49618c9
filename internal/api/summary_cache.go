package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-ticket-sync/internal/models"

	"github.com/go-redis/redis/v8"
)

const summaryKeyPrefix = "sales_summary:"

// SummaryCache is a short-TTL Redis cache in front of the events_sales
// table. The orchestrator invalidates an event's entry after every
// recompute, so stale reads are bounded by the TTL even without a sync.
type SummaryCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &SummaryCache{Client: client, TTL: ttl}
}

func summaryKey(eventID int64) string {
	return fmt.Sprintf("%s%d", summaryKeyPrefix, eventID)
}

// Get returns a cached summary, or nil on miss or any cache error. Cache
// failures degrade to a store read, never to a request failure.
func (c *SummaryCache) Get(ctx context.Context, eventID int64) *models.SalesSummary {
	if c == nil || c.Client == nil {
		return nil
	}

	cached, err := c.Client.Get(ctx, summaryKey(eventID)).Result()
	if err != nil {
		return nil
	}

	var summary models.SalesSummary
	if err := json.Unmarshal([]byte(cached), &summary); err != nil {
		return nil
	}
	return &summary
}

func (c *SummaryCache) Set(ctx context.Context, summary *models.SalesSummary) {
	if c == nil || c.Client == nil || summary == nil {
		return
	}

	encoded, err := json.Marshal(summary)
	if err != nil {
		return
	}
	c.Client.Set(ctx, summaryKey(summary.EventID), encoded, c.TTL)
}

// Invalidate drops an event's cached summary after a recompute.
func (c *SummaryCache) Invalidate(ctx context.Context, eventID int64) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Del(ctx, summaryKey(eventID)).Err()
}
