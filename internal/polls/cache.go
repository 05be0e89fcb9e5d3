package polls

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/edupulse/backend/internal/models"
)

const resultsTTL = 10 * time.Second

// ResultsCache keeps recent poll tallies in Redis so result reads under a
// vote burst do not all hit Postgres. Best effort: every cache error is
// logged and treated as a miss. A nil *ResultsCache is a no-op.
type ResultsCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewResultsCache creates a poll results cache.
func NewResultsCache(client *redis.Client, logger *zap.Logger) *ResultsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultsCache{client: client, logger: logger}
}

func resultsKey(pollID int64) string {
	return fmt.Sprintf("poll:results:%d", pollID)
}

// Get returns the cached tally for a poll, if fresh.
func (c *ResultsCache) Get(ctx context.Context, pollID int64) (*models.PollResults, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, resultsKey(pollID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("results cache get failed", zap.Error(err))
		}
		return nil, false
	}
	var results models.PollResults
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false
	}
	return &results, true
}

// Set stores a tally with a short TTL.
func (c *ResultsCache) Set(ctx context.Context, pollID int64, results *models.PollResults) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, resultsKey(pollID), raw, resultsTTL).Err(); err != nil {
		c.logger.Debug("results cache set failed", zap.Error(err))
	}
}

// Invalidate drops the cached tally after a vote or close.
func (c *ResultsCache) Invalidate(ctx context.Context, pollID int64) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, resultsKey(pollID)).Err(); err != nil {
		c.logger.Debug("results cache invalidate failed", zap.Error(err))
	}
}
