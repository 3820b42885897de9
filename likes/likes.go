// Package likes mirrors recipe likes into Redis sets and periodically copies
// their sizes into the recipes table.
package likes

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "recipes:likes:"

func key(recipeID uint) string {
	return keyPrefix + strconv.FormatUint(uint64(recipeID), 10)
}

// Counter keeps one Redis set of user ids per recipe.
type Counter struct {
	rdb *redis.Client
}

func NewCounter(rdb *redis.Client) *Counter {
	return &Counter{rdb: rdb}
}

func (c *Counter) Record(ctx context.Context, recipeID, userID uint, liked bool) error {
	var err error
	if liked {
		err = c.rdb.SAdd(ctx, key(recipeID), userID).Err()
	} else {
		err = c.rdb.SRem(ctx, key(recipeID), userID).Err()
	}
	if err != nil {
		return fmt.Errorf("record like on recipe %d: %w", recipeID, err)
	}
	return nil
}

func (c *Counter) Count(ctx context.Context, recipeID uint) (int64, error) {
	n, err := c.rdb.SCard(ctx, key(recipeID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count likes of recipe %d: %w", recipeID, err)
	}
	return n, nil
}

// Drop forgets a deleted recipe's set so the syncer stops visiting it.
func (c *Counter) Drop(ctx context.Context, recipeID uint) error {
	if err := c.rdb.Del(ctx, key(recipeID)).Err(); err != nil {
		return fmt.Errorf("drop likes of recipe %d: %w", recipeID, err)
	}
	return nil
}

type CountWriter interface {
	SetLikeCount(ctx context.Context, recipeID uint, count int64) error
	ClearLikeCounts(ctx context.Context, keep []uint) error
}

// Syncer copies like set sizes from Redis into the database.
type Syncer struct {
	rdb      *redis.Client
	store    CountWriter
	interval time.Duration
}

func NewSyncer(rdb *redis.Client, store CountWriter, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Syncer{rdb: rdb, store: store, interval: interval}
}

// SyncOnce writes every recipe's like count and returns how many recipes it updated.
// Redis drops a set with its last member, so recipes without a set are reset to zero.
func (s *Syncer) SyncOnce(ctx context.Context) (int, error) {
	synced := 0
	var seen []uint
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		recipeID, err := strconv.ParseUint(strings.TrimPrefix(k, keyPrefix), 10, 64)
		if err != nil {
			slog.Warn("Skipping malformed like key", "key", k)
			continue
		}

		count, err := s.rdb.SCard(ctx, k).Result()
		if err != nil {
			return synced, fmt.Errorf("count %s: %w", k, err)
		}
		if err := s.store.SetLikeCount(ctx, uint(recipeID), count); err != nil {
			return synced, fmt.Errorf("store like count of recipe %d: %w", recipeID, err)
		}
		seen = append(seen, uint(recipeID))
		synced++
	}
	if err := iter.Err(); err != nil {
		return synced, fmt.Errorf("scan like keys: %w", err)
	}
	if err := s.store.ClearLikeCounts(ctx, seen); err != nil {
		return synced, fmt.Errorf("clear stale like counts: %w", err)
	}
	return synced, nil
}

// Run syncs on every tick until ctx is done.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SyncOnce(ctx)
			if err != nil {
				slog.Error("Failed to sync like counts",
					"error", err,
					"pattern", keyPrefix+"*",
				)
				continue
			}
			slog.Debug("Like counts synced", "recipes", n)
		}
	}
}
