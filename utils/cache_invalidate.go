package utils

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type CacheInvalidator struct{ rdb *redis.Client }

func NewCacheInvalidator(rdb *redis.Client) *CacheInvalidator { return &CacheInvalidator{rdb} }

// PurgeOwnerList drops the cached event list for one owner. Called after any
// successful mutation so the next list fetch is authoritative.
func (ci *CacheInvalidator) PurgeOwnerList(ctx context.Context, userID int64) {
	iter := ci.rdb.Scan(ctx, 0, fmt.Sprintf("cache:events:list:u%d*", userID), 0).Iterator()
	for iter.Next(ctx) {
		_ = ci.rdb.Del(ctx, iter.Val()).Err()
	}
}
