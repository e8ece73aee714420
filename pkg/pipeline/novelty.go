package pipeline

import (
	"context"
	"fmt"

	"github.com/geohive/server/pkg/domain/report"
)

// countNew returns how many of the supplied station keys are not yet known.
// Keys are partitioned by the storage shard function and looked up with one
// batched existence query per shard, so the query count is bounded by shard
// fan-out rather than observation count. Concurrent payloads may both count
// the same key as new; the result feeds best-effort scoring, never storage
// decisions.
func (u *Uploader) countNew(ctx context.Context, technology string, keys map[string]struct{}) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	// assume all stations are unknown
	unknown := make(map[string]struct{}, len(keys))
	shards := make(map[string][]string)
	for key := range keys {
		unknown[key] = struct{}{}
		shard := report.ShardID(technology, key)
		shards[shard] = append(shards[shard], key)
	}

	for shard, shardKeys := range shards {
		known, err := u.DB.KnownStationKeys(ctx, technology, shard, shardKeys)
		if err != nil {
			return 0, fmt.Errorf("station lookup %s/%s: %w", technology, shard, err)
		}
		for _, key := range known {
			delete(unknown, key)
		}
	}

	return len(unknown), nil
}
