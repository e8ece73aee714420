package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// KnownStationKeys returns the subset of keys that already exist in the
// (technology, shard) partition. One GetAll round trip per call; callers
// partition keys by shard first, so lookups stay bounded by shard fan-out.
func (c *Client) KnownStationKeys(ctx context.Context, technology, shard string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	coll := c.fs.Collection(stationCollection(technology, shard))
	refs := make([]*firestore.DocumentRef, 0, len(keys))
	for _, key := range keys {
		refs = append(refs, coll.Doc(key))
	}

	snaps, err := c.fs.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("stations %s/%s: %w", technology, shard, err)
	}

	known := make([]string, 0, len(keys))
	for i, snap := range snaps {
		if snap.Exists() {
			known = append(known, keys[i])
		}
	}
	return known, nil
}
