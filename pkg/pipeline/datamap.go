package pipeline

import (
	shared "github.com/geohive/server/pkg"
	"github.com/geohive/server/pkg/domain/datamap"
	"github.com/geohive/server/pkg/domain/score"
	"github.com/geohive/server/pkg/queue"
)

// enqueueDatamap quantizes the distinct positions of a report group into
// grid cells, set-deduplicated, and enqueues the encoded cells onto the
// heatmap queue of their shard.
func (u *Uploader) enqueueDatamap(positions map[[2]float64]struct{}) {
	if len(positions) == 0 {
		return
	}

	cells := make(map[[2]int32]struct{}, len(positions))
	for p := range positions {
		lat, lon := datamap.Scale(p[0], p[1])
		cells[[2]int32{lat, lon}] = struct{}{}
	}

	shards := make(map[string][][]byte)
	var order []string
	for c := range cells {
		s := datamap.ShardID(c[0], c[1])
		if _, ok := shards[s]; !ok {
			order = append(order, s)
		}
		shards[s] = append(shards[s], []byte(datamap.EncodeGridString(c[0], c[1])))
	}

	for _, s := range order {
		u.Queues.Enqueue(queue.DatamapQueue(s), shards[s]...)
	}
}

// enqueueScores builds the group's score deltas: one location delta for the
// distinct positions contributed, plus new-station deltas when the counts
// are positive. Scores require a resolved user and are not sharded.
func (u *Uploader) enqueueScores(userID string, positionCount int, newStations map[string]int) error {
	if userID == "" || positionCount <= 0 {
		return nil
	}

	deltas := []any{score.NewDelta(userID, score.Location, positionCount)}
	if n := newStations[shared.TechCell]; n > 0 {
		deltas = append(deltas, score.NewDelta(userID, score.NewCell, n))
	}
	if n := newStations[shared.TechWifi]; n > 0 {
		deltas = append(deltas, score.NewDelta(userID, score.NewWifi, n))
	}

	return u.Queues.EnqueueJSON(queue.ScoreQueue, deltas...)
}
