// Package queue names the downstream data queues and buffers enqueue
// commands so a payload's fan-out commits in one place.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	shared "github.com/geohive/server/pkg"
)

// ObservationQueue names the queue for one (technology, shard) pair.
func ObservationQueue(technology, shard string) string {
	return "update_" + technology + "_" + shard
}

// DatamapQueue names the heatmap queue for one grid shard.
func DatamapQueue(shard string) string {
	return "update_datamap_" + shard
}

// ScoreQueue is the single, unsharded score-delta queue.
const ScoreQueue = shared.QueueScore

// Buffer accumulates enqueue commands against named queues. Nothing is
// visible downstream until Flush, which lets the caller hold back the whole
// fan-out until user persistence has succeeded. A Buffer belongs to exactly
// one payload's processing and is not safe for concurrent use.
type Buffer struct {
	pub     shared.Publisher
	order   []string
	pending map[string][][]byte
}

func NewBuffer(pub shared.Publisher) *Buffer {
	return &Buffer{pub: pub, pending: make(map[string][][]byte)}
}

// Enqueue appends raw records to a named queue.
func (b *Buffer) Enqueue(queueName string, values ...[]byte) {
	if len(values) == 0 {
		return
	}
	if _, ok := b.pending[queueName]; !ok {
		b.order = append(b.order, queueName)
	}
	b.pending[queueName] = append(b.pending[queueName], values...)
}

// EnqueueJSON marshals each value and appends it as one record.
func (b *Buffer) EnqueueJSON(queueName string, values ...any) error {
	records := make([][]byte, 0, len(values))
	for _, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("queue %s: marshal: %w", queueName, err)
		}
		records = append(records, data)
	}
	b.Enqueue(queueName, records...)
	return nil
}

// Len reports the number of pending records across all queues.
func (b *Buffer) Len() int {
	n := 0
	for _, values := range b.pending {
		n += len(values)
	}
	return n
}

// Flush publishes one message per queue, records joined by newlines, in
// first-enqueue order. On error the pending commands are kept so a caller
// retrying the payload republishes everything; downstream consumers
// tolerate duplicate delivery.
func (b *Buffer) Flush(ctx context.Context) error {
	for _, queueName := range b.order {
		data := bytes.Join(b.pending[queueName], []byte("\n"))
		if _, err := b.pub.Publish(ctx, queueName, data); err != nil {
			return fmt.Errorf("queue %s: publish: %w", queueName, err)
		}
	}
	b.order = nil
	b.pending = make(map[string][][]byte)
	return nil
}
