package pubsub

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
)

// PubSubAdapter publishes queue batches using Google Cloud Pub/Sub. Queue
// names map 1:1 onto topic ids.
type PubSubAdapter struct {
	Client *pubsub.Client
}

func (a *PubSubAdapter) Publish(ctx context.Context, topicID string, data []byte) (string, error) {
	topic := a.Client.Topic(topicID)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	return res.Get(ctx)
}

// LogPublisher is a stand-in publisher for local development and the replay
// tool: it logs instead of publishing.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, topicID string, data []byte) (string, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("MOCK PUBLISH", "topic", topicID, "bytes", len(data))
	return "mock-msg-id", nil
}
