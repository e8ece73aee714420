// Command submit-replay feeds a saved upload payload through the full
// processing pipeline with in-memory dependencies. Useful for inspecting
// what a given payload would fan out to without touching Firestore or
// Pub/Sub.
//
// Usage: go run ./cmd/submit-replay payload.json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	shared "github.com/geohive/server/pkg"
	"github.com/geohive/server/pkg/bootstrap"
	"github.com/geohive/server/pkg/infrastructure/pubsub"
	"github.com/geohive/server/pkg/infrastructure/statsd"
	"github.com/geohive/server/pkg/pipeline"
	"github.com/geohive/server/pkg/queue"
)

// replayDB answers every lookup from memory: no stations are known, users
// are minted on demand and any API key resolves with submission logging on.
type replayDB struct{}

func (replayDB) KnownStationKeys(ctx context.Context, technology, shard string, keys []string) ([]string, error) {
	return nil, nil
}

func (replayDB) GetUserByNickname(ctx context.Context, nickname string) (*shared.User, error) {
	return nil, nil
}

func (replayDB) CreateUser(ctx context.Context, nickname string) (*shared.User, error) {
	return &shared.User{ID: "replay-" + nickname, Nickname: nickname}, nil
}

func (replayDB) GetAPIKey(ctx context.Context, key string) (*shared.APIKey, error) {
	return &shared.APIKey{Key: key, LogSubmit: true}, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: submit-replay <payload.json>")
		os.Exit(1)
	}

	payload, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read payload: %v\n", err)
		os.Exit(1)
	}

	bootstrap.InitLogger()
	logger := slog.Default().With("service", "submit-replay")

	buf := queue.NewBuffer(&pubsub.LogPublisher{Logger: logger})
	uploader := &pipeline.Uploader{
		DB:     replayDB{},
		Queues: buf,
		Stats:  statsd.Nop{},
		Logger: logger,
	}

	ctx := context.Background()
	stats, err := uploader.Send(ctx, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "process payload: %v\n", err)
		os.Exit(1)
	}

	if err := buf.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "flush queues: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(out))
}
