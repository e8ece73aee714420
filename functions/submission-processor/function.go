package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/geohive/server/pkg/bootstrap"
	"github.com/geohive/server/pkg/framework"
	"github.com/geohive/server/pkg/pipeline"
	"github.com/geohive/server/pkg/queue"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("ProcessSubmission", ProcessSubmission)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	svcOnce.Do(func() {
		svc, svcErr = bootstrap.NewService(ctx)
	})
	return svc, svcErr
}

// ProcessSubmission is the entry point. The transport delivers one upload
// payload per event; the whole payload is processed by this one execution.
func ProcessSubmission(ctx context.Context, e cloudevents.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent("submission-processor", svc, submissionHandler)(ctx, e)
}

// submissionHandler contains the business logic.
func submissionHandler(ctx context.Context, e cloudevents.Event, hctx *framework.HandlerContext) (interface{}, error) {
	payload, err := decodePayload(e)
	if err != nil {
		return nil, err
	}

	// Archive the raw payload before touching it. Best effort: losing an
	// archive copy must not lose the observations.
	if bucket := hctx.Service.Config.ArchiveBucket; bucket != "" {
		object := fmt.Sprintf("raw_reports/%s/%s.json",
			time.Now().UTC().Format("2006-01-02"), hctx.ExecutionID)
		if err := hctx.Service.Store.Write(ctx, bucket, object, payload); err != nil {
			hctx.Logger.Warn("Failed to archive raw payload", "bucket", bucket, "object", object, "error", err)
		}
	}

	buf := queue.NewBuffer(hctx.Service.Pub)
	uploader := &pipeline.Uploader{
		DB:     hctx.Service.DB,
		Queues: buf,
		Stats:  hctx.Service.Stats,
		Logger: hctx.Logger,
	}

	stats, err := uploader.Send(ctx, payload)
	if err != nil {
		return nil, err
	}

	// Flush commits the whole fan-out; it runs only after every user record
	// for the payload has been resolved and persisted.
	if err := buf.Flush(ctx); err != nil {
		return nil, fmt.Errorf("queue flush: %w", err)
	}

	return map[string]interface{}{
		"status":       "SUCCESS",
		"reports":      stats.Reports,
		"malformed":    stats.Malformed,
		"observations": stats.Observations,
		"new_stations": stats.NewStations,
	}, nil
}

// decodePayload unwraps the upload payload from the event. Pub/Sub triggers
// wrap the data in a MessagePublishedData envelope with base64 bytes;
// direct invocations carry the payload as-is.
func decodePayload(e cloudevents.Event) ([]byte, error) {
	raw := e.Data()
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty event data")
	}

	var envelope struct {
		Message struct {
			Data []byte `json:"data"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Message.Data) > 0 {
		return envelope.Message.Data, nil
	}
	return raw, nil
}
