package framework

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"

	"github.com/geohive/server/pkg/bootstrap"
	"github.com/geohive/server/pkg/infrastructure/sentry"
)

// HandlerContext contains dependencies injected by the framework
type HandlerContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
}

// HandlerFunc is the signature for a cloud function handler
type HandlerFunc func(ctx context.Context, e event.Event, hctx *HandlerContext) (interface{}, error)

// WrapCloudEvent wraps a handler with execution logging and failure
// capture. A handler error is reported to Sentry and returned so the
// trigger's retry policy reprocesses the whole payload.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) error {
		execID := uuid.NewString()
		logger := bootstrap.NewLogger(serviceName).With("execution_id", execID)
		logger.Info("Function started", "event_type", e.Type(), "event_source", e.Source())

		hctx := &HandlerContext{
			Service:     svc,
			Logger:      logger,
			ExecutionID: execID,
		}

		outputs, err := handler(ctx, e, hctx)
		if err != nil {
			logger.Error("Function failed", "error", err)
			sentry.CaptureException(err, map[string]interface{}{
				"service":      serviceName,
				"execution_id": execID,
			}, logger)
			sentry.Flush(2 * time.Second)
			return err
		}

		logger.Info("Function completed successfully", "outputs", outputs)
		return nil
	}
}
