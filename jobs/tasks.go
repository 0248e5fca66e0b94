package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/deliveryorders"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskFulfillmentReapply re-runs fulfillment propagation for a delivery
	// order whose first propagation did not complete.
	TaskFulfillmentReapply = "purchasing:fulfillment_reapply"
)

// FulfillmentReapplyPayload identifies the delivery order to re-propagate.
type FulfillmentReapplyPayload struct {
	DeliveryOrderID string `json:"delivery_order_id"`
}

// NewFulfillmentReapplyTask constructs an Asynq task.
func NewFulfillmentReapplyTask(id uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(FulfillmentReapplyPayload{DeliveryOrderID: id.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFulfillmentReapply, data), nil
}

// NewFulfillmentReapplyHandler processes TaskFulfillmentReapply tasks.
// Propagation is idempotent, so a retried task that partially succeeded last
// time only applies the remainder. Malformed payloads and data-integrity
// failures skip retry: rerunning them cannot succeed.
func NewFulfillmentReapplyHandler(service *deliveryorders.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload FulfillmentReapplyPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		id, err := uuid.Parse(payload.DeliveryOrderID)
		if err != nil {
			return asynq.SkipRetry
		}
		if err := service.Reapply(ctx, id); err != nil {
			logger.Warn("fulfillment reapply",
				slog.String("delivery_order_id", payload.DeliveryOrderID),
				slog.Any("error", err))
			if errors.Is(err, deliveryorders.ErrNotFound) ||
				errors.Is(err, deliveryorders.ErrInvariantViolation) {
				return asynq.SkipRetry
			}
			return err
		}
		return nil
	}
}
