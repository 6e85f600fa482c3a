package dispatcher

import (
	"context"

	"github.com/garyjia/purchase-requisition/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// NewAuditLogHandler returns a handler that writes every event it receives
// to logger. It is the default subscriber for status changes.
func NewAuditLogHandler(logger Logger) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		keysAndValues := []interface{}{
			"event_type", evt.Type,
			"event_id", evt.ID,
			"correlation_id", evt.CorrelationID,
			"requisition_id", evt.RequisitionID,
			"actor_id", evt.ActorID,
		}
		for _, key := range []string{"previous_status", "new_status", "trigger"} {
			if v := evt.GetPayloadString(key); v != "" {
				keysAndValues = append(keysAndValues, key, v)
			}
		}
		logger.Info("Requisition event", keysAndValues...)
		return nil
	}
}
