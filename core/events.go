package core

import "time"

// ProductEventsTopic is the Kafka topic the event log appends to.
const ProductEventsTopic = "product-events"

// Product event types carried on the queue and the event log.
const (
	EventProductCreated = "PRODUCT_CREATED"
	EventProductUpdated = "PRODUCT_UPDATED"
	EventProductDeleted = "PRODUCT_DELETED"
)

// ProductEvent is a fire-and-forget notification of a catalog mutation.
// It carries identifiers only; consumers load current state themselves.
type ProductEvent struct {
	Type       string    `json:"type"`
	ProductID  string    `json:"product_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewProductEvent stamps an event with the current time.
func NewProductEvent(eventType string, p *Product) ProductEvent {
	return ProductEvent{
		Type:       eventType,
		ProductID:  p.ID,
		UserID:     p.UserID,
		OccurredAt: time.Now().UTC(),
	}
}

// EventJob is the queue envelope around an event; Attempts counts worker
// retries so a failing event is eventually dropped instead of looping.
type EventJob struct {
	Event    ProductEvent `json:"event"`
	Attempts int          `json:"attempts"`
}
