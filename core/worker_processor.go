package core

import (
	"context"
	"errors"
	"fmt"
)

// EventProcessor drains queued product events into the Kafka event log and
// the search projection.
type EventProcessor struct {
	products ProductRepository
	eventLog EventLog
	index    SearchIndex
}

func NewEventProcessor(products ProductRepository, eventLog EventLog, index SearchIndex) *EventProcessor {
	return &EventProcessor{products: products, eventLog: eventLog, index: index}
}

// Process handles one event. A returned error means the job should be
// retried; nil means it is done (including the cases where there is simply
// nothing left to do).
func (p *EventProcessor) Process(ctx context.Context, event ProductEvent) error {
	if err := p.eventLog.Append(ctx, event); err != nil {
		return fmt.Errorf("event log append: %w", err)
	}

	switch event.Type {
	case EventProductCreated, EventProductUpdated:
		prod, err := p.products.Get(ctx, event.UserID, event.ProductID)
		if err != nil {
			// Deleted between mutation and processing: the projection should
			// not resurrect it.
			if errors.Is(err, ErrProductNotFound) {
				return p.index.Remove(ctx, event.ProductID)
			}
			return fmt.Errorf("load product for index: %w", err)
		}
		return p.index.Index(ctx, *prod)
	case EventProductDeleted:
		return p.index.Remove(ctx, event.ProductID)
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
}
