package core

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// EventPublisher hands product events to the queue on a best-effort basis.
// Publish never returns an error and never blocks beyond its timeout: the
// primary write has already committed when it runs, and a lost notification
// only leaves the projections stale.
type EventPublisher struct {
	queue   QueueClient
	enabled bool
	timeout time.Duration
}

func NewEventPublisher(queue QueueClient, enabled bool, timeout time.Duration) *EventPublisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &EventPublisher{queue: queue, enabled: enabled, timeout: timeout}
}

// Publish enqueues the event. Disabled publisher, marshal failure, and
// queue failure all degrade to a log line.
func (p *EventPublisher) Publish(event ProductEvent) {
	if p == nil || !p.enabled || p.queue == nil {
		return
	}
	payload, err := json.Marshal(EventJob{Event: event})
	if err != nil {
		log.Printf("event publish skipped, marshal failed: %v", err)
		return
	}
	// Detached from the request context: the response may already be on the
	// wire, and a client disconnect must not cancel the attempt.
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.queue.Enqueue(ctx, PendingEventsKey, string(payload)); err != nil {
		log.Printf("event publish failed, skipping: type=%s product=%s err=%v", event.Type, event.ProductID, err)
	}
}
