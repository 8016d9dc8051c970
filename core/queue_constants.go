package core

import "time"

// Redis keys and defaults for the product event queue.
const (
	PendingEventsKey    = "pending_product_events"
	ProcessingEventsKey = "processing_product_events"
	// DefaultVisibilityTimeout is how long a reserved event stays invisible
	// before the reclaimer puts it back on the pending list.
	DefaultVisibilityTimeout = 30 * time.Second
)
