package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) (*RedisQueue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisQueue(client), client
}

func TestQueueEnqueueReserveAck(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, PendingEventsKey, "job-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got, err := q.Reserve(ctx, PendingEventsKey, ProcessingEventsKey, time.Minute)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if got != "job-1" {
		t.Errorf("Reserve = %q, want job-1", got)
	}

	if n := client.LLen(ctx, PendingEventsKey).Val(); n != 0 {
		t.Errorf("pending length after reserve = %d, want 0", n)
	}
	if n := client.ZCard(ctx, ProcessingEventsKey).Val(); n != 1 {
		t.Errorf("processing size after reserve = %d, want 1", n)
	}

	if err := q.Ack(ctx, ProcessingEventsKey, got); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if n := client.ZCard(ctx, ProcessingEventsKey).Val(); n != 0 {
		t.Errorf("processing size after ack = %d, want 0", n)
	}
}

func TestQueueReserveEmpty(t *testing.T) {
	q, _ := newTestQueue(t)
	_, err := q.Reserve(context.Background(), PendingEventsKey, ProcessingEventsKey, time.Minute)
	if !errors.Is(err, redis.Nil) {
		t.Errorf("Reserve on empty queue: got %v, want redis.Nil", err)
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	for _, v := range []string{"first", "second", "third"} {
		if err := q.Enqueue(ctx, PendingEventsKey, v); err != nil {
			t.Fatalf("Enqueue %s: %v", v, err)
		}
	}
	for _, want := range []string{"first", "second", "third"} {
		got, err := q.Reserve(ctx, PendingEventsKey, ProcessingEventsKey, time.Minute)
		if err != nil {
			t.Fatalf("Reserve: %v", err)
		}
		if got != want {
			t.Errorf("Reserve = %q, want %q", got, want)
		}
	}
}

func TestQueueRequeueExpired(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, PendingEventsKey, "job-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	// Already expired when reserved.
	if _, err := q.Reserve(ctx, PendingEventsKey, ProcessingEventsKey, -time.Second); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	requeued, err := q.RequeueExpired(ctx, ProcessingEventsKey, PendingEventsKey, time.Now())
	if err != nil {
		t.Fatalf("RequeueExpired: %v", err)
	}
	if len(requeued) != 1 || requeued[0] != "job-1" {
		t.Fatalf("RequeueExpired = %v, want [job-1]", requeued)
	}

	got, err := q.Reserve(ctx, PendingEventsKey, ProcessingEventsKey, time.Minute)
	if err != nil {
		t.Fatalf("Reserve after requeue: %v", err)
	}
	if got != "job-1" {
		t.Errorf("Reserve after requeue = %q, want job-1", got)
	}
}

func TestQueueRequeueExpiredKeepsLiveItems(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, PendingEventsKey, "live"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := q.Reserve(ctx, PendingEventsKey, ProcessingEventsKey, time.Hour); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	requeued, err := q.RequeueExpired(ctx, ProcessingEventsKey, PendingEventsKey, time.Now())
	if err != nil {
		t.Fatalf("RequeueExpired: %v", err)
	}
	if len(requeued) != 0 {
		t.Errorf("RequeueExpired moved a live item: %v", requeued)
	}
	if n := client.ZCard(ctx, ProcessingEventsKey).Val(); n != 1 {
		t.Errorf("processing size = %d, want 1", n)
	}
}
