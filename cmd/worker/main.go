package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"product-catalog-api/core"
)

func main() {
	cfg, err := core.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "worker.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	var eventLog core.EventLog = core.NoopEventLog{}
	if len(cfg.KafkaBrokers) > 0 {
		eventLog = core.NewKafkaEventLog(cfg.KafkaBrokers, core.ProductEventsTopic)
	}
	defer eventLog.Close()

	var index core.SearchIndex = core.NoopSearchIndex{}
	if cfg.SearchEnabled {
		index = core.NewRedisSearchIndex(redisClient)
	}

	queue := core.NewRedisQueue(redisClient)
	productRepo := core.NewPgProductRepository(db)
	processor := core.NewEventProcessor(productRepo, eventLog, index)

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	workerID := core.NewWorkerID()
	hostname, _ := os.Hostname()
	log.Printf("event worker started. id=%s concurrency=%d queue=%s brokers=%v", workerID, concurrency, core.PendingEventsKey, cfg.KafkaBrokers)

	const pendingKey = core.PendingEventsKey
	const processingKey = core.ProcessingEventsKey
	visibility := core.DefaultVisibilityTimeout
	reclaimInterval := 15 * time.Second
	const maxAttempts = 3

	state := core.NewHeartbeatState(workerID, hostname, concurrency)
	go state.Start(ctx, redisClient)

	// requeue expired in-flight events periodically
	go func() {
		ticker := time.NewTicker(reclaimInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if jobs, err := queue.RequeueExpired(ctx, processingKey, pendingKey, time.Now()); err != nil {
					log.Printf("[reclaimer] requeue expired error: %v", err)
				} else if len(jobs) > 0 {
					log.Printf("[reclaimer] requeued %d expired events", len(jobs))
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			for {
				payload, err := queue.Reserve(ctx, pendingKey, processingKey, visibility)
				if err != nil {
					if errors.Is(err, redis.Nil) {
						select {
						case <-ctx.Done():
							return
						case <-time.After(100 * time.Millisecond):
							continue
						}
					}
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					log.Printf("[worker %d] reserve error: %v", workerNum, err)
					time.Sleep(time.Second)
					continue
				}

				var job core.EventJob
				if err := json.Unmarshal([]byte(payload), &job); err != nil {
					// Malformed payloads are dropped; retrying cannot fix them.
					log.Printf("[worker %d] dropping malformed event payload: %v", workerNum, err)
					_ = queue.Ack(ctx, processingKey, payload)
					continue
				}

				state.JobStarted(job.Event.ProductID)
				procErr := processor.Process(ctx, job.Event)
				if procErr != nil {
					job.Attempts++
					if job.Attempts < maxAttempts {
						if retry, err := json.Marshal(job); err == nil {
							if err := queue.Enqueue(ctx, pendingKey, string(retry)); err != nil {
								log.Printf("[worker %d] re-enqueue failed for product %s: %v", workerNum, job.Event.ProductID, err)
							} else {
								log.Printf("[worker %d] event retried (attempts=%d): %v", workerNum, job.Attempts, procErr)
							}
						}
					} else {
						// Projections stay stale; the primary store is unaffected.
						log.Printf("[worker %d] dropping event after %d attempts: type=%s product=%s err=%v",
							workerNum, job.Attempts, job.Event.Type, job.Event.ProductID, procErr)
					}
				}

				if err := queue.Ack(ctx, processingKey, payload); err != nil {
					log.Printf("[worker %d] ack failed for product %s: %v", workerNum, job.Event.ProductID, err)
				}
				state.JobFinished(job.Event.ProductID, procErr)
			}
		}(i + 1)
	}

	wg.Wait()
}
