package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"spazatrack/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueLowStock = "jobs:low_stock"

	JobTypeLowStock = "low_stock"

	// MaxAttempts is how many times a job runs before it is dead-lettered.
	MaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Replays int             `json:"replays,omitempty"` // times re-queued from the DLQ
}

// JobHandler processes one job payload. A returned error triggers a retry.
type JobHandler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// WorkerHandlers maps job types to their handlers. Nil handlers drop the job
// with a warning.
type WorkerHandlers struct {
	LowStock JobHandler
}

func (h WorkerHandlers) forType(jobType string) JobHandler {
	switch jobType {
	case JobTypeLowStock:
		return h.LowStock
	}
	return nil
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb     *redis.Client
	metrics *metrics.Metrics
}

func NewDispatcher(rdb *redis.Client, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{rdb: rdb, metrics: m}
}

// EnqueueLowStock pushes a low-stock alert job to Redis.
func (d *Dispatcher) EnqueueLowStock(ctx context.Context, payload LowStockPayload) error {
	if err := d.enqueue(ctx, QueueLowStock, JobTypeLowStock, payload); err != nil {
		return err
	}
	d.metrics.LowStockEnqueued()
	return nil
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Pool is a set of goroutines consuming the job queues.
type Pool struct {
	rdb      *redis.Client
	handlers WorkerHandlers
	metrics  *metrics.Metrics
	backoff  time.Duration // base delay between attempts, doubled each retry
	wg       sync.WaitGroup
}

// StartWorkerPool launches numWorkers goroutines consuming QueueLowStock.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers WorkerHandlers, m *metrics.Metrics, numWorkers int) *Pool {
	p := newPool(rdb, handlers, m)
	if numWorkers < 1 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return p
}

func newPool(rdb *redis.Client, handlers WorkerHandlers, m *metrics.Metrics) *Pool {
	return &Pool{rdb: rdb, handlers: handlers, metrics: m, backoff: time.Second}
}

// Wait blocks until every worker has returned after ctx cancellation.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	queues := []string{QueueLowStock}
	for {
		if ctx.Err() != nil {
			log.Info().Msgf("worker %d shutting down", id)
			return
		}
		// Blocking pop waits up to 5s, then loops to check ctx
		result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("worker: BRPOP failed")
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		p.processJob(ctx, result[0], result[1])
	}
}

// processJob runs one job with retries and dead-letters it once every
// attempt failed.
func (p *Pool) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		p.metrics.JobProcessed(queue, "dead")
		quoted, _ := json.Marshal(raw)
		if dlqErr := SendToDLQ(ctx, p.rdb, queue, Job{Type: "unknown", Payload: quoted}, "malformed job: "+err.Error(), 0); dlqErr != nil {
			log.Error().Err(dlqErr).Str("queue", queue).Msg("dlq: push failed")
		}
		return
	}

	h := p.handlers.forType(job.Type)
	if h == nil {
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("no handler for job type, dropping")
		return
	}

	err := withRetry(ctx, MaxAttempts, p.backoff, func(attempt int) error {
		err := h.Process(ctx, job.Payload)
		if err != nil {
			p.metrics.JobProcessed(queue, "retry")
			log.Warn().Err(err).Str("type", job.Type).Int("attempt", attempt+1).Msg("job attempt failed")
		}
		return err
	})
	if err == nil {
		p.metrics.JobProcessed(queue, "ok")
		return
	}

	p.metrics.JobProcessed(queue, "dead")
	reason := fmt.Sprintf("max attempts (%d) exceeded: %s", MaxAttempts, err)
	if dlqErr := SendToDLQ(ctx, p.rdb, queue, job, reason, MaxAttempts); dlqErr != nil {
		log.Error().Err(dlqErr).Str("queue", queue).Msg("dlq: push failed")
	}
}

// withRetry calls fn up to maxAttempts times with exponential backoff:
// attempt 1 immediately, then base, 2*base, ...
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * base
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
