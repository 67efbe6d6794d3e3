package worker

// replay.go
// Background goroutine that moves dead-lettered jobs back onto their queue
// once the SMTP circuit breaker is no longer open. Each job is replayed at
// most MaxReplays times; after that it stays in the DLQ.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"spazatrack/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	replayTickInterval = time.Minute
	replayBatchSize    = 10

	MaxReplays = 2
)

// ReplayConfig holds all dependencies for the replay goroutine.
type ReplayConfig struct {
	RDB   *redis.Client
	Queue string
	// BreakerState reports the downstream circuit; nil means always closed.
	BreakerState func() infra.CBState
	Interval     time.Duration
}

// StartDLQReplay ticks every cfg.Interval (default one minute) until ctx is
// cancelled.
func StartDLQReplay(ctx context.Context, cfg ReplayConfig) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = replayTickInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Str("queue", cfg.Queue).Msg("dlq_replay: started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("dlq_replay: shutting down")
				return
			case <-ticker.C:
				if n := replayDeadJobs(ctx, cfg); n > 0 {
					log.Info().Int("count", n).Str("queue", cfg.Queue).Msg("dlq_replay: jobs re-queued")
				}
			}
		}
	}()
}

// replayDeadJobs re-queues up to replayBatchSize entries and returns how many
// went back to the live queue. Exhausted entries are rotated to the head of
// the DLQ so one pass never visits an entry twice.
func replayDeadJobs(ctx context.Context, cfg ReplayConfig) int {
	if cfg.BreakerState != nil && cfg.BreakerState() == infra.CBOpen {
		log.Debug().Msg("dlq_replay: circuit breaker is open, skipping tick")
		return 0
	}

	dlqKey := DLQPrefix + cfg.Queue
	pending, err := cfg.RDB.LLen(ctx, dlqKey).Result()
	if err != nil {
		log.Error().Err(err).Msg("dlq_replay: LLEN failed")
		return 0
	}
	if pending > replayBatchSize {
		pending = replayBatchSize
	}

	replayed := 0
	for i := int64(0); i < pending; i++ {
		raw, err := cfg.RDB.RPop(ctx, dlqKey).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Error().Err(err).Msg("dlq_replay: RPOP failed")
			}
			return replayed
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Replays >= MaxReplays {
			// Park it again for manual inspection.
			if err := cfg.RDB.LPush(ctx, dlqKey, raw).Err(); err != nil {
				log.Error().Err(err).Msg("dlq_replay: failed to park entry")
			}
			continue
		}

		job, _ := json.Marshal(Job{Type: entry.JobType, Payload: entry.Payload, Replays: entry.Replays + 1})
		if err := cfg.RDB.LPush(ctx, cfg.Queue, job).Err(); err != nil {
			log.Error().Err(err).Msg("dlq_replay: failed to re-queue job")
			_ = cfg.RDB.RPush(ctx, dlqKey, raw).Err()
			return replayed
		}
		replayed++
	}
	return replayed
}
