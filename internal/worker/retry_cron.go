package worker

// retry_cron.go
// Background goroutine that periodically redelivers DLQ'd jobs once the SMTP
// circuit breaker recovers. Entries that keep failing past MaxTotalAttempts
// are parked in dlq:{queue}:parked for manual inspection.

import (
	"context"
	"encoding/json"
	"time"

	"trebolsoft/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	RDB *redis.Client
	CB  *infra.CircuitBreaker
}

// StartRetryCron launches a background goroutine that ticks every 30s and
// drains the dead letter queues back into their source queues whenever the
// circuit breaker is not open. It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed relay
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	for _, queue := range []string{QueueReporte, QueueEmail} {
		drainDLQ(ctx, cfg, queue)
	}
}

func drainDLQ(ctx context.Context, cfg RetryCronConfig, queue string) {
	dlqKey := DLQPrefix + queue

	for i := 0; i < retryBatchSize; i++ {
		// CB may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}

		raw, err := cfg.RDB.RPop(ctx, dlqKey).Result()
		if err != nil {
			return // empty queue or redis error — next tick retries
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Str("dlq_key", dlqKey).Msg("retry_cron: corrupt DLQ entry dropped")
			continue
		}

		if entry.Attempts >= MaxTotalAttempts {
			parkedKey := dlqKey + ParkedSuffix
			if err := cfg.RDB.LPush(ctx, parkedKey, raw).Err(); err != nil {
				log.Error().Err(err).Str("parked_key", parkedKey).Msg("retry_cron: failed to park entry")
			} else {
				log.Error().
					Str("queue", queue).
					Str("job_type", entry.JobType).
					Int("attempts", entry.Attempts).
					Msg("retry_cron: max total attempts exceeded, entry parked")
			}
			continue
		}

		job := Job{Type: entry.JobType, Payload: entry.Payload, Attempts: entry.Attempts}
		encoded, err := json.Marshal(job)
		if err != nil {
			log.Error().Err(err).Msg("retry_cron: failed to marshal redelivery")
			continue
		}
		if err := cfg.RDB.LPush(ctx, entry.OriginalQueue, encoded).Err(); err != nil {
			log.Error().Err(err).Str("queue", entry.OriginalQueue).Msg("retry_cron: failed to redeliver")
			continue
		}
		log.Info().
			Str("queue", entry.OriginalQueue).
			Str("job_type", entry.JobType).
			Int("attempts", entry.Attempts).
			Msg("retry_cron: job redelivered")
	}
}
