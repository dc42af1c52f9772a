package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueReporte = "jobs:reporte"
	QueueEmail   = "jobs:email"
)

// In-queue retries before a job rests in the DLQ; the retry cron redelivers
// it once the SMTP circuit breaker recovers, up to MaxTotalAttempts overall.
const (
	MaxJobAttempts   = 3
	MaxTotalAttempts = 9
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueReporte pushes a cierre report job to Redis.
func (d *Dispatcher) EnqueueReporte(ctx context.Context, payload interface{}) error {
	return d.enqueue(ctx, QueueReporte, "reporte", payload)
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload interface{}) error {
	return d.enqueue(ctx, QueueEmail, "email", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handlers wires a processor to each queue.
type Handlers struct {
	Reporte *ReporteWorker
	Email   *EmailWorker
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers Handlers) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, handlers)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers Handlers) {
	queues := []string{QueueReporte, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	var err error
	switch queue {
	case QueueReporte:
		err = handlers.Reporte.Process(ctx, job.Payload)
	case QueueEmail:
		err = handlers.Email.Process(ctx, job.Payload)
	default:
		log.Error().Str("queue", queue).Msg("no handler for queue")
		return
	}

	if err != nil {
		requeueOrDLQ(ctx, rdb, queue, job, err)
		return
	}
	log.Info().Str("type", job.Type).Str("queue", queue).Msg("job processed")
}

// requeueOrDLQ retries a failed job in place; every MaxJobAttempts consecutive
// failures it rests in the DLQ for the retry cron to pick up later.
func requeueOrDLQ(ctx context.Context, rdb *redis.Client, queue string, job Job, cause error) {
	job.Attempts++
	if job.Attempts%MaxJobAttempts == 0 {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, cause.Error(), job.Attempts)
		return
	}

	encoded, err := json.Marshal(job)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("failed to re-marshal job for retry")
		return
	}
	if err := rdb.LPush(ctx, queue, encoded).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("failed to requeue job")
		return
	}
	log.Warn().
		Str("type", job.Type).
		Str("queue", queue).
		Int("attempts", job.Attempts).
		Err(cause).
		Msg("job failed, requeued")
}
