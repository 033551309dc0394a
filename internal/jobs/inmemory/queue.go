package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/fatura-itau/internal/jobs"
	"github.com/dvloznov/fatura-itau/internal/logger"
)

// ErrQueueClosed is returned when publishing to or starting a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

const defaultWorkers = 5

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// This implementation is suitable for single-instance deployments and testing.
type Queue struct {
	jobChan   chan *jobs.ConvertBatchJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool
	// Pending retry timers, stopped by Stop.
	timers map[*time.Timer]struct{}

	workers int
	backoff func(retry int) time.Duration
	now     func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithWorkers sets the number of concurrent workers started by Start.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithBackoff sets the delay before retry number n (1-based).
func WithBackoff(fn func(retry int) time.Duration) Option {
	return func(q *Queue) { q.backoff = fn }
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before PublishConvertBatch blocks.
func NewQueue(bufferSize int, store jobs.JobStore, opts ...Option) *Queue {
	q := &Queue{
		jobChan:   make(chan *jobs.ConvertBatchJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		timers:    make(map[*time.Timer]struct{}),
		workers:   defaultWorkers,
		backoff:   linearBackoff,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func linearBackoff(retry int) time.Duration {
	return time.Duration(retry) * time.Second
}

// PublishConvertBatch implements the Publisher interface.
// It fills in the job's defaults and enqueues a copy, so the caller may keep
// reading job while a worker processes it.
func (q *Queue) PublishConvertBatch(ctx context.Context, job *jobs.ConvertBatchJob) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = jobs.DefaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job.Clone():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return ErrQueueClosed
	}
}

// Start implements the Consumer interface.
// The handler is called concurrently, up to the configured worker count.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

// worker processes jobs from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.ConvertBatchJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Logger()

	job.Status = jobs.JobStatusRunning
	started := q.now()
	job.StartedAt = &started
	job.CompletedAt = nil
	q.save(ctx, job)

	err := handler(logger.WithContext(ctx, log), job)

	completed := q.now()
	job.CompletedAt = &completed

	retry := false
	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		log.Info().Int("documents", len(job.GCSURIs)).Msg("Job completed")
	case job.RetryCount < job.MaxRetries:
		job.Error = err.Error()
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		log.Warn().Err(err).Int("retry", job.RetryCount).Msg("Job failed, retrying")
		retry = true
	default:
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
		log.Error().Err(err).Int("retries", job.RetryCount).Msg("Job failed")
	}

	q.save(ctx, job)
	if !retry {
		return
	}

	q.scheduleRetry(ctx, job, log)
}

// scheduleRetry re-enqueues job after its backoff. Nothing happens once the
// queue is stopped; the job stays "retrying" in the store.
func (q *Queue) scheduleRetry(ctx context.Context, job *jobs.ConvertBatchJob, log zerolog.Logger) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		log.Warn().Msg("Queue stopped, retry dropped")
		return
	}

	// The job is not touched here again until the timer re-enqueues it.
	var t *time.Timer
	t = time.AfterFunc(q.backoff(job.RetryCount), func() {
		q.mu.Lock()
		delete(q.timers, t)
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return
		}

		job.Status = jobs.JobStatusPending
		err := q.PublishConvertBatch(ctx, job)
		switch {
		case err == nil:
		case errors.Is(err, ErrQueueClosed):
			log.Warn().Msg("Queue stopped, retry dropped")
		default:
			log.Error().Err(err).Msg("Re-enqueue failed")
			job.Status = jobs.JobStatusFailed
			q.save(context.WithoutCancel(ctx), job)
		}
	})
	q.timers[t] = struct{}{}
}

// pendingRetries reports how many retry timers have not fired yet.
func (q *Queue) pendingRetries() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.timers)
}

func (q *Queue) save(ctx context.Context, job *jobs.ConvertBatchJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("job_id", job.JobID).Msg("Saving job state")
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	for t := range q.timers {
		t.Stop()
	}
	clear(q.timers)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
