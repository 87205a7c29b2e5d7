// Package worker runs search rounds off the round queue. A single poller
// leases batches of visible jobs and fans them out to a fixed number of
// workers; each job's outcome decides whether it is acknowledged, left
// leased until its deferred wake time, released for a backed-off retry, or
// dead-lettered.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/donor-search/internal/config"
	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/repo"
	"github.com/tbourn/donor-search/internal/search"
)

// JobQueue is the lease-based queue the pool drains.
type JobQueue interface {
	Receive(ctx context.Context, max int) ([]domain.RoundJob, error)
	Delete(ctx context.Context, handle string) error
	Release(ctx context.Context, handle string, delay time.Duration, reason string) error
	DeadLetter(ctx context.Context, handle string, reason string) error
	Stats(ctx context.Context) (repo.QueueStats, error)
}

// RoundProcessor executes one round.
type RoundProcessor interface {
	ProcessRound(ctx context.Context, handle string, body []byte) error
}

// Pool drains a JobQueue into a RoundProcessor.
type Pool struct {
	queue JobQueue
	proc  RoundProcessor
	cfg   config.QueueConfig
}

// NewPool returns a pool configured by cfg.
func NewPool(q JobQueue, p RoundProcessor, cfg config.QueueConfig) *Pool {
	return &Pool{queue: q, proc: p, cfg: cfg}
}

// Run blocks until ctx is cancelled and all in-flight rounds have finished.
func (p *Pool) Run(ctx context.Context) {
	workers := p.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan domain.RoundJob, workers*p.batchSize())

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(id int) {
			defer wg.Done()
			log.Debug().Int("worker", id).Msg("round worker started")
			for job := range jobs {
				// In-flight rounds run to completion on shutdown.
				p.handle(context.WithoutCancel(ctx), job)
			}
			log.Debug().Int("worker", id).Msg("round worker stopped")
		}(i)
	}

	p.poll(ctx, jobs)
	close(jobs)
	wg.Wait()
	log.Info().Msg("round worker pool stopped")
}

func (p *Pool) batchSize() int {
	if p.cfg.BatchSize < 1 {
		return 1
	}
	return p.cfg.BatchSize
}

// poll leases jobs until ctx is cancelled. It waits PollInterval after an
// empty or failed receive.
func (p *Pool) poll(ctx context.Context, out chan<- domain.RoundJob) {
	for {
		if ctx.Err() != nil {
			return
		}
		batch, err := p.queue.Receive(ctx, p.batchSize())
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("receive rounds")
		}
		for _, job := range batch {
			select {
			case out <- job:
			case <-ctx.Done():
				// Unsent jobs become visible again after their lease.
				return
			}
		}
		if err == nil && len(batch) > 0 {
			continue
		}
		p.refreshStats(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

// handle settles one job according to the round's result.
func (p *Pool) handle(ctx context.Context, job domain.RoundJob) {
	lg := log.With().Str("job_id", job.ID).Int("receive_count", job.ReceiveCount).Logger()

	err := p.proc.ProcessRound(ctx, job.ReceiptHandle, job.Body)
	switch {
	case err == nil:
		if derr := p.queue.Delete(ctx, job.ReceiptHandle); derr != nil {
			p.settleFailed(lg, "delete", derr)
			return
		}
		jobsTotal.WithLabelValues(resultDone).Inc()

	case search.IsIntentional(err):
		jobsTotal.WithLabelValues(resultDeferred).Inc()
		lg.Debug().Str("reason", err.Error()).Msg("round deferred")

	case job.ReceiveCount >= p.cfg.MaxReceives:
		if derr := p.queue.DeadLetter(ctx, job.ReceiptHandle, err.Error()); derr != nil {
			p.settleFailed(lg, "dead-letter", derr)
			return
		}
		jobsTotal.WithLabelValues(resultDead).Inc()
		lg.Error().Err(err).Msg("round dead-lettered")

	default:
		delay := RetryDelay(p.cfg.RetryBaseDelay, job.ReceiveCount)
		if rerr := p.queue.Release(ctx, job.ReceiptHandle, delay, err.Error()); rerr != nil {
			p.settleFailed(lg, "release", rerr)
			return
		}
		jobsTotal.WithLabelValues(resultRetried).Inc()
		lg.Error().Err(err).Bool("operational", search.IsOperational(err)).Dur("retry_in", delay).Msg("round failed")
	}
}

// settleFailed logs a failed acknowledgement. A stale handle means the lease
// expired and another receiver owns the job now.
func (p *Pool) settleFailed(lg zerolog.Logger, op string, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		jobsTotal.WithLabelValues(resultLost).Inc()
		lg.Warn().Str("op", op).Msg("round lease lost before settle")
		return
	}
	jobsTotal.WithLabelValues(resultError).Inc()
	lg.Error().Err(fmt.Errorf("%s round: %w", op, err)).Msg("settle round")
}

func (p *Pool) refreshStats(ctx context.Context) {
	s, err := p.queue.Stats(ctx)
	if err != nil {
		return
	}
	queueJobs.WithLabelValues("ready").Set(float64(s.Ready))
	queueJobs.WithLabelValues("in_flight").Set(float64(s.InFlight))
	queueJobs.WithLabelValues("dead").Set(float64(s.Dead))
}

// RetryDelay is base·2^(receives-1), capped at 64·base.
func RetryDelay(base time.Duration, receives int) time.Duration {
	n := receives - 1
	if n < 0 {
		n = 0
	}
	if n > 6 {
		n = 6
	}
	return base << n
}
