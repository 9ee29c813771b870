package effect

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"focus-quest-bot/internal/pkg/lock"
)

// WorkerConfig tunes the worker pool.
type WorkerConfig struct {
	Workers         int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	AttemptTimeout  time.Duration
}

// Stats counts effect outcomes.
type Stats struct {
	Applied int64
	Retried int64
	Dropped int64
}

// Worker drains a Queue into a Sink. A dispatcher routes every effect to
// the worker owning its user, so one user's effects are applied in queue
// order. Failed writes are retried with exponential backoff and dropped
// once the retry budget is spent.
type Worker struct {
	queue *Queue
	sink  Sink
	locks *lock.UserLock
	cfg   WorkerConfig
	wg    sync.WaitGroup

	applied atomic.Int64
	retried atomic.Int64
	dropped atomic.Int64
}

// NewWorker creates a worker pool. A nil locks gets a private UserLock.
func NewWorker(queue *Queue, sink Sink, locks *lock.UserLock, cfg WorkerConfig) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 10 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 5 * time.Second
	}
	if locks == nil {
		locks = lock.NewUserLock()
	}
	return &Worker{queue: queue, sink: sink, locks: locks, cfg: cfg}
}

// shardBuffer is the per-worker backlog between dispatcher and worker.
const shardBuffer = 64

// Start launches the dispatcher and the workers. They exit when the queue
// is closed and drained, or when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	shards := make([]chan Effect, w.cfg.Workers)
	for i := range shards {
		shards[i] = make(chan Effect, shardBuffer)
		w.wg.Add(1)
		go w.run(ctx, shards[i])
	}
	w.wg.Add(1)
	go w.dispatch(ctx, shards)
	log.Info().Int("workers", w.cfg.Workers).Msg("Effect workers started")
}

// shardOf maps a user to one of n workers.
func shardOf(userID int64, n int) int {
	return int(uint64(userID) % uint64(n))
}

// Wait blocks until every worker exits or ctx is done.
func (w *Worker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the outcome counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Applied: w.applied.Load(),
		Retried: w.retried.Load(),
		Dropped: w.dropped.Load(),
	}
}

func (w *Worker) dispatch(ctx context.Context, shards []chan Effect) {
	defer w.wg.Done()
	defer func() {
		for _, ch := range shards {
			close(ch)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-w.queue.items():
			if !ok {
				return
			}
			select {
			case shards[shardOf(e.UserID, len(shards))] <- e:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) run(ctx context.Context, in <-chan Effect) {
	defer w.wg.Done()
	for e := range in {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, e)
	}
}

func (w *Worker) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.InitialInterval
	b.MaxInterval = w.cfg.MaxInterval
	b.MaxElapsedTime = w.cfg.MaxElapsedTime
	return backoff.WithContext(b, ctx)
}

func (w *Worker) process(ctx context.Context, e Effect) {
	err := w.locks.WithLockContext(ctx, e.UserID, func() error {
		op := func() error {
			e.Attempts++
			attemptCtx, cancel := context.WithTimeout(ctx, w.cfg.AttemptTimeout)
			defer cancel()
			return w.sink.Apply(attemptCtx, e)
		}
		notify := func(err error, next time.Duration) {
			w.retried.Add(1)
			log.Warn().
				Err(err).
				Str("effect", string(e.Kind)).
				Int64("user_id", e.UserID).
				Int("attempt", e.Attempts).
				Dur("retry_in", next).
				Msg("Effect failed, retrying")
		}
		return backoff.RetryNotify(op, w.newBackOff(ctx), notify)
	})
	if err != nil {
		w.dropped.Add(1)
		log.Error().
			Err(err).
			Str("effect", string(e.Kind)).
			Int64("user_id", e.UserID).
			Int("attempts", e.Attempts).
			Msg("Effect dropped")
		return
	}
	w.applied.Add(1)
	log.Debug().Str("effect", string(e.Kind)).Int64("user_id", e.UserID).Msg("Effect applied")
}
