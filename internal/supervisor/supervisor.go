// Package supervisor is C10, the Worker Supervisor: it owns the process
// lifetime of every background worker (event ingester, model ingester, PnL
// deriver, history deriver, wallet deriver, price updater, price recorder),
// restarting any that return an error and coordinating graceful shutdown.
// Grounded on the teacher's cmd/main.go bootstrap (spawn goroutines, report
// channel, signal-driven shutdown) generalized from one hardcoded strategy
// goroutine into an arbitrary worker registry, and on original_source's
// Task trait (tokio::select! between a sleep and a oneshot stop receiver)
// translated into context.Context cancellation, Go's idiomatic analog of a
// one-shot stop signal.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ponziland/chainindexer/internal/logging"
	"github.com/ponziland/chainindexer/internal/metrics"
)

// Worker is anything the supervisor can run and restart. Run must return
// promptly once ctx is cancelled.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

// Supervisor runs a fixed set of workers, restarting any that exit with an
// error after a short backoff, until its context is cancelled.
type Supervisor struct {
	workers []Worker
	log     zerolog.Logger
	backoff time.Duration
}

// New builds a Supervisor over workers. backoff is the delay before
// restarting a worker whose Run returned an error; it defaults to 5s if
// zero.
func New(log zerolog.Logger, backoff time.Duration, workers ...Worker) *Supervisor {
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	return &Supervisor{workers: workers, log: logging.Component(log, "supervisor"), backoff: backoff}
}

// Run starts every worker in its own goroutine and blocks until ctx is
// cancelled, then waits up to shutdownTimeout for all workers to return.
func (s *Supervisor) Run(ctx context.Context, shutdownTimeout time.Duration) {
	var wg sync.WaitGroup
	for _, w := range s.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			s.runWithRestart(ctx, w)
		}(w)
	}

	<-ctx.Done()
	s.log.Info().Msg("shutdown signal received, waiting for workers to stop")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("all workers stopped cleanly")
	case <-time.After(shutdownTimeout):
		s.log.Warn().Dur("timeout", shutdownTimeout).Msg("shutdown timeout elapsed, exiting with workers still running")
	}
}

func (s *Supervisor) runWithRestart(ctx context.Context, w Worker) {
	for {
		if ctx.Err() != nil {
			return
		}
		err := w.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			metrics.WorkerRestarts.WithLabelValues(w.Name()).Inc()
			s.log.Error().Err(err).Str("worker", w.Name()).Dur("backoff", s.backoff).Msg("worker exited with error, restarting after backoff")
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.backoff):
			}
			continue
		}
		// A clean (nil-error) return before ctx cancellation means the
		// worker considers its work done; don't restart it.
		return
	}
}
