// Package worker runs background jobs inside the server process.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Materializer rebuilds every leaderboard snapshot.
// *service.LeaderboardService implements it.
type Materializer interface {
	MaterializeAll(ctx context.Context, now time.Time) error
}

// Refresher rebuilds the leaderboard snapshots once at start and then every
// interval until Stop is called.
type Refresher struct {
	leaderboard Materializer
	interval    time.Duration
	timeout     time.Duration
	logger      *slog.Logger
	now         func() time.Time

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	runs      chan struct{} // test hook, signalled after each run; may be nil
}

// NewRefresher creates a Refresher. Each run is bounded by the smaller of
// interval and one minute.
func NewRefresher(leaderboard Materializer, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		leaderboard: leaderboard,
		interval:    interval,
		timeout:     min(interval, time.Minute),
		logger:      logger,
		now:         time.Now,
		done:        make(chan struct{}),
	}
}

// Start launches the background loop. Calling it more than once has no
// further effect.
func (r *Refresher) Start() {
	r.startOnce.Do(func() {
		r.logger.Info("starting leaderboard refresher", slog.Duration("interval", r.interval))
		r.wg.Add(1)
		go r.loop()
	})
}

// Stop ends the loop and waits for an in-flight run to finish.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}

func (r *Refresher) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh()
	for {
		select {
		case <-r.done:
			r.logger.Info("leaderboard refresher stopped")
			return
		case <-ticker.C:
			r.refresh()
		}
	}
}

// refresh runs one MaterializeAll. A failure is logged and the next tick
// tries again.
func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	// Stop cancels an in-flight run.
	go func() {
		select {
		case <-r.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	if err := r.leaderboard.MaterializeAll(ctx, r.now()); err != nil {
		r.logger.Error("leaderboard refresh failed", slog.String("error", err.Error()))
	} else {
		r.logger.Debug("leaderboards refreshed", slog.Duration("duration", time.Since(start)))
	}

	if r.runs != nil {
		select {
		case r.runs <- struct{}{}:
		default:
		}
	}
}
