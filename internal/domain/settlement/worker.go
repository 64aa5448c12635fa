package settlement

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const idleLogEvery = time.Minute

// Worker runs poll cycles on a ticker, and immediately whenever a value
// arrives on wake.
type Worker struct {
	proc         *Processor
	interval     time.Duration
	cycleTimeout time.Duration
	wake         <-chan struct{}

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	lastIdleLog time.Time
}

func NewWorker(proc *Processor, interval, cycleTimeout time.Duration, wake <-chan struct{}) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if cycleTimeout <= 0 {
		cycleTimeout = 2 * time.Minute
	}
	return &Worker{
		proc:         proc,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		wake:         wake,
		done:         make(chan struct{}),
	}
}

// Start runs the first cycle right away, then keeps polling until ctx is
// done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
	log.Info().Dur("interval", w.interval).Msg("settlement worker started")
}

// Stop cancels the running cycle between transactions and waits for the
// loop to exit.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.done
		}
		log.Info().Msg("settlement worker stopped")
	})
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
		case <-ticker.C:
		}
		w.runOnce(ctx)
	}
}

func (w *Worker) runOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, w.cycleTimeout)
	defer cancel()

	start := time.Now()
	res, err := w.proc.RunCycle(ctx)
	if err != nil && parent.Err() == nil {
		log.Error().Err(err).Interface("result", res).Msg("settlement cycle aborted")
		return
	}

	if res.Total() == 0 {
		now := time.Now()
		if w.lastIdleLog.IsZero() || now.Sub(w.lastIdleLog) >= idleLogEvery {
			log.Debug().Msg("Idle: no pending transactions")
			w.lastIdleLog = now
		}
		return
	}

	log.Info().
		Int("settled", res.Settled).
		Int("retried", res.Retried).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Dur("took", time.Since(start)).
		Msgf("%d transactions processed", res.Settled)
}
