/*
scheduler.go - Background expiry sweep scheduler

PURPOSE:
  Periodically runs the reservation expiry sweep so stale reservations are
  compensated even when no attendant triggers the opportunistic endpoint.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Goes through Sweeper.Run, so the in-process throttle and the stored
    control marker apply exactly as they do for opportunistic sweeps
  - A skipped (throttled) run is normal and logged at debug volume only

USAGE:
  scheduler := NewSweepScheduler(handler.Sweeper, maxAge)
  scheduler.Start()
  // ... later
  scheduler.Stop()
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/CelioCruz/fluxo-de-loja-DNZ/ledger"
	"github.com/CelioCruz/fluxo-de-loja-DNZ/reservation"
)

// SweepScheduler triggers expiry sweeps on a timer.
type SweepScheduler struct {
	Sweeper       *reservation.Sweeper
	MaxAge        time.Duration
	CheckInterval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweepScheduler creates a scheduler with a 15 minute check interval.
func NewSweepScheduler(sweeper *reservation.Sweeper, maxAge time.Duration) *SweepScheduler {
	return &SweepScheduler{
		Sweeper:       sweeper,
		MaxAge:        maxAge,
		CheckInterval: 15 * time.Minute,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (ss *SweepScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)
	go ss.run(ss.ticker)

	log.Printf("[Scheduler] Started with check interval %v, expiry age %v", ss.CheckInterval, ss.MaxAge)
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
func (ss *SweepScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		ss.ticker = nil
		close(ss.stop)
		ss.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (ss *SweepScheduler) run(ticker *time.Ticker) {
	defer ss.wg.Done()

	// Run immediately on start.
	ss.sweep()

	for {
		select {
		case <-ticker.C:
			ss.sweep()
		case <-ss.stop:
			return
		}
	}
}

func (ss *SweepScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	expired, err := ss.Sweeper.Run(ctx, ss.MaxAge)
	if err != nil {
		if errors.Is(err, ledger.ErrSweepThrottled) {
			return
		}
		log.Printf("[Scheduler] Sweep failed: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("[Scheduler] Sweep expired %d reservation(s)", expired)
	}
}
