// Package scheduler runs periodic memory decay passes.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arborapp/arbor-core/internal/memstore"
)

// Scheduler wraps the memory store's decay pass behind a timer. Manual
// and scheduled runs may overlap safely: the decay and delete predicates
// are monotonic, so re-evaluating them in quick succession changes
// nothing further.
type Scheduler struct {
	store    *memstore.Store
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	running bool
	lastRun time.Time
	stop    chan struct{}
}

// Status reports the scheduler state.
type Status struct {
	Running bool      `json:"running"`
	LastRun time.Time `json:"last_run,omitempty"`
	NextRun time.Time `json:"next_run,omitempty"`
}

// New creates a Scheduler. Interval defaults to 24h; a nil logger falls
// back to slog.Default.
func New(store *memstore.Store, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, interval: interval, log: logger}
}

// Start runs a decay pass immediately, then every interval. Calling
// Start on a running scheduler is a no-op.
func (d *Scheduler) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.stop = make(chan struct{})
	stop := d.stop
	d.mu.Unlock()

	go func() {
		d.runOnce()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.runOnce()
			case <-stop:
				return
			}
		}
	}()
}

// Stop clears the timer. Safe to call when not running.
func (d *Scheduler) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.running = false
	close(d.stop)
}

// ForceDecay runs one decay pass synchronously, independent of the timer.
func (d *Scheduler) ForceDecay(ctx context.Context) (*memstore.DecayResult, error) {
	res, err := d.store.RunDecay(ctx)
	if err == nil {
		d.mu.Lock()
		d.lastRun = time.Now().UTC()
		d.mu.Unlock()
	}
	return res, err
}

// GetStatus reports whether the timer is running, the last pass time, and
// the computed next pass time.
func (d *Scheduler) GetStatus() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := Status{Running: d.running, LastRun: d.lastRun}
	if d.running && !d.lastRun.IsZero() {
		st.NextRun = d.lastRun.Add(d.interval)
	}
	return st
}

func (d *Scheduler) runOnce() {
	res, err := d.store.RunDecay(context.Background())
	if err != nil {
		d.log.Error("scheduled decay failed", "error", err)
		return
	}
	d.mu.Lock()
	d.lastRun = time.Now().UTC()
	d.mu.Unlock()
	d.log.Debug("scheduled decay complete", "updated", res.Updated, "deleted", res.Deleted)
}
