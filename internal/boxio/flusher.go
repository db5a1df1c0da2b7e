package boxio

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/banshee-data/mdspace/internal/timeutil"
)

// Flushable is anything with a Flush, typically a *DiskBuffer.
type Flushable interface {
	Flush() error
}

// Flusher periodically flushes a buffer so a crash loses at most one
// interval of paged events.
type Flusher struct {
	target   Flushable
	interval time.Duration
	clock    timeutil.Clock
	logger   *log.Logger
	mu       sync.Mutex
	running  bool
	flushes  int
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// FlusherConfig contains configuration for Flusher.
type FlusherConfig struct {
	// Target is flushed on every tick and once more on shutdown.
	Target Flushable
	// Interval is how often to flush (e.g. 30*time.Second)
	Interval time.Duration
	// Clock drives the ticker; defaults to the real clock.
	Clock timeutil.Clock
	// Logger is optional; if nil, uses log.Default()
	Logger *log.Logger
}

// NewFlusher creates a new Flusher.
func NewFlusher(cfg FlusherConfig) *Flusher {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Flusher{
		target:   cfg.Target,
		interval: cfg.Interval,
		clock:    clock,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run flushes on every tick until ctx is cancelled or Stop is called, then
// flushes once more. It returns nil on clean shutdown.
func (f *Flusher) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = true
	f.stopCh = make(chan struct{})
	f.doneCh = make(chan struct{})
	f.mu.Unlock()

	defer func() {
		close(f.doneCh)
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
	}()

	if f.interval <= 0 {
		f.logger.Printf("[Flusher] interval is zero or negative, not starting")
		return nil
	}

	ticker := f.clock.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.flush("final")
			return nil
		case <-f.stopCh:
			f.flush("final")
			return nil
		case <-ticker.C():
			f.flush("periodic")
		}
	}
}

// Stop requests the flusher to stop and waits for the final flush. It is
// safe to call multiple times.
func (f *Flusher) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	f.mu.Unlock()
	<-f.doneCh
}

func (f *Flusher) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Flushes is the number of successful flushes so far.
func (f *Flusher) Flushes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

// FlushNow flushes outside the regular interval.
func (f *Flusher) FlushNow() {
	f.flush("manual")
}

func (f *Flusher) flush(reason string) {
	if f.target == nil {
		return
	}
	if err := f.target.Flush(); err != nil {
		f.logger.Printf("[Flusher] %s flush failed: %v", reason, err)
		return
	}
	f.mu.Lock()
	f.flushes++
	f.mu.Unlock()
}
