// Package connectivity watches the collaborator's liveness endpoint and
// reports offline-to-online transitions. The outbox sweep hangs off that
// edge: probing happens on an interval, but a sweep only ever fires when
// connectivity returns, never on a flat timer.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/mxscan/scankit/logger"
)

// DefaultInterval is how often the probe runs.
const DefaultInterval = 15 * time.Second

// Prober answers whether the collaborator is currently reachable.
type Prober interface {
	Probe(ctx context.Context) bool
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) bool

func (f ProberFunc) Probe(ctx context.Context) bool { return f(ctx) }

// Monitor polls a Prober and invokes OnOnline exactly once per
// offline-to-online transition.
type Monitor struct {
	ctx       context.Context
	cancel    context.CancelFunc
	prober    Prober
	log       logger.Logger
	interval  time.Duration
	onOnline  func(ctx context.Context)
	waitGroup sync.WaitGroup
	once      sync.Once

	mutex  sync.Mutex
	online bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval overrides the probe interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// New returns a Monitor that calls onOnline on each offline-to-online
// transition. The monitor starts in the offline state, so a reachable
// server triggers one initial callback; a drain against an empty outbox
// is a no-op, which keeps startup simple.
func New(parent context.Context, prober Prober, log logger.Logger, onOnline func(ctx context.Context), opts ...Option) *Monitor {
	ctx, cancel := context.WithCancel(parent)
	m := &Monitor{
		ctx:      ctx,
		cancel:   cancel,
		prober:   prober,
		log:      log.WithPrefix("[connectivity]"),
		interval: DefaultInterval,
		onOnline: onOnline,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.waitGroup.Add(1)
	go m.run()
	return m
}

func (m *Monitor) run() {
	defer m.waitGroup.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.online
}

// Check probes immediately (outside the regular interval) and fires the
// callback if this observation is an offline-to-online transition.
// Explicit user action routes through here.
func (m *Monitor) Check() {
	up := m.prober.Probe(m.ctx)
	m.mutex.Lock()
	wasOnline := m.online
	m.online = up
	m.mutex.Unlock()

	switch {
	case up && !wasOnline:
		m.log.Info("connectivity restored")
		if m.onOnline != nil {
			m.onOnline(m.ctx)
		}
	case !up && wasOnline:
		m.log.Warn("connectivity lost")
	}
}

// Close stops the monitor and waits for the poll loop to exit.
func (m *Monitor) Close() {
	m.once.Do(func() {
		m.cancel()
		m.waitGroup.Wait()
	})
}
