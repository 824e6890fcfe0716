package locks

import (
	"context"
	"sync"
	"time"

	"github.com/ledgerware/ledger-service/internal/app/system"
	"github.com/ledgerware/ledger-service/pkg/logger"
)

// Monitor periodically samples the registry and logs its size and deepest
// waiter queue. The registry never evicts handles, so the sampled size is
// also the high-water mark of per-account locks held in memory.
type Monitor struct {
	registry *Registry
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

var _ system.Service = (*Monitor)(nil)

// NewMonitor creates a monitor sampling the registry at the given interval.
func NewMonitor(registry *Registry, interval time.Duration, log *logger.Logger) *Monitor {
	if log == nil {
		log = logger.NewDefault("lock-monitor")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{registry: registry, interval: interval, log: log}
}

func (m *Monitor) Name() string { return "lock-monitor" }

func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()

	m.log.Info("lock monitor started")
	return nil
}

func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (m *Monitor) sample() {
	id, depth := m.registry.MaxQueueLength()
	m.log.WithField("handles", m.registry.Len()).
		WithField("deepest_queue", depth).
		WithField("deepest_queue_account", id).
		Debug("lock registry snapshot")
}
