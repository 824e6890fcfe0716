// Package app composes the ledger engine with its stores, lock registry and
// lifecycle-managed components. It contains no business logic of its own.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerware/ledger-service/internal/app/locks"
	"github.com/ledgerware/ledger-service/internal/app/metrics"
	"github.com/ledgerware/ledger-service/internal/app/policy"
	ledgersvc "github.com/ledgerware/ledger-service/internal/app/services/ledger"
	"github.com/ledgerware/ledger-service/internal/app/storage"
	"github.com/ledgerware/ledger-service/internal/app/storage/memory"
	"github.com/ledgerware/ledger-service/internal/app/system"
	"github.com/ledgerware/ledger-service/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Accounts storage.AccountStore
	History  storage.HistoryStore
}

// Config carries application-level tunables.
type Config struct {
	// Limits is the policy table; the zero value selects the defaults.
	Limits policy.Limits

	// LockWaitTimeout bounds per-account lock acquisition; zero disables.
	LockWaitTimeout time.Duration

	// MonitorInterval controls lock registry sampling; zero selects the
	// monitor's default.
	MonitorInterval time.Duration
}

// Application ties the ledger service together and manages its lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Ledger *ledgersvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, cfg Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Accounts == nil {
		stores.Accounts = mem
	}
	if stores.History == nil {
		stores.History = mem
	}

	limits := cfg.Limits
	if limits == (policy.Limits{}) {
		limits = policy.DefaultLimits()
	}

	engine := ledgersvc.New(stores.Accounts, stores.History, log,
		ledgersvc.WithLimits(limits),
		ledgersvc.WithLockWaitTimeout(cfg.LockWaitTimeout),
	)

	registry := engine.Registry()
	metrics.RegisterLockGauges(registry.Len, func() int {
		_, depth := registry.MaxQueueLength()
		return depth
	})

	manager := system.NewManager()
	if err := manager.Register(system.NoopService{ServiceName: "ledger"}); err != nil {
		return nil, fmt.Errorf("register ledger service: %w", err)
	}
	if err := manager.Register(locks.NewMonitor(registry, cfg.MonitorInterval, log)); err != nil {
		return nil, fmt.Errorf("register lock monitor: %w", err)
	}

	return &Application{
		manager: manager,
		log:     log,
		Ledger:  engine,
	}, nil
}

// Log returns the application logger.
func (a *Application) Log() *logger.Logger {
	return a.log
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
