// Package app composes the ledger service into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/ledger/      # Domain models and the error taxonomy
//	├── policy/             # Stateless request validation limits
//	├── locks/              # Per-account FIFO lock registry and its monitor
//	├── storage/            # Store interfaces
//	│   └── memory/         # In-memory implementation
//	├── services/ledger/    # The ledger engine (credit, debit, reads)
//	├── httpapi/            # HTTP handlers, middleware and audit trail
//	├── system/             # Lifecycle management for background services
//	└── metrics/            # Prometheus collectors
//
// # Responsibilities
//
// The app package wires the engine to its stores and lock registry, registers
// the lock monitor with the lifecycle manager, and exposes the composed
// Application to the transport layer. Business rules live in services/ledger
// and policy; this package contains none of its own.
//
// # Concurrency Model
//
// Every mutation of an account's balance happens while holding that account's
// lock handle. Handles are created lazily, one per account id, and grant
// ownership to waiters in arrival order. Reads take no lock: they observe the
// latest committed state, which may be mid-way between a concurrent write's
// balance update and its history append.
package app
