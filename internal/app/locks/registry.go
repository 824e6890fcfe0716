// Package locks provides the per-account mutual-exclusion registry used by
// the ledger engine. Each account id owns exactly one Handle for the life of
// the process; acquisition among waiters on the same handle is strictly FIFO.
package locks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ledgerware/ledger-service/internal/app/domain/ledger"
)

// Handle is the mutual-exclusion token for one account id. The zero value is
// not usable; handles are created by the Registry.
//
// FIFO ordering is implemented with an explicit waiter queue rather than
// sync.Mutex, which makes no fairness guarantee among goroutines.
type Handle struct {
	mu     sync.Mutex
	locked bool
	queue  []chan struct{}
}

// Acquire blocks until the caller owns the handle or ctx is done. Callers are
// granted ownership in arrival order. On ctx expiry the waiter is removed
// from the queue and ErrLockTimeout is returned; the handle is left exactly
// as if the caller never queued.
func (h *Handle) Acquire(ctx context.Context) error {
	h.mu.Lock()
	if !h.locked {
		h.locked = true
		h.mu.Unlock()
		return nil
	}
	grant := make(chan struct{})
	h.queue = append(h.queue, grant)
	h.mu.Unlock()

	select {
	case <-grant:
		return nil
	case <-ctx.Done():
		h.mu.Lock()
		for i, w := range h.queue {
			if w == grant {
				h.queue = append(h.queue[:i], h.queue[i+1:]...)
				h.mu.Unlock()
				return fmt.Errorf("%w: %v", ledger.ErrLockTimeout, ctx.Err())
			}
		}
		h.mu.Unlock()
		// The grant raced with cancellation: ownership already transferred
		// to this waiter, so pass it straight on.
		<-grant
		h.Release()
		return fmt.Errorf("%w: %v", ledger.ErrLockTimeout, ctx.Err())
	}
}

// Release hands ownership to the oldest waiter, or unlocks when none wait.
// It must be called exactly once per successful Acquire, on every exit path.
func (h *Handle) Release() {
	h.mu.Lock()
	if len(h.queue) > 0 {
		next := h.queue[0]
		h.queue = h.queue[1:]
		h.mu.Unlock()
		// locked stays true: ownership transfers without unlocking.
		close(next)
		return
	}
	h.locked = false
	h.mu.Unlock()
}

// Waiters reports how many callers are currently queued behind the owner.
// The value is a best-effort snapshot.
func (h *Handle) Waiters() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Registry maps account ids to their handles. Handles are created atomically
// on first reference and live for the registry's lifetime; the id→handle map
// takes no registry-wide lock on the common path.
type Registry struct {
	handles sync.Map // int64 -> *Handle
	size    atomic.Int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Handle returns the lock handle for id, creating it atomically on first
// reference. Concurrent first references for the same unseen id always
// observe the same handle.
func (r *Registry) Handle(id int64) *Handle {
	if h, ok := r.handles.Load(id); ok {
		return h.(*Handle)
	}
	h, loaded := r.handles.LoadOrStore(id, &Handle{})
	if !loaded {
		r.size.Add(1)
	}
	return h.(*Handle)
}

// Len reports the number of distinct handles ever created. Handles are never
// evicted, so this also bounds the registry's memory footprint.
func (r *Registry) Len() int {
	return int(r.size.Load())
}

// QueueLength reports the waiter count for id, zero when the id has no
// handle yet. Best-effort snapshot, not consistent with in-flight mutation.
func (r *Registry) QueueLength(id int64) int {
	if h, ok := r.handles.Load(id); ok {
		return h.(*Handle).Waiters()
	}
	return 0
}

// MaxQueueLength reports the deepest waiter queue across all handles,
// together with the id owning it. Used by monitoring only.
func (r *Registry) MaxQueueLength() (id int64, depth int) {
	r.handles.Range(func(key, value any) bool {
		if n := value.(*Handle).Waiters(); n > depth {
			id = key.(int64)
			depth = n
		}
		return true
	})
	return id, depth
}
