package cart

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/shopping/internal/notify"
	"github.com/fjod/go_cart/shopping/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultIdleTimeout = 30 * time.Minute
	defaultLoadTimeout = 5 * time.Second
)

type RegistryOption func(*Registry)

// WithIdleTimeout sets how long a session may go unused before its store is
// dropped from memory. Zero keeps stores forever.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.idleTimeout = d
	}
}

func WithLoadTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.loadTimeout = d
	}
}

type entry struct {
	store    *Store
	lastUsed time.Time
}

// Registry hands out one Store per session. Each session's keys live under
// "session:<id>:" in the shared adapter. Idle stores are evicted and reloaded
// from the adapter on their next use.
type Registry struct {
	mu      sync.Mutex
	adapter storage.Adapter
	sink    notify.Sink
	logger  *zap.Logger
	stores  map[string]*entry
	sfg     singleflight.Group // one first load per session

	idleTimeout time.Duration
	loadTimeout time.Duration
	now         func() time.Time
}

func NewRegistry(adapter storage.Adapter, sink notify.Sink, logger *zap.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		adapter:     adapter,
		sink:        sink,
		logger:      logger,
		stores:      make(map[string]*entry),
		idleTimeout: DefaultIdleTimeout,
		loadTimeout: defaultLoadTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the session's store, loading it from the adapter on first use.
// The load is detached from ctx so that a cancelled request does not leave
// the session with a half-initialised cart.
func (r *Registry) Get(ctx context.Context, sessionID string) *Store {
	if s, ok := r.lookup(sessionID); ok {
		return s
	}

	v, _, _ := r.sfg.Do(sessionID, func() (interface{}, error) {
		if s, ok := r.lookup(sessionID); ok {
			return s, nil
		}

		s := NewStore(
			storage.Namespace(r.adapter, SessionPrefix(sessionID)),
			WithID(sessionID),
			WithSink(r.sink),
			WithLogger(r.logger),
		)

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.loadTimeout)
		defer cancel()
		s.Load(loadCtx)

		r.mu.Lock()
		r.stores[sessionID] = &entry{store: s, lastUsed: r.now()}
		r.mu.Unlock()
		return s, nil
	})
	return v.(*Store)
}

func (r *Registry) lookup(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[sessionID]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.store, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Evict drops every store idle for longer than the idle timeout and returns
// how many were removed. Their carts stay in the adapter.
func (r *Registry) Evict() int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, e := range r.stores {
		if e.lastUsed.Before(cutoff) {
			delete(r.stores, id)
			evicted++
		}
	}
	return evicted
}

// Run evicts idle stores every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.idleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				r.logger.Debug("evicted idle carts", zap.Int("count", n), zap.Int("remaining", r.Len()))
			}
		}
	}
}

func SessionPrefix(sessionID string) string {
	return "session:" + sessionID + ":"
}
