package cart

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/phenomboxing/storefront/pkg/errors"
	"github.com/phenomboxing/storefront/pkg/logger"
	"github.com/phenomboxing/storefront/pkg/metrics"
	"go.uber.org/multierr"
)

const MaxSessionIDLength = 128

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateSessionID rejects ids that are empty, too long or contain
// characters outside [A-Za-z0-9_-].
func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart session id").
			WithDetails(map[string]any{"max_length": MaxSessionIDLength, "allowed": "A-Z a-z 0-9 _ -"})
	}
	return nil
}

// RegistryOptions carries the settings shared by every store a registry opens.
type RegistryOptions struct {
	Logger         *logger.Logger
	Metrics        *metrics.CartMetrics
	SaveTimeout    time.Duration
	Clock          func() time.Time
	OnPersistError func(ctx context.Context, err error)
}

// Registry owns the open cart of every active session. A session never has
// two live stores: a store dropped or swept is retired first, and the next
// Get waits for its final write before rehydrating.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*registryEntry
	retiring map[string]*registryEntry
	factory  PersisterFactory
	opts     RegistryOptions
}

type registryEntry struct {
	once  sync.Once
	store atomic.Pointer[Store]
	// closed once the retired store has written its last snapshot
	done chan struct{}
}

func NewRegistry(factory PersisterFactory, opts RegistryOptions) *Registry {
	if factory == nil {
		factory = func(string) Persister { return nopPersister{} }
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Registry{
		entries:  make(map[string]*registryEntry),
		retiring: make(map[string]*registryEntry),
		factory:  factory,
		opts:     opts,
	}
}

// Get returns the session's cart, opening and rehydrating it on first use.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Store, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	entry, ok := r.entries[sessionID]
	if !ok {
		entry = &registryEntry{done: make(chan struct{})}
		r.entries[sessionID] = entry
	}
	prev := r.retiring[sessionID]
	if store := entry.store.Load(); store != nil {
		store.touch()
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		if prev != nil {
			<-prev.done
		}
		store := Open(ctx, Params{
			SessionID:      sessionID,
			Persister:      r.factory(sessionID),
			Logger:         r.opts.Logger,
			Metrics:        r.opts.Metrics,
			SaveTimeout:    r.opts.SaveTimeout,
			Clock:          r.opts.Clock,
			OnPersistError: r.opts.OnPersistError,
		})
		store.successor = func() *Store {
			next, _ := r.Get(context.WithoutCancel(ctx), sessionID)
			return next
		}
		entry.store.Store(store)
	})
	return entry.store.Load(), nil
}

// Drop closes the session's cart and forgets it. The snapshot stays in the
// persister and is reloaded by the next Get.
func (r *Registry) Drop(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	entry, ok := r.entries[sessionID]
	if ok {
		// wait for a concurrent open so there is a store to retire
		r.mu.Unlock()
		entry.once.Do(func() {})
		r.mu.Lock()
		ok = r.entries[sessionID] == entry
	}
	if ok {
		if store := entry.store.Load(); store != nil {
			store.retire(time.Time{})
		}
		r.retireLocked(sessionID, entry)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return r.finishRetire(ctx, sessionID, entry)
}

// Sweep drops carts that have not been accessed for idle and returns how many
// were dropped.
func (r *Registry) Sweep(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := r.opts.Clock().Add(-idle)

	r.mu.Lock()
	stale := make(map[string]*registryEntry)
	for id, entry := range r.entries {
		if store := entry.store.Load(); store != nil && store.retire(cutoff) {
			stale[id] = entry
			r.retireLocked(id, entry)
		}
	}
	r.mu.Unlock()

	var err error
	for id, entry := range stale {
		err = multierr.Append(err, r.finishRetire(ctx, id, entry))
	}
	return len(stale), err
}

func (r *Registry) retireLocked(sessionID string, entry *registryEntry) {
	delete(r.entries, sessionID)
	r.retiring[sessionID] = entry
}

func (r *Registry) finishRetire(ctx context.Context, sessionID string, entry *registryEntry) error {
	err := closeEntry(ctx, entry)

	r.mu.Lock()
	if r.retiring[sessionID] == entry {
		delete(r.retiring, sessionID)
	}
	r.mu.Unlock()
	close(entry.done)
	return err
}

// Len is the number of open carts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close flushes and closes every open cart.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	var err error
	for _, entry := range entries {
		err = multierr.Append(err, closeEntry(ctx, entry))
	}
	return err
}

func closeEntry(ctx context.Context, entry *registryEntry) error {
	// wait for a concurrent open to finish before closing
	entry.once.Do(func() {})
	store := entry.store.Load()
	if store == nil {
		return nil
	}
	return store.Close(ctx)
}
