// Package cart holds the in-memory shopping cart of one session. Mutations
// are atomic and never fail; each one schedules a snapshot write on a
// background goroutine whose failures are reported but never roll back.
package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phenomboxing/storefront/pkg/logger"
	"github.com/phenomboxing/storefront/pkg/metrics"
	"github.com/shopspring/decimal"
)

const defaultSaveTimeout = 5 * time.Second

// Params wires a Store to its collaborators. Only SessionID is required.
type Params struct {
	SessionID   string
	Persister   Persister
	Logger      *logger.Logger
	Metrics     *metrics.CartMetrics
	SaveTimeout time.Duration
	Clock       func() time.Time
	// OnPersistError runs on the writer goroutine after a failed save. The
	// error is a *PersistError.
	OnPersistError func(ctx context.Context, err error)
}

type Store struct {
	mu      sync.Mutex
	items   []LineItem
	index   map[Key]int
	version int64
	closed  bool
	retired bool

	// successor is set by a Registry and returns the store that replaced
	// this one after it was retired.
	successor func() *Store

	sessionID   string
	persister   Persister
	backend     string
	logg        *logger.Logger
	logCtx      context.Context
	metrics     *metrics.CartMetrics
	saveTimeout time.Duration
	clock       func() time.Time
	onError     func(context.Context, error)

	w          *writer
	lastAccess atomic.Int64
}

// Open builds the store for a session and rehydrates it from the persister.
// A missing, malformed or unreadable snapshot yields an empty cart.
func Open(ctx context.Context, p Params) *Store {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Store{
		index:       make(map[Key]int),
		sessionID:   p.SessionID,
		persister:   p.Persister,
		logg:        p.Logger,
		metrics:     p.Metrics,
		saveTimeout: p.SaveTimeout,
		clock:       p.Clock,
		onError:     p.OnPersistError,
	}
	if s.persister == nil {
		s.persister = nopPersister{}
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.saveTimeout <= 0 {
		s.saveTimeout = defaultSaveTimeout
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	s.backend = backendName(s.persister)
	s.logCtx = s.logg.WithFields(context.WithoutCancel(ctx), map[string]any{
		"session_id":   s.sessionID,
		"cart_backend": s.backend,
	})

	s.rehydrate(ctx)
	s.touch()
	s.w = newWriter(s.saveSnapshot)
	return s
}

func (s *Store) rehydrate(ctx context.Context) {
	loadCtx, cancel := context.WithTimeout(ctx, s.saveTimeout)
	defer cancel()

	snap, err := s.persister.Load(loadCtx)
	if err == nil && snap != nil {
		err = snap.Validate()
	}
	switch {
	case errors.Is(err, ErrSnapshotNotFound) || (err == nil && snap == nil):
		s.metrics.RecordRehydrate(s.backend, metrics.RehydrateEmpty)
		return
	case errors.Is(err, ErrMalformedSnapshot):
		s.metrics.RecordRehydrate(s.backend, metrics.RehydrateMalformed)
		s.logg.WarnErr(s.logCtx, "discarding malformed cart snapshot", err)
		return
	case err != nil:
		s.metrics.RecordRehydrate(s.backend, metrics.RehydrateError)
		s.logg.WarnErr(s.logCtx, "cart snapshot load failed, starting empty", err)
		return
	}

	s.items = make([]LineItem, len(snap.Items))
	copy(s.items, snap.Items)
	s.reindex()
	s.version = snap.Version
	s.metrics.RecordRehydrate(s.backend, metrics.RehydrateRestored)
	s.logg.Debug(s.logCtx, "cart restored from snapshot")
}

// SessionID returns the session the cart belongs to.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Add puts one unit of product in the cart. A line with the same product and
// variant gains one unit and keeps its original fields; otherwise a new line
// with quantity 1 is appended.
func (s *Store) Add(product Product, variant string) LineItem {
	s = s.lock()
	defer s.mu.Unlock()
	s.touch()

	key := NewKey(product.ID, variant)
	if i, ok := s.index[key]; ok {
		s.items[i].Quantity++
		s.persistLocked()
		return s.items[i]
	}

	item := newLineItem(key, product)
	s.items = append(s.items, item)
	s.index[key] = len(s.items) - 1
	s.persistLocked()
	return item
}

// Remove deletes the line for key and reports whether one existed.
// A missing key leaves the cart untouched and schedules no write.
func (s *Store) Remove(key Key) bool {
	s = s.lock()
	defer s.mu.Unlock()
	s.touch()

	if !s.removeLocked(key) {
		return false
	}
	s.persistLocked()
	return true
}

// SetQuantity sets the absolute quantity of an existing line. Zero or less
// removes it. It reports whether a line for key existed.
func (s *Store) SetQuantity(key Key, quantity int) bool {
	s = s.lock()
	defer s.mu.Unlock()
	s.touch()

	i, ok := s.index[key]
	if !ok {
		return false
	}
	if quantity <= 0 {
		s.removeLocked(key)
	} else {
		s.items[i].Quantity = quantity
	}
	s.persistLocked()
	return true
}

// Clear empties the cart and always writes an empty snapshot.
func (s *Store) Clear() {
	s = s.lock()
	defer s.mu.Unlock()
	s.touch()

	s.items = nil
	s.index = make(map[Key]int)
	s.persistLocked()
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []LineItem {
	s = s.lock()
	defer s.mu.Unlock()
	s.touch()

	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Get(key Key) (LineItem, bool) {
	s = s.lock()
	defer s.mu.Unlock()

	i, ok := s.index[key]
	if !ok {
		return LineItem{}, false
	}
	return s.items[i], true
}

// Total is the exact sum of every line total. Round only for display.
func (s *Store) Total() decimal.Decimal {
	s = s.lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount is the number of units across all lines.
func (s *Store) ItemCount() int {
	s = s.lock()
	defer s.mu.Unlock()

	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// Len is the number of distinct lines.
func (s *Store) Len() int {
	s = s.lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Version is the number of the latest snapshot handed to the persister.
func (s *Store) Version() int64 {
	s = s.lock()
	defer s.mu.Unlock()
	return s.version
}

// Snapshot returns the current state in its persisted form.
func (s *Store) Snapshot() Snapshot {
	s = s.lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Flush waits until the newest scheduled snapshot has been written and
// returns the result of that write.
func (s *Store) Flush(ctx context.Context) error {
	for {
		cur := s.lock()
		w := cur.w
		cur.mu.Unlock()

		err := w.flush(ctx)
		if !errors.Is(err, ErrClosed) {
			return err
		}
		cur.mu.Lock()
		retired := cur.retired
		cur.mu.Unlock()
		if !retired {
			return err
		}
		// retired after the lookup; its last snapshot is written, so flush
		// whatever replaced it
		s = cur
	}
}

// Close writes the pending snapshot and stops the writer. Later mutations
// still succeed and are saved synchronously.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.w.close(ctx)
}

// LastAccess is the time of the latest call that read or changed the cart.
func (s *Store) LastAccess() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}

// lock locks and returns the store that currently owns the session. Calls
// made through a pointer to a retired store follow its successor.
func (s *Store) lock() *Store {
	cur := s
	for {
		cur.mu.Lock()
		if !cur.retired || cur.successor == nil {
			return cur
		}
		next := cur.successor
		cur.mu.Unlock()
		cur = next()
	}
}

// retire marks the store as replaced when it has been idle since cutoff. A
// zero cutoff retires it unconditionally. No mutation reaches a retired store.
func (s *Store) retire(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !cutoff.IsZero() && !s.LastAccess().Before(cutoff) {
		return false
	}
	s.retired = true
	return true
}

func (s *Store) touch() {
	s.lastAccess.Store(s.clock().UnixNano())
}

func (s *Store) removeLocked(key Key) bool {
	i, ok := s.index[key]
	if !ok {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.reindex()
	return true
}

func (s *Store) reindex() {
	s.index = make(map[Key]int, len(s.items))
	for i, item := range s.items {
		s.index[item.Key] = i
	}
}

func (s *Store) snapshotLocked() Snapshot {
	items := make([]LineItem, len(s.items))
	copy(items, s.items)
	return Snapshot{
		Version:   s.version,
		UpdatedAt: s.clock().UTC(),
		Items:     items,
	}
}

func (s *Store) persistLocked() {
	s.version++
	snap := s.snapshotLocked()
	if !s.closed {
		s.w.submit(snap)
		return
	}
	// writer is gone or draining; keep saves ordered behind it
	if !s.w.wait(s.saveTimeout) {
		s.logg.Warn(s.logCtx, "cart writer still draining after close")
	}
	_ = s.saveSnapshot(snap)
}

func (s *Store) saveSnapshot(snap Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	start := time.Now()
	err := s.persister.Save(ctx, snap)
	s.metrics.ObservePersist(s.backend, time.Since(start), err)
	if err == nil {
		return nil
	}

	perr := &PersistError{SessionID: s.sessionID, Version: snap.Version, Err: err}
	s.logg.WarnErr(s.logg.WithField(s.logCtx, "cart_version", snap.Version), "cart snapshot write failed", err)
	if s.onError != nil {
		s.onError(s.logCtx, perr)
	}
	return perr
}
