package cart

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Flush once the store has been closed.
var ErrClosed = errors.New("cart store closed")

// writer persists snapshots on a single goroutine. The mailbox holds at most
// one snapshot; a newer one replaces an unsaved older one, so saves land in
// version order and stale state never overwrites newer state.
type writer struct {
	save    func(Snapshot) error
	mailbox chan Snapshot
	flushes chan chan error
	stop    chan struct{}
	done    chan struct{}

	stopOnce sync.Once
	lastErr  error
}

func newWriter(save func(Snapshot) error) *writer {
	w := &writer{
		save:    save,
		mailbox: make(chan Snapshot, 1),
		flushes: make(chan chan error),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// submit must be called by one producer at a time; the store mutex ensures it.
func (w *writer) submit(s Snapshot) {
	for {
		select {
		case w.mailbox <- s:
			return
		default:
		}
		select {
		case <-w.mailbox:
		default:
		}
	}
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case snap := <-w.mailbox:
			w.write(snap)
		case reply := <-w.flushes:
			w.drain()
			reply <- w.lastErr
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *writer) drain() {
	select {
	case snap := <-w.mailbox:
		w.write(snap)
	default:
	}
}

func (w *writer) write(s Snapshot) {
	w.lastErr = w.save(s)
}

func (w *writer) flush(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case w.flushes <- reply:
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops the loop after the pending snapshot is written.
func (w *writer) close(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })
	select {
	case <-w.done:
		return w.lastErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wait blocks until the loop has exited.
func (w *writer) wait(timeout time.Duration) bool {
	select {
	case <-w.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
