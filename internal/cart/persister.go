package cart

import (
	"context"
	"fmt"
)

// Persister is the durable home of one cart's snapshot.
type Persister interface {
	// Load returns ErrSnapshotNotFound when nothing was saved yet.
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}

// PersisterFactory opens the persister for a cart session.
type PersisterFactory func(sessionID string) Persister

// PersistError reports a snapshot write that failed. The in-memory cart is
// unaffected.
type PersistError struct {
	SessionID string
	Version   int64
	Err       error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist cart %s version %d: %v", e.SessionID, e.Version, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

type backendNamer interface {
	Backend() string
}

func backendName(p Persister) string {
	if named, ok := p.(backendNamer); ok {
		return named.Backend()
	}
	return "custom"
}

type nopPersister struct{}

func (nopPersister) Load(context.Context) (*Snapshot, error) { return nil, ErrSnapshotNotFound }
func (nopPersister) Save(context.Context, Snapshot) error    { return nil }
func (nopPersister) Backend() string                         { return "none" }
