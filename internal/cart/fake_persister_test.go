package cart

import (
	"context"
	"errors"
	"sync"
)

// fakePersister keeps the encoded snapshot in memory and can be told to fail.
type fakePersister struct {
	mu      sync.Mutex
	data    []byte
	saves   []int64
	saveErr error
	loadErr error
	gate    chan struct{}
	backend string
}

func (f *fakePersister) Load(context.Context) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.data == nil {
		return nil, ErrSnapshotNotFound
	}
	return DecodeSnapshot(f.data)
}

func (f *fakePersister) Save(ctx context.Context, snap Snapshot) error {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, snap.Version)
	if f.saveErr != nil {
		return f.saveErr
	}
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	f.data = data
	return nil
}

func (f *fakePersister) Backend() string {
	if f.backend == "" {
		return "fake"
	}
	return f.backend
}

func (f *fakePersister) setSaveErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

func (f *fakePersister) savedVersions() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.saves))
	copy(out, f.saves)
	return out
}

func (f *fakePersister) stored() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

var errQuota = errors.New("storage quota exceeded")
