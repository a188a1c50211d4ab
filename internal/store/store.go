// Package store provides the durable key-value storage the journal is kept in.
// Values are JSON documents. Every backend offers an atomic read-modify-write
// (Update) so that one journal mutation is a single critical section per key.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pkordes/travel-journal/backend/internal/domain"
)

// UpdateFunc receives the current value of a key (nil when absent) and returns
// the value to write. Returning a nil value leaves the key untouched.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is a key-value store of JSON values.
//
// Get returns domain.ErrNotFound for a missing key. Backend failures are
// wrapped with domain.ErrStorage; errors returned by an UpdateFunc are passed
// through unchanged.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// GetJSON reads key and decodes it into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store.GetJSON %q: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and writes it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store.SetJSON %q: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// storageErr tags a backend error so callers can tell it from a not-found or
// a domain error raised inside an UpdateFunc.
func storageErr(op string, err error) error {
	if err == nil || errors.Is(err, domain.ErrStorage) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

// keyLocks hands out one mutex per key and forgets it once nobody holds it.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
