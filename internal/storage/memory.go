package storage

import (
	"context"
	"errors"
	"sync"
)

// MemoryStorage keeps slots in a map. Values do not survive a restart.
type MemoryStorage struct {
	mu    sync.RWMutex
	slots map[string][]byte
	quota int64
}

func CreateMemoryStorage(opts ...Option) (*MemoryStorage, error) {
	o := buildOptions(opts)

	return &MemoryStorage{
		slots: make(map[string][]byte),
		quota: o.quota,
	}, nil
}

func (m *MemoryStorage) Get(_ context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, ErrInvalidSlotName
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.slots[name]
	if !ok {
		return nil, ErrSlotNotFound
	}

	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStorage) Set(_ context.Context, name string, value []byte) error {
	if name == "" {
		return ErrInvalidSlotName
	}
	if err := CheckQuota(m.quota, name, value); err != nil {
		return err
	}

	v := make([]byte, len(value))
	copy(v, value)

	m.mu.Lock()
	m.slots[name] = v
	m.mu.Unlock()

	return nil
}

// PingContext always fails: there is no backing store to check.
func (m *MemoryStorage) PingContext(_ context.Context) error {
	return errors.ErrUnsupported
}

func (m *MemoryStorage) Close() error {
	return nil
}
