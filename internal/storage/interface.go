// Package storage provides the durable slot storage behind the image ledger.
//
// A slot is a named value that is always read and written as a whole, the
// same contract browser local storage offers. Implementations live here
// (memory, file) and in the repository package (SQL).
package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSlotNotFound is returned by Get when the slot was never written.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrQuotaExceeded is returned by Set when the value does not fit the
	// configured per-slot quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrInvalidSlotName is returned for empty names or names that would
	// escape the storage directory.
	ErrInvalidSlotName = errors.New("invalid slot name")
)

// DefaultQuota mirrors the usual browser local-storage budget.
const DefaultQuota int64 = 5 << 20

// Slots is a named whole-value store.
type Slots interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	PingContext(ctx context.Context) error
	Close() error
}

// Option configures a slot storage.
type Option func(*options)

type options struct {
	quota int64
}

// WithQuota limits the size of a single slot value. Zero or less disables the check.
func WithQuota(bytes int64) Option {
	return func(o *options) {
		o.quota = bytes
	}
}

func buildOptions(opts []Option) options {
	o := options{quota: DefaultQuota}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CheckQuota reports ErrQuotaExceeded when value is larger than quota.
func CheckQuota(quota int64, name string, value []byte) error {
	if quota > 0 && int64(len(value)) > quota {
		return fmt.Errorf("%w: slot %q needs %d bytes, limit is %d", ErrQuotaExceeded, name, len(value), quota)
	}
	return nil
}
