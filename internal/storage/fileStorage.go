package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const slotExt = ".json"

// FileStorage keeps one file per slot inside a directory.
type FileStorage struct {
	mu     sync.RWMutex
	dir    string
	quota  int64
	logger *zap.Logger
}

// NewFileStorage opens (and creates, if needed) the slot directory.
func NewFileStorage(dir string, logger *zap.Logger, opts ...Option) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0770); err != nil {
		return nil, err
	}

	o := buildOptions(opts)

	return &FileStorage{
		dir:    dir,
		quota:  o.quota,
		logger: logger,
	}, nil
}

func (fs *FileStorage) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlotName, name)
	}
	return filepath.Join(fs.dir, name+slotExt), nil
}

func (fs *FileStorage) Get(_ context.Context, name string) ([]byte, error) {
	p, err := fs.path(name)
	if err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %q: %w", name, err)
	}

	return b, nil
}

// Set replaces the slot through a temp file and rename, so readers see
// either the old or the new value.
func (fs *FileStorage) Set(_ context.Context, name string, value []byte) error {
	p, err := fs.path(name)
	if err != nil {
		return err
	}
	if err := CheckQuota(fs.quota, name, value); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	tmp, err := os.CreateTemp(fs.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for slot %q: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write slot %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close slot %q: %w", name, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace slot %q: %w", name, err)
	}

	fs.logger.Debug("slot written", zap.String("slot", name), zap.Int("bytes", len(value)))
	return nil
}

// PingContext checks that the slot directory is still there.
func (fs *FileStorage) PingContext(_ context.Context) error {
	info, err := os.Stat(fs.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", fs.dir)
	}
	return nil
}

func (fs *FileStorage) Close() error {
	return nil
}
