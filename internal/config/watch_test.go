package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dogify.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o600))

	changes := make(chan *Options, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path,
			func(o *Options) {
				select {
				case changes <- o:
				default:
				}
			},
			// truncating rewrites can be seen half written
			func(error) {},
		)
	}()

	// the watch is registered asynchronously; keep rewriting until seen
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	var got *Options
	for got == nil {
		select {
		case o := <-changes:
			if o.LogLevel == "debug" {
				got = o
			}
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte("log_level: debug\nupload_latency: 2s\n"), 0o600))
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}

	assert.Equal(t, Duration(2*time.Second), got.UploadLatency)
	assert.Equal(t, path, got.Config)
	assert.Equal(t, Defaults().GRPCPort, got.GRPCPort)

	// unrelated files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("log_level: error\n"), 0o600))

	cancel()
	require.NoError(t, <-done)

	for len(changes) > 0 {
		assert.NotEqual(t, "error", (<-changes).LogLevel)
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "dogify.yaml"),
		func(*Options) {}, func(error) {})
	require.Error(t, err)
}
