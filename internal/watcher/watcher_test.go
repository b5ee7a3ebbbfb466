package watcher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestWatchCallsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "family.csv")
	other := filepath.Join(dir, "other.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,mother,father,trait\n"), 0o644))

	var calls atomic.Int32
	var seen atomic.Value
	w := New([]string{path}, func(changed string) {
		seen.Store(changed)
		calls.Add(1)
	}).WithDebounce(20 * time.Millisecond).WithLogger(quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(other, []byte("ignored"), 0o644)
		_ = os.WriteFile(path, []byte("name,mother,father,trait\nLily,,,0\n"), 0o644)
		return calls.Load() > 0
	}, 5*time.Second, 100*time.Millisecond)

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	assert.Equal(t, abs, seen.Load())

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	w := New([]string{filepath.Join(t.TempDir(), "nope", "family.csv")}, func(string) {}).WithLogger(quietLogger())
	assert.Error(t, w.Watch(context.Background()))
}

func TestWatchRunsOneCallbackAtATime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "family.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,mother,father,trait\n"), 0o644))

	var calls, running, maxRunning atomic.Int32
	w := New([]string{path}, func(string) {
		n := running.Add(1)
		for {
			m := maxRunning.Load()
			if n <= m || maxRunning.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(300 * time.Millisecond)
		running.Add(-1)
		calls.Add(1)
	}).WithDebounce(20 * time.Millisecond).WithLogger(quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("name,mother,father,trait\nLily,,,0\n"), 0o644)
		return running.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	// changes while the first callback is still running
	for range 3 {
		require.NoError(t, os.WriteFile(path, []byte("name,mother,father,trait\nJames,,,1\n"), 0o644))
		time.Sleep(60 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return calls.Load() >= 2 && running.Load() == 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(1), maxRunning.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
