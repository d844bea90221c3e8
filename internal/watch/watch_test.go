package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func runWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	require.Eventually(t, func() bool { return w.Builds() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_RebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	static := filepath.Join(root, "static")
	require.NoError(t, os.MkdirAll(static, 0o750))

	var calls atomic.Int32
	w, err := New(func(context.Context) error {
		calls.Add(1)
		return nil
	}, Options{Trees: []string{static}, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	runWatcher(t, w)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(static, "a.txt"), []byte{byte(i)}, 0o600))
	}
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	root := t.TempDir()
	static := filepath.Join(root, "static")
	require.NoError(t, os.MkdirAll(static, 0o750))

	var calls atomic.Int32
	w, err := New(func(context.Context) error {
		calls.Add(1)
		return nil
	}, Options{Trees: []string{static}, Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	runWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(static, ".hidden"), []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())
}

func TestWatcher_WatchesSingleFiles(t *testing.T) {
	root := t.TempDir()
	cfg := filepath.Join(root, "config.json")
	require.NoError(t, os.WriteFile(cfg, []byte("{}"), 0o600))

	var calls atomic.Int32
	w, err := New(func(context.Context) error {
		calls.Add(1)
		return nil
	}, Options{Files: []string{cfg}, Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	runWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(root, "other.json"), []byte("{}"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())

	require.NoError(t, os.WriteFile(cfg, []byte(`{"base":""}`), 0o600))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_Periodic(t *testing.T) {
	var calls atomic.Int32
	w, err := New(func(context.Context) error {
		calls.Add(1)
		return nil
	}, Options{Every: 50 * time.Millisecond})
	require.NoError(t, err)
	runWatcher(t, w)

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 3*time.Second, 10*time.Millisecond)
}

func TestIgnoredName(t *testing.T) {
	require.True(t, ignoredName(".git"))
	require.True(t, ignoredName("page.html~"))
	require.True(t, ignoredName("x.swp"))
	require.False(t, ignoredName("index.html"))
}
