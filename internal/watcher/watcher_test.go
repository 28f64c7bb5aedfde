package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "whitelist.yaml")
	if err := os.WriteFile(path, []byte("whitelist: []\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	changed := make(chan string, 4)
	w := New(path, func(ctx context.Context, p string) {
		changed <- p
	}).WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Watch(ctx) }()

	select {
	case <-w.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not start")
	}

	// Unrelated files in the same directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write other: %v", err)
	}
	if err := os.WriteFile(path, []byte("whitelist:\n  - aa:bb:cc:dd:ee:ff\n"), 0o644); err != nil {
		t.Fatalf("rewrite seed: %v", err)
	}

	select {
	case got := <-changed:
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected change callback")
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing", "seed.yaml"), func(context.Context, string) {})
	if err := w.Watch(context.Background()); err == nil {
		t.Error("expected error for missing directory")
	}
}
