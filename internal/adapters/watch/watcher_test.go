package watch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"review_insights/internal/adapters/watch"
)

func TestWatcher_RerunsOnExportChange(t *testing.T) {
	dir := t.TempDir()
	export := filepath.Join(dir, "zoom_reviews.csv")
	if err := os.WriteFile(export, []byte("content,score\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var runs int32
	ran := make(chan struct{}, 8)
	w := watch.New([]string{export}, 50*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		ran <- struct{}{}
		return errors.New("keep going after failures")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// a burst of writes collapses into one rerun
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(export, []byte("content,score\ngreat,5\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatalf("no rerun after export change")
	}

	// unrelated files in the same directory are ignored
	before := atomic.LoadInt32(&runs)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != before {
		t.Fatalf("unrelated write triggered a rerun (%d -> %d)", before, got)
	}

	// the loop survives a failed run and still reacts
	if err := os.WriteFile(export, []byte("content,score\nbad,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatalf("no rerun after a failed run")
	}

	cancel()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := watch.New([]string{filepath.Join(t.TempDir(), "nope", "x.csv")}, 0, func(context.Context) error { return nil })
	if err := w.Start(context.Background()); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
