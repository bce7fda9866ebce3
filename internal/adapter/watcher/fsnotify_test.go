package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFSNotifyWatcher_DefaultExtensions(t *testing.T) {
	w, err := NewFSNotifyWatcher(nil, 0)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	if len(w.extensions) != 1 || w.extensions[0] != ".csv" {
		t.Errorf("expected [.csv], got %v", w.extensions)
	}
}

func TestFSNotifyWatcher_CoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my_data.csv")
	os.WriteFile(path, []byte("question,answer\n"), 0644)

	w, err := NewFSNotifyWatcher([]string{".csv"}, 150*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events, err := w.Watch(ctx, []string{path})
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		for i := 0; i < 3; i++ {
			os.WriteFile(path, []byte("question,answer\nq,a\n"), 0644)
			time.Sleep(10 * time.Millisecond)
		}
	}()

	select {
	case ev := <-events:
		if ev.Path != path {
			t.Errorf("unexpected path %s", ev.Path)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for event")
	}

	select {
	case ev := <-events:
		t.Errorf("burst should produce one event, got extra %+v", ev)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestFSNotifyWatcher_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()

	w, _ := NewFSNotifyWatcher([]string{".csv"}, 0)
	defer w.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	events, err := w.Watch(ctx, []string{filepath.Join(dir, "my_data.csv")})
	if err != nil {
		t.Fatal(err)
	}

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	select {
	case <-events:
		t.Error("should not receive event for .txt")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestFSNotifyWatcher_Filter(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "extra")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	w, err := NewFSNotifyWatcher(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.WithFilter(func(path string) bool { return filepath.Base(path) != "skip.csv" })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events, err := w.Watch(ctx, []string{root, sub})
	if err != nil {
		t.Fatal(err)
	}

	os.WriteFile(filepath.Join(sub, "skip.csv"), []byte("x"), 0644)
	select {
	case ev := <-events:
		t.Fatalf("rejected file produced an event: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}

	want := filepath.Join(sub, "new.csv")
	os.WriteFile(want, []byte("question,answer\n"), 0644)
	select {
	case ev := <-events:
		if ev.Path != want {
			t.Errorf("unexpected path %s", ev.Path)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for event in a watched directory")
	}
}

func TestFSNotifyWatcher_FollowsNewDirectories(t *testing.T) {
	root := t.TempDir()

	w, err := NewFSNotifyWatcher(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events, err := w.Watch(ctx, []string{root})
	if err != nil {
		t.Fatal(err)
	}

	sub := filepath.Join(root, "later")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	want := filepath.Join(sub, "data.csv")
	os.WriteFile(want, []byte("question,answer\n"), 0644)
	select {
	case ev := <-events:
		if ev.Path != want {
			t.Errorf("unexpected path %s", ev.Path)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for event in a new directory")
	}
}
