package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func startWatcher(t *testing.T, paths []string) (<-chan []string, func()) {
	t.Helper()
	w, err := New(paths, 50*time.Millisecond, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	calls := make(chan []string, 10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(changed []string) { calls <- changed })
	}()

	stop := func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after cancel")
		}
		w.Close()
	}
	return calls, stop
}

func TestWatchDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "wall.rsm")
	if err := os.WriteFile(model, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	calls, stop := startWatcher(t, []string{model})
	defer stop()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(model, []byte{'v', byte('2' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case changed := <-calls:
		if len(changed) != 1 || changed[0] != model {
			t.Errorf("changed = %v, want [%s]", changed, model)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case extra := <-calls:
		t.Errorf("writes were not coalesced, extra call with %v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "wall.rsm")
	if err := os.WriteFile(model, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	calls, stop := startWatcher(t, []string{model})
	defer stop()

	if err := os.WriteFile(filepath.Join(dir, "other.rsm"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case changed := <-calls:
		t.Errorf("unexpected change %v", changed)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchSeesReplacedFile(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "scene.yaml")
	if err := os.WriteFile(model, []byte("instances: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	calls, stop := startWatcher(t, []string{model})
	defer stop()

	tmp := filepath.Join(dir, ".scene.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, model); err != nil {
		t.Fatal(err)
	}

	select {
	case changed := <-calls:
		if len(changed) != 1 || changed[0] != model {
			t.Errorf("changed = %v, want [%s]", changed, model)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("rename over the input was not reported")
	}
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "gone", "a.rsm")}, time.Millisecond, nil)
	if err == nil {
		t.Error("expected error watching a missing directory")
	}
}

func TestSetReplacesWatchedFiles(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	a := filepath.Join(first, "a.rsm")
	b := filepath.Join(second, "b.rsm")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("v1"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w, err := New([]string{a}, 20*time.Millisecond, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	if err := w.Set([]string{b}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	calls := make(chan []string, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, func(changed []string) { calls <- changed })

	if err := os.WriteFile(a, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case changed := <-calls:
		t.Fatalf("dropped file still watched: %v", changed)
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.WriteFile(b, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case changed := <-calls:
		if len(changed) != 1 || changed[0] != b {
			t.Errorf("changed = %v, want [%s]", changed, b)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("newly watched file not reported")
	}
}

func TestSetMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.rsm")
	w, err := New([]string{a}, time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Set([]string{filepath.Join(dir, "gone", "b.rsm")}); err == nil {
		t.Error("expected error watching a missing directory")
	}
}
