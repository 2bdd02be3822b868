// # internal/core/watcher/watcher_test.go
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadGlob(t *testing.T) {
	if _, err := NewWatcher(time.Millisecond, []string{"[unterminated"}, nil, func([]string) {}); err == nil {
		t.Fatal("expected error for invalid exclude pattern")
	}
}

func waitFor(t *testing.T, ch <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event on %s", want)
		}
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 4)
	w, err := NewWatcher(100*time.Millisecond, []string{"build"}, []string{"*_old.f90"}, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "solver.f90")
	if err := os.WriteFile(testFile, []byte("module solver\nend module solver\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, 2*time.Second)

	for _, name := range []string{"solver_old.f90", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case paths := <-changedFiles:
		t.Errorf("excluded files triggered event: %v", paths)
	case <-time.After(500 * time.Millisecond):
	}

	// New directories are watched once created.
	subdir := filepath.Join(tmpDir, "newdir")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "nested.F")
	if err := os.WriteFile(subFile, []byte("      PROGRAM NESTED\n      END\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, subFile, 2*time.Second)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(tmpDir, "old.f90")
	newPath := filepath.Join(tmpDir, "new.f90")
	if err := os.WriteFile(oldPath, []byte("program p\nend program p\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == oldPath || p == newPath {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for rename event, old=%s new=%s", oldPath, newPath)
		}
	}
}

func TestWatcher_Extensions(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, nil, []string{"*.inc"}, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	tests := []struct {
		path    string
		exclude bool
	}{
		{"src/a.f90", false},
		{"src/A.F90", false},
		{"legacy/b.for", false},
		{"main.go", true},
		{"defs.inc", true},
	}
	for _, tt := range tests {
		if got := w.shouldExcludeFile(tt.path); got != tt.exclude {
			t.Errorf("shouldExcludeFile(%q) = %v, want %v", tt.path, got, tt.exclude)
		}
	}

	w.SetExtensions([]string{".f08"})
	if !w.shouldExcludeFile("a.f90") {
		t.Error("expected .f90 to be excluded when .f08 is the only extension")
	}
	if w.shouldExcludeFile("a.F08") {
		t.Error("expected .F08 to match case-insensitively")
	}
}
