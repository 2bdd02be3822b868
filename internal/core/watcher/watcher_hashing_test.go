package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ContentHashing(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 10)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(tmpDir, "hash_target.f90")
	content := []byte("program hash_target\nend program hash_target\n")

	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changedFiles:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for create event")
	}

	// Rewriting the same bytes is not a change.
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-changedFiles:
		t.Errorf("received unexpected event for identical content: %v", paths)
	case <-time.After(200 * time.Millisecond):
	}

	newContent := []byte("program hash_target\n  print *, 1\nend program hash_target\n")
	if err := os.WriteFile(testFile, newContent, 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, time.Second)
}

func TestWatcher_PrimesExistingSources(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "existing.f90")
	content := []byte("module existing\nend module existing\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	changedFiles := make(chan []string, 4)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	if w.contentChanged(path) {
		t.Fatal("existing source was not hashed by Watch")
	}
	w.forget(path)
	if !w.contentChanged(path) {
		t.Fatal("forgotten source should count as changed")
	}
}
