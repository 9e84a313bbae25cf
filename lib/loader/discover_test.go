package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover_DirectoriesAndExplicitPaths(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.so"))
	touch(t, filepath.Join(dir, "a.so"))
	touch(t, filepath.Join(dir, "notes.txt"))
	if err := os.Mkdir(filepath.Join(dir, "nested.so"), 0o755); err != nil {
		t.Fatal(err)
	}

	explicit := filepath.Join(t.TempDir(), "manager.bundle")
	touch(t, explicit)

	got := discover([]string{dir, explicit})
	want := []string{
		filepath.Join(dir, "a.so"),
		filepath.Join(dir, "b.so"),
		explicit,
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Candidate %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestDiscover_DeduplicatesAndSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	mod := filepath.Join(dir, "only.so")
	touch(t, mod)

	got := discover([]string{dir, mod, dir, "/does/not/exist"})
	if len(got) != 1 || got[0] != mod {
		t.Errorf("Expected single candidate %s, got %v", mod, got)
	}
}

func TestDiscover_NilLocations(t *testing.T) {
	if got := discover(nil); len(got) != 0 {
		t.Errorf("Expected no candidates, got %v", got)
	}
}
