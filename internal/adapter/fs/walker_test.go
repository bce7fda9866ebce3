package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("question,answer\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalker_IncludesAndExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "my_data.csv"))
	writeFile(t, filepath.Join(root, "extra", "b.csv"))
	writeFile(t, filepath.Join(root, "extra", "a.csv"))
	writeFile(t, filepath.Join(root, ".qabot", "cached.csv"))
	writeFile(t, filepath.Join(root, "notes.txt"))

	w := NewWalker([]string{"**/*.csv"}, []string{"**/.qabot/**", ".qabot/"})
	paths, err := w.Paths(root)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(root, "extra", "a.csv"),
		filepath.Join(root, "extra", "b.csv"),
		filepath.Join(root, "my_data.csv"),
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d files, got %d: %v", len(want), len(paths), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestWalker_SingleFilePattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "my_data.csv"))
	writeFile(t, filepath.Join(root, "other.csv"))

	w := NewWalker([]string{"my_data.csv"}, nil)
	files, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || filepath.Base(files[0].Path) != "my_data.csv" {
		t.Fatalf("expected only my_data.csv, got %v", files)
	}
	if files[0].Size == 0 {
		t.Error("expected non-zero size")
	}
}

func TestWalker_Match(t *testing.T) {
	root := t.TempDir()
	w := NewWalker([]string{"data/**/*.csv", "my_data.csv"}, []string{"**/.qabot/**", ".qabot/", "data/archive/"})

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "my_data.csv"), true},
		{filepath.Join(root, "data", "new.csv"), true},
		{filepath.Join(root, "data", "deep", "x.csv"), true},
		{filepath.Join(root, "other.csv"), false},
		{filepath.Join(root, "data", "notes.txt"), false},
		{filepath.Join(root, "data", "archive", "old.csv"), false},
		{filepath.Join(root, ".qabot", "my_data.csv"), false},
		{filepath.Join(filepath.Dir(root), "my_data.csv"), false},
	}
	for _, tt := range tests {
		if got := w.Match(root, tt.path); got != tt.want {
			t.Errorf("Match(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWalker_Dirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data", "a.csv"))
	writeFile(t, filepath.Join(root, ".qabot", "cache.csv"))
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	w := NewWalker([]string{"**/*.csv"}, []string{"**/.qabot/**", ".qabot/"})
	dirs, err := w.Dirs(root)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{root, filepath.Join(root, "data"), filepath.Join(root, "empty")}
	if len(dirs) != len(want) {
		t.Fatalf("expected %v, got %v", want, dirs)
	}
	for i := range want {
		if dirs[i] != want[i] {
			t.Errorf("dirs[%d] = %s, want %s", i, dirs[i], want[i])
		}
	}
}
