package fs

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docqa/internal/port"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalker_Walk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "a.md"), "a")
	writeFile(t, filepath.Join(root, "sub", "c.py"), "c")
	writeFile(t, filepath.Join(root, ".git", "config"), "x")
	writeFile(t, filepath.Join(root, ".hidden.txt"), "x")
	writeFile(t, filepath.Join(root, "node_modules", "m.txt"), "x")

	w := NewWalker([]string{"**/node_modules/**", "node_modules/"}, nil)
	files, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		got = append(got, filepath.ToSlash(rel))
	}
	want := []string{"a.md", "b.txt", "sub/c.py"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("file %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestWalker_MissingRoot(t *testing.T) {
	w := NewWalker(nil, nil)
	if _, err := w.Walk(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestWalker_RootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, path, "x")

	w := NewWalker(nil, nil)
	if _, err := w.Walk(path); err == nil {
		t.Error("expected error when root is a file")
	}
}

// brokenEntry is a directory entry whose stat fails.
type brokenEntry struct {
	name string
	dir  bool
}

func (e brokenEntry) Name() string { return e.name }
func (e brokenEntry) IsDir() bool  { return e.dir }
func (e brokenEntry) Type() fs.FileMode {
	if e.dir {
		return fs.ModeDir
	}
	return 0
}
func (e brokenEntry) Info() (fs.FileInfo, error) { return nil, fs.ErrPermission }

func TestWalker_SkipsUnreadableEntries(t *testing.T) {
	var logs bytes.Buffer
	w := NewWalker(nil, slog.New(slog.NewTextHandler(&logs, nil)))
	root := t.TempDir()

	var files []port.FileInfo
	visit := w.visit(root, &files)

	denied := &fs.PathError{Op: "open", Path: "locked", Err: fs.ErrPermission}
	if err := visit(filepath.Join(root, "locked"), brokenEntry{name: "locked", dir: true}, denied); !errors.Is(err, filepath.SkipDir) {
		t.Errorf("expected SkipDir for unreadable directory, got %v", err)
	}
	if err := visit(filepath.Join(root, "gone.txt"), brokenEntry{name: "gone.txt"}, nil); err != nil {
		t.Errorf("expected unreadable file to be skipped, got %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %v", files)
	}

	out := logs.String()
	if !strings.Contains(out, "skipping unreadable path") || !strings.Contains(out, "locked") {
		t.Errorf("expected warning for directory, got %q", out)
	}
	if !strings.Contains(out, "skipping unreadable file") || !strings.Contains(out, "gone.txt") {
		t.Errorf("expected warning for file, got %q", out)
	}
}

func TestWalker_RootErrorEndsWalk(t *testing.T) {
	w := NewWalker(nil, nil)
	root := t.TempDir()
	var files []port.FileInfo
	if err := w.visit(root, &files)(root, nil, fs.ErrPermission); !errors.Is(err, fs.ErrPermission) {
		t.Errorf("expected root error to be returned, got %v", err)
	}
}
