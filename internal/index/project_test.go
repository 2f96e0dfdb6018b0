package index

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestProjectSourceFilesHonoursDefaultExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main")
	writeFile(t, filepath.Join(root, "vendor", "dep.go"), "package dep")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "index.js"), "")

	p := &Project{Name: "p", SourceRoot: root}
	files, err := p.SourceFiles()
	if err != nil {
		t.Fatalf("SourceFiles failed: %v", err)
	}
	sort.Strings(files)
	if len(files) != 1 || files[0] != "main.go" {
		t.Fatalf("expected only main.go, got %v", files)
	}
}

func TestProjectSourceFilesHonoursProjectExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main")
	writeFile(t, filepath.Join(root, "generated", "gen.go"), "package generated")

	p := &Project{Name: "p", SourceRoot: root, Exclude: []string{"generated"}}
	files, err := p.SourceFiles()
	if err != nil {
		t.Fatalf("SourceFiles failed: %v", err)
	}
	if len(files) != 1 || files[0] != "main.go" {
		t.Fatalf("expected generated/ to be excluded, got %v", files)
	}
}

func TestProjectSourceFilesHonoursGlobExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.go"), "package main")
	writeFile(t, filepath.Join(root, "keep_test.go"), "package main")

	p := &Project{Name: "p", SourceRoot: root, Exclude: []string{"*_test.go"}}
	files, err := p.SourceFiles()
	if err != nil {
		t.Fatalf("SourceFiles failed: %v", err)
	}
	if len(files) != 1 || files[0] != "keep.go" {
		t.Fatalf("expected keep_test.go excluded, got %v", files)
	}
}

func TestProjectDeleteMissingFiles(t *testing.T) {
	root := t.TempDir()
	storeDir := t.TempDir()
	store := NewEntryStore(storeDir)

	if err := store.Save("old.go", []byte("old"), "s", "o", []float32{1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("current.go", []byte("cur"), "s", "o", []float32{1}); err != nil {
		t.Fatal(err)
	}

	p := &Project{Name: "p", SourceRoot: root, StorePath: storeDir}
	if err := p.DeleteMissingFiles(store, []string{"current.go"}); err != nil {
		t.Fatalf("DeleteMissingFiles failed: %v", err)
	}

	oldEntry, _ := store.Load("old.go")
	if oldEntry.ContentHash != "" {
		t.Fatalf("expected old.go entry to be removed")
	}
	curEntry, _ := store.Load("current.go")
	if curEntry.ContentHash == "" {
		t.Fatalf("expected current.go entry to survive")
	}
}

func TestProjectListFilesAndDelete(t *testing.T) {
	storeDir := t.TempDir()
	store := NewEntryStore(storeDir)

	if err := store.Save("a.go", []byte("a"), "s", "o", []float32{1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("b.go", []byte("b"), "s", "o", []float32{1}); err != nil {
		t.Fatal(err)
	}

	p := &Project{Name: "p", StorePath: storeDir}
	files, err := p.ListFiles(store)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	sort.Strings(files)
	if len(files) != 2 || files[0] != "a.go" || files[1] != "b.go" {
		t.Fatalf("unexpected file list: %v", files)
	}

	if err := p.Delete(store); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(storeDir); !os.IsNotExist(err) {
		t.Fatalf("expected store directory to be removed")
	}
}
