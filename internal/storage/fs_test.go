package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempVault(t *testing.T, files map[string]string) *FS {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestRead(t *testing.T) {
	s := tempVault(t, map[string]string{"pages/note.md": "- Hello [[World]]\n"})
	got, err := s.Read("pages/note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "- Hello [[World]]\n" {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestList(t *testing.T) {
	s := tempVault(t, map[string]string{
		"b.md":               "b",
		"journals/2024.md":   "j",
		"readme.txt":         "not md",
		".trash/deleted.md":  "gone",
		"logseq/.bak/old.md": "backup",
	})

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v, want 2", items)
	}
	if items[0].Path != "b.md" || items[1].Path != "journals/2024.md" {
		t.Errorf("paths = %q, %q", items[0].Path, items[1].Path)
	}
	if items[0].Checksum == "" || items[0].Checksum == items[1].Checksum {
		t.Errorf("unexpected checksums %q / %q", items[0].Checksum, items[1].Checksum)
	}
}

func TestList_ChecksumTracksContent(t *testing.T) {
	s := tempVault(t, map[string]string{"a.md": "one"})
	before, err := s.List("")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Root(), "a.md"), []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	after, err := s.List("")
	if err != nil {
		t.Fatal(err)
	}
	if before[0].Checksum == after[0].Checksum {
		t.Error("checksum should change with content")
	}
}

func TestIsPage(t *testing.T) {
	cases := map[string]bool{
		"a.md":             true,
		"pages/b.md":       true,
		"a.txt":            false,
		".git/x.md":        false,
		"pages/.hidden.md": false,
	}
	for p, want := range cases {
		if got := IsPage(p); got != want {
			t.Errorf("IsPage(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t, nil)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
	if _, err := s.List("../"); err == nil {
		t.Error("expected error listing outside the vault")
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/linkgraph-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "linkgraph-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
