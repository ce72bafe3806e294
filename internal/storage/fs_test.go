package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/lexa/internal/apperr"
	"github.com/starford/lexa/internal/checksum"
)

func tempLibrary(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempLibrary(t)
	content := []byte("cat :: gato\n")
	if err := s.Write("animals.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("animals.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempLibrary(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "a", "b", "c.md")); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestReadAndDeleteMissing(t *testing.T) {
	s := tempLibrary(t)
	if _, err := s.Read("nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Read err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestList_DecksOnly(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("a.md", []byte("a :: b"))
	_ = s.Write("sub/b.xlsx", []byte("not really xlsx"))
	_ = s.Write("readme.txt", []byte("not a deck"))
	_ = s.Write("~$b.xlsx", []byte("lock"))
	_ = s.Write(".hidden/c.md", []byte("skip"))

	files, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %+v, want 2", files)
	}
	for _, f := range files {
		if f.Path == "a.md" && f.Checksum != checksum.Sum([]byte("a :: b")) {
			t.Errorf("checksum = %s", f.Checksum)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempLibrary(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("read %q: err = %v", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("atomic.md", []byte("original"))
	if err := s.Write("atomic.md", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, tmpPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_Errors(t *testing.T) {
	if _, err := NewFS("/tmp/lexa-does-not-exist-" + t.Name()); err == nil {
		t.Error("expected error for non-existent dir")
	}
	f, _ := os.CreateTemp("", "lexa-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
