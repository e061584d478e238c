package iox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAtomic_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.jsonl")

	if err := WriteAtomic(path, []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("content = %q", data)
	}
}

func TestWriteAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")

	if err := WriteAtomic(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestTempPath_Unique(t *testing.T) {
	a := TempPath("/data/out.jsonl")
	b := TempPath("/data/out.jsonl")

	if a == b {
		t.Error("temp paths should not collide")
	}
	if !strings.HasPrefix(a, "/data/out.jsonl.tmp-") {
		t.Errorf("unexpected temp path %q", a)
	}
}

func TestPromoteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "media.wav")
	tmp := TempPath(path)

	if err := os.WriteFile(tmp, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	if err := PromoteAtomic(tmp, path); err != nil {
		t.Fatalf("PromoteAtomic: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("promoted file missing: %v", err)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Errorf("temp file should be gone, stat err = %v", err)
	}
}
