package slm

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenParsesTestModel(t *testing.T) {
	loader, err := Open(buildTestModel(t), DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer loader.Close()

	if loader.NumUnigrams() != 3 {
		t.Errorf("NumUnigrams() = %d, want 3", loader.NumUnigrams())
	}
	if loader.MaxDepth() != 3 {
		t.Errorf("MaxDepth() = %d, want 3", loader.MaxDepth())
	}
	if !loader.Unigrams().checkMonotone() {
		t.Errorf("expected unigram table to be monotone")
	}
	if loader.Vocab().IdOf("B") == WordNil {
		t.Errorf("expected B to resolve to a valid id")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	if err := os.WriteFile(path, make([]byte, headerSize), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	if _, err := Open(path, DefaultOptions()); err == nil {
		t.Errorf("expected an error opening a file with a zeroed header")
	}
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	if _, err := Open(path, DefaultOptions()); err == nil {
		t.Errorf("expected an error opening a file shorter than the header")
	}
}

func TestLoadBufferBoundsChecked(t *testing.T) {
	loader, err := Open(buildTestModel(t), DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer loader.Close()

	if _, err := loader.LoadBuffer(0, 1<<30); err == nil {
		t.Errorf("expected an error reading past the end of the mapped file")
	}
	if b, err := loader.LoadBuffer(0, 0); err != nil || b != nil {
		t.Errorf("LoadBuffer(0,0) = (%v,%v), want (nil,nil)", b, err)
	}
}
