package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path with size bytes of filler, creating parent
// directories. Sizes below one are bumped to one so the file is never empty.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	writeWithParents(t, path, bytes.Repeat([]byte{'B'}, int(max(size, 1))), 0o644)
}

// WriteExecutable writes a script to path with mode 0755.
func WriteExecutable(t testing.TB, path, content string) {
	t.Helper()
	writeWithParents(t, path, []byte(content), 0o755)
}

func writeWithParents(t testing.TB, path string, data []byte, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
