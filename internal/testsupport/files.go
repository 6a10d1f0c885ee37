package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteProgram creates a small G-code file at the target path for tests that
// need a real file on disk.
func WriteProgram(t testing.TB, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	content := []byte("G21 G90\nG0 X0 Y0\nM2\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
