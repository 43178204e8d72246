package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// localPath resolves name under dir. name must be local in the
// filepath.IsLocal sense: relative, no volume, never climbing out of dir.
func localPath(dir, name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("fixture path %q is not local to the test dir", name)
	}
	return filepath.Join(dir, name), nil
}

// WriteFile writes a fixture under dir, creating parent directories, and
// returns its full path.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path, err := localPath(dir, name)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("WriteFile: mkdir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}
