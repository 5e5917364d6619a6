package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/assets"
)

// WriteAssets pre-populates dir with placeholder images for titles, named the
// way the generator names them. It returns the written paths in order.
func WriteAssets(t testing.TB, dir string, titles ...string) []string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	paths := make([]string, 0, len(titles))
	for i, title := range titles {
		path := filepath.Join(dir, assets.AssetName(i+1, title))
		if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G', byte(i)}, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		paths = append(paths, path)
	}
	return paths
}
