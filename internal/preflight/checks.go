package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"reelsmith/internal/config"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies at least minMB megabytes are available at path.
func CheckFreeSpace(name, path string, minMB uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	availableMB := stat.Bavail * uint64(stat.Bsize) / (1024 * 1024)
	if availableMB < minMB {
		return Result{Name: name, Detail: fmt.Sprintf("%d MB free, need %d MB", availableMB, minMB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MB free", availableMB)}
}

// CheckSceneSource verifies the scene document is a readable file.
func CheckSceneSource(path string) Result {
	const name = "Scene source"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "scenes.source not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckAPIKey verifies an image API key is configured. The key itself is not
// validated against the provider.
func CheckAPIKey(cfg *config.Config) Result {
	const name = "Image API key"
	if err := cfg.RequireAPIKey(); err != nil {
		return Result{Name: name, Detail: "missing (set OPENAI_API_KEY or image_api.api_key)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}
