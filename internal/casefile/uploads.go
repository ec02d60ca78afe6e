package casefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UploadDir is content-addressed evidence file storage: the storage path is
// derived from the SHA-256 of the content, so identical bytes always resolve
// to the same path. Hash collisions are not deduplicated; re-writing the same
// content to the same path is harmless.
type UploadDir struct {
	dir string
}

// NewUploadDir creates the directory if needed and returns the store.
func NewUploadDir(dir string) (*UploadDir, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &UploadDir{dir: dir}, nil
}

// Ext normalizes a file name to its lowercase extension without the dot.
func Ext(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
}

// Path returns the content-addressed path for a hash and extension.
func (u *UploadDir) Path(hashHex, ext string) string {
	name := hashHex
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(u.dir, name)
}

// Write stores data at its content-addressed path and returns the path.
func (u *UploadDir) Write(hashHex, ext string, data []byte) (string, error) {
	path := u.Path(hashHex, ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return path, nil
}
