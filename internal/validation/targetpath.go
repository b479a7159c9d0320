package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateTargetPath validates a `data-target-path` value: it must be a
// relative path with no `..` segments, per spec.md's rust-pipeline edge-case
// policy (also applied to copy-file/copy-dir/script target paths).
func ValidateTargetPath(path string) error {
	if path == "" {
		return nil
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("target path must be relative: %s", path)
	}
	cleaned := filepath.ToSlash(filepath.Clean(path))
	for _, seg := range strings.Split(cleaned, "/") {
		if seg == ".." {
			return fmt.Errorf("target path must not contain '..': %s", path)
		}
	}
	return nil
}
