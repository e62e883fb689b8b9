package file

import (
	"path/filepath"
	"strings"
)

// TrimExt returns the base name of path without its final extension.
func TrimExt(path string) string {
	if path == "" {
		return path
	}

	filename := filepath.Base(path)
	lastDot := strings.LastIndex(filename, ".")
	if lastDot <= 0 {
		return filename
	}
	return filename[:lastDot]
}
