package slabstore

import (
	"fmt"
	"path"
	"strings"
)

// CleanPath returns the canonical absolute form of p.
func CleanPath(p string) string {
	return path.Clean("/" + p)
}

func joinPath(parent, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidPath)
	}
	if strings.HasPrefix(rel, "/") {
		return CleanPath(rel), nil
	}
	return CleanPath(parent + "/" + rel), nil
}

func childPath(parent, name string) (string, error) {
	if name == "" || strings.Contains(name, "/") || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q is not a valid member name", ErrInvalidPath, name)
	}
	return CleanPath(parent + "/" + name), nil
}

func parentPath(p string) string {
	if p == "/" {
		return ""
	}
	return path.Dir(p)
}
