// Package pathutil validates client-supplied file paths before bnet
// reads them, confining access to a set of allowed directories.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RedactPath reduces a full path to .../<parent>/<basename> for error
// messages. For example, "/home/user/.bnet/networks/fever.yaml" becomes
// ".../networks/fever.yaml".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return filepath.Join("...", parent, filepath.Base(cleaned))
}

// ValidatePath checks that path lies inside one of the allowed
// directories. Both sides are resolved through their symlinks first, so
// a link inside an allowed directory cannot reach outside it. Null
// bytes are rejected outright.
func ValidatePath(path string, allowedDirs []string) error {
	if path == "" {
		return fmt.Errorf("path validation failed: path is empty")
	}
	if len(allowedDirs) == 0 {
		return fmt.Errorf("path validation failed: no allowed directories configured")
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path validation failed: path contains null byte")
	}

	target, err := resolve(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}

	for _, dir := range allowedDirs {
		base, err := resolve(dir)
		if err != nil {
			continue
		}
		if within(target, base) {
			return nil
		}
	}

	return fmt.Errorf("path validation failed: %q is outside allowed directories", RedactPath(path))
}

// resolve makes path absolute and follows symlinks on its deepest
// existing ancestor, re-appending any missing tail unchanged. The
// target itself does not have to exist yet.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", RedactPath(path), err)
	}

	var tail []string
	dir := abs
	for {
		real, err := filepath.EvalSymlinks(dir)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				real = filepath.Join(real, tail[i])
			}
			return real, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Walked to the root without finding existing ground
			return "", fmt.Errorf("cannot resolve %s", RedactPath(path))
		}
		tail = append(tail, filepath.Base(dir))
		dir = parent
	}
}

// within reports whether path equals base or sits below it. Both must
// already be absolute and symlink-free.
func within(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// NetworkDirs returns the directories MCP clients may read network
// definitions from: the server root and ~/.bnet/networks.
func NetworkDirs(root string) ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	dirs := []string{filepath.Join(homeDir, ".bnet", "networks")}
	if root != "" {
		dirs = append(dirs, root)
	}
	return dirs, nil
}
