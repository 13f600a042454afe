package taxdoc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sandbox confines file access to one document directory. Relative paths
// are resolved against the directory; symlinks are followed before the
// containment check.
type Sandbox struct {
	dir string
}

// NewSandbox creates a sandbox rooted at dir. The directory need not exist
// yet, but every path is rejected until it does.
func NewSandbox(dir string) (*Sandbox, error) {
	if dir == "" {
		return nil, fmt.Errorf("document directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document directory: %w", err)
	}
	return &Sandbox{dir: filepath.Clean(abs)}, nil
}

// Dir returns the absolute sandbox directory.
func (s *Sandbox) Dir() string {
	return s.dir
}

// Resolve returns the real absolute path of an existing regular file
// inside the sandbox.
func (s *Sandbox) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", newError(CodeInvalidPath, "path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, path)
	}
	clean := filepath.Clean(path)

	realDir, err := filepath.EvalSymlinks(s.dir)
	if err != nil {
		return "", newError(CodeInvalidPath, "document directory is not accessible", err)
	}

	realPath, err := filepath.EvalSymlinks(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return "", newError(CodeInvalidPath, fmt.Sprintf("file does not exist: %s", path))
		}
		return "", newError(CodeInvalidPath, "cannot access file", err)
	}

	if !within(clean, s.dir, realDir) || !within(realPath, s.dir, realDir) {
		return "", newError(CodeInvalidPath, fmt.Sprintf("path is outside the document directory: %s", path))
	}

	info, err := os.Stat(realPath)
	if err != nil {
		return "", newError(CodeInvalidPath, "cannot access file", err)
	}
	if info.IsDir() {
		return "", newError(CodeInvalidPath, fmt.Sprintf("path is a directory, not a file: %s", path))
	}
	return realPath, nil
}

// within reports whether path equals or lies below either spelling of the
// directory.
func within(path string, dirs ...string) bool {
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
