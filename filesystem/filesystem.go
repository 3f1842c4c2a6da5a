package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Error constants for better error handling
var (
	ErrFileNotFound      = errors.New("filesystem: file not found")
	ErrDirectoryNotFound = errors.New("filesystem: directory not found")
	ErrInvalidPath       = errors.New("filesystem: invalid path")
)

// Filesystem is the read-only view static bodies are loaded through.
type Filesystem interface {
	ReadFile(path string) ([]byte, error)

	// ListFiles returns every regular file below dir as a slash separated
	// path relative to dir, sorted.
	ListFiles(dir string) ([]string, error)

	IsDirectory(path string) (bool, error)
}

// localFileSystem resolves relative paths against root. Relative paths may
// not leave root; absolute paths are used as given.
type localFileSystem struct {
	root string
}

func NewLocalFileSystem(root string) Filesystem {
	if root == "" {
		root = "."
	}
	return &localFileSystem{root: root}
}

func (filesystem *localFileSystem) resolve(path string) (string, error) {
	if path == "" {
		return "", ErrInvalidPath
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if !filepath.IsLocal(path) {
		return "", fmt.Errorf("%w: %s escapes %s", ErrInvalidPath, path, filesystem.root)
	}
	return filepath.Join(filesystem.root, path), nil
}

func (filesystem *localFileSystem) ReadFile(path string) ([]byte, error) {
	resolved, err := filesystem.resolve(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileNotFound, path, err)
	}
	return content, err
}

func (filesystem *localFileSystem) IsDirectory(path string) (bool, error) {
	resolved, err := filesystem.resolve(path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (filesystem *localFileSystem) ListFiles(dir string) ([]string, error) {
	exists, err := filesystem.IsDirectory(dir)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}

	resolved, _ := filesystem.resolve(dir)

	var files []string
	err = filepath.WalkDir(resolved, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(resolved, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

// GetFileExtension returns the lower case extension of path without the dot.
func GetFileExtension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
