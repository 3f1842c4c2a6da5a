package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	return root
}

func TestLocalFileSystem(t *testing.T) {
	root := writeTree(t, map[string]string{
		"public/index.html":     "<h1>home</h1>",
		"public/css/site.css":   "body{}",
		"public/img/logo.png":   "png",
		"public/empty/.gitkeep": "",
	})
	fs := NewLocalFileSystem(root)

	// Test ReadFile
	content, err := fs.ReadFile("public/index.html")
	if err != nil {
		t.Errorf("ReadFile failed: %v", err)
	}
	if string(content) != "<h1>home</h1>" {
		t.Errorf("Expected <h1>home</h1>, got %s", content)
	}

	// Test absolute paths
	content, err = fs.ReadFile(filepath.Join(root, "public", "css", "site.css"))
	if err != nil {
		t.Errorf("ReadFile with absolute path failed: %v", err)
	}
	if string(content) != "body{}" {
		t.Errorf("Expected body{}, got %s", content)
	}

	// Test IsDirectory
	isDir, err := fs.IsDirectory("public")
	if err != nil || !isDir {
		t.Errorf("public should be a directory: %v", err)
	}
	isDir, err = fs.IsDirectory("public/index.html")
	if err != nil || isDir {
		t.Errorf("index.html should not be a directory: %v", err)
	}

	// Test ListFiles
	files, err := fs.ListFiles("public")
	if err != nil {
		t.Errorf("ListFiles failed: %v", err)
	}
	expected := "css/site.css,empty/.gitkeep,img/logo.png,index.html"
	if got := strings.Join(files, ","); got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}

func TestLocalFileSystemErrors(t *testing.T) {
	fs := NewLocalFileSystem(t.TempDir())

	_, err := fs.ReadFile("missing.txt")
	if !errors.Is(err, ErrFileNotFound) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}

	_, err = fs.ReadFile("../outside.txt")
	if !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Expected ErrInvalidPath, got %v", err)
	}

	_, err = fs.ReadFile("")
	if !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Expected ErrInvalidPath, got %v", err)
	}

	_, err = fs.ListFiles("missing")
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Errorf("Expected ErrDirectoryNotFound, got %v", err)
	}
}

func TestGetFileExtension(t *testing.T) {
	tests := map[string]string{
		"index.html":        "html",
		"logo.PNG":          "png",
		"archive.tar.gz":    "gz",
		"Makefile":          "",
		"dir.d/config":      "",
		"assets/font.woff2": "woff2",
	}

	for path, expected := range tests {
		if got := GetFileExtension(path); got != expected {
			t.Errorf("GetFileExtension(%q): expected %q, got %q", path, expected, got)
		}
	}
}
