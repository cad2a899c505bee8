// Package fsutil provides the filesystem collaborators consumed by the
// startup runner and the exception-handler lookup: folder listing, file
// listing by extension, and file loading.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FolderService lists immediate child folders of an absolute path.
type FolderService interface {
	ListFolders(path string) ([]string, error)
}

// FileService lists and loads script files.
type FileService interface {
	// ListFiles recursively searches path for files ending with extension.
	ListFiles(path string, extension string) ([]string, error)

	// Load reads the raw contents of a file.
	Load(path string) ([]byte, error)

	// Exists reports whether path names an existing regular file.
	Exists(path string) bool
}

// OSFiles implements FolderService and FileService against the local
// filesystem.
type OSFiles struct{}

// ListFolders returns the full paths of path's immediate child folders,
// sorted by name.
func (OSFiles) ListFolders(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var folders []string
	for _, entry := range entries {
		if entry.IsDir() {
			folders = append(folders, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// ListFiles recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func (OSFiles) ListFiles(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// Load reads the raw contents of a file.
func (OSFiles) Load(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Exists reports whether path names an existing regular file.
func (OSFiles) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
