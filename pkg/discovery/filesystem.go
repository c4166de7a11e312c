package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrDirectoryNotFound is the sentinel behind [DirectoryNotFoundError].
var ErrDirectoryNotFound = errors.New("directory not found")

// DirectoryNotFoundError reports a scan root that does not exist or is not a
// directory.
type DirectoryNotFoundError struct {
	Path string
}

func (e *DirectoryNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDirectoryNotFound, e.Path)
}

// Unwrap returns ErrDirectoryNotFound.
func (e *DirectoryNotFoundError) Unwrap() error {
	return ErrDirectoryNotFound
}

// FileSystem lists and reads candidate source files. ListFiles returns a
// *DirectoryNotFoundError when dir is missing.
type FileSystem interface {
	ListFiles(dir string, recursive bool) ([]string, error)
	ReadFile(path string) ([]byte, error)
}

// OSFileSystem is the FileSystem of the host. Dot files and dot directories
// are skipped.
type OSFileSystem struct{}

// ListFiles returns the regular files directly inside dir, or anywhere below
// it when recursive is set, sorted by path.
func (OSFileSystem) ListFiles(dir string, recursive bool) ([]string, error) {
	info, statErr := os.Stat(dir)
	if statErr != nil || !info.IsDir() {
		return nil, &DirectoryNotFoundError{Path: dir}
	}

	if !recursive {
		return listTopLevel(dir)
	}

	var files []string

	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == dir {
			return nil
		}

		if isHidden(entry.Name()) {
			if entry.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if entry.Type().IsRegular() {
			files = append(files, path)
		}

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, walkErr)
	}

	sort.Strings(files)

	return files, nil
}

// ReadFile implements FileSystem.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return data, nil
}

func listTopLevel(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))

	for _, entry := range entries {
		if isHidden(entry.Name()) || !entry.Type().IsRegular() {
			continue
		}

		files = append(files, filepath.Join(dir, entry.Name()))
	}

	return files, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
