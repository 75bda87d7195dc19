package textsource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

var ErrInvalidEncoding = errors.New("file is not valid UTF-8")

// ReadError reports a source text that could not be read or decoded.
type ReadError struct {
	Path string
	Err  error
}

func (err *ReadError) Error() string {
	if errors.Is(err.Err, fs.ErrNotExist) {
		return fmt.Sprintf("file not found at %s", err.Path)
	}
	return fmt.Sprintf("read %s: %v", err.Path, err.Err)
}

func (err *ReadError) Unwrap() error {
	return err.Err
}

// Source supplies raw text for a single file.
type Source interface {
	Read(path string) (string, error)
}

// FileSource reads UTF-8 files from the local filesystem.
type FileSource struct{}

func (FileSource) Read(path string) (string, error) {
	return ReadFile(path)
}

func ReadFile(path string) (string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	if !utf8.Valid(payload) {
		return "", &ReadError{Path: path, Err: ErrInvalidEncoding}
	}
	return strings.TrimPrefix(string(payload), "\uFEFF"), nil
}

// IsDirectory reports whether path exists and is a directory.
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Scan walks root and returns the files whose extension is in extensions,
// sorted lexically. Hidden directories are skipped.
func Scan(root string, extensions ExtensionSet) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ReadError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ReadError{Path: root, Err: fmt.Errorf("not a directory")}
	}

	files := []string{}
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil
		}
		if entry.IsDir() {
			if path != root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if extensions.Matches(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &ReadError{Path: root, Err: err}
	}
	sort.Strings(files)
	return files, nil
}
