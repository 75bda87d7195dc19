package output

import (
	"fmt"
	"os"
	"path/filepath"
)

// OutputDirectoryError reports an output location that cannot be created or
// written.
type OutputDirectoryError struct {
	Dir string
	Err error
}

func (err *OutputDirectoryError) Error() string {
	return fmt.Sprintf("output directory %s: %v", err.Dir, err.Err)
}

func (err *OutputDirectoryError) Unwrap() error {
	return err.Err
}

// EnsureOutputDir creates the parent directory of path and checks that it
// accepts new files.
func EnsureOutputDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &OutputDirectoryError{Dir: dir, Err: err}
	}
	scratch, err := os.CreateTemp(dir, ".kratio-write-*")
	if err != nil {
		return &OutputDirectoryError{Dir: dir, Err: err}
	}
	name := scratch.Name()
	_ = scratch.Close()
	_ = os.Remove(name)
	return nil
}
