package watcher

import (
	"io/fs"
	"path/filepath"
	"strconv"
)

func (watcher *Watcher) addWatch(current *session, path string) error {
	if err := current.backend.Add(path); err != nil {
		watcher.logger.Warn("watch add failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		return err
	}
	active := watcher.activeWatches.Add(1)
	watcher.logger.Debug("watch added", map[string]string{
		"path":           path,
		"active_watches": strconv.FormatInt(active, 10),
	})
	return nil
}

// addRecursiveWatches adds root and every directory below it. Failures on
// individual directories are logged and skipped.
func (watcher *Watcher) addRecursiveWatches(current *session, root string) {
	paths, err := collectRecursiveDirs(root)
	if err != nil {
		watcher.logger.Warn("directory walk failed", map[string]string{
			"path":  root,
			"error": err.Error(),
		})
	}
	if root != current.root {
		paths = append([]string{root}, paths...)
	}
	for _, path := range paths {
		_ = watcher.addWatch(current, path)
	}
}

// collectRecursiveDirs lists the directories below root, excluding root.
func collectRecursiveDirs(root string) ([]string, error) {
	dirs := []string{}
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path == root {
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}
