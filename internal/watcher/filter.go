package watcher

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type dropReason string

const (
	dropNone      dropReason = ""
	dropIgnored   dropReason = "ignored_op"
	dropDirectory dropReason = "directory"
	dropDebounce  dropReason = "debounce"
	dropTarget    dropReason = "target"
	dropExtension dropReason = "extension"
)

// classify maps a raw event to a change kind. A Create that follows a Rename
// within the rename window is the rename's destination.
func (watcher *Watcher) classify(current *session, event fsnotify.Event, now time.Time) ChangeKind {
	switch {
	case event.Has(fsnotify.Create):
		paired := current.renamePending && now.Sub(current.renamedAt) <= watcher.renameWindow
		current.renamePending = false
		if paired {
			return ChangeMoved
		}
		return ChangeCreated
	case event.Has(fsnotify.Write):
		return ChangeModified
	case event.Has(fsnotify.Rename):
		current.renamePending = true
		current.renamedAt = now
		return ChangeIgnored
	default:
		return ChangeIgnored
	}
}

func (watcher *Watcher) dispatch(current *session, event fsnotify.Event) {
	now := watcher.now()
	change := ChangeEvent{
		Path: filepath.Clean(event.Name),
		Kind: watcher.classify(current, event, now),
		Time: now,
	}

	reason := watcher.filter(current, change)
	watcher.count(reason)
	if reason != dropNone {
		if reason != dropIgnored {
			watcher.logger.Debug("change dropped", map[string]string{
				"path":   change.Path,
				"kind":   change.Kind.String(),
				"reason": string(reason),
			})
		}
		return
	}

	watcher.lastProcessed = change.Time
	watcher.logger.Debug("change accepted", map[string]string{
		"path": change.Path,
		"kind": change.Kind.String(),
	})
	current.handler.HandleChange(change.Path)
}

// filter applies the gates in order: directory, debounce (modified and moved
// only), target, extension.
func (watcher *Watcher) filter(current *session, change ChangeEvent) dropReason {
	if change.Kind == ChangeIgnored {
		return dropIgnored
	}
	if info, err := os.Stat(change.Path); err == nil && info.IsDir() {
		if current.recursive && change.Kind != ChangeModified {
			watcher.addRecursiveWatches(current, change.Path)
		}
		return dropDirectory
	}
	if change.Kind != ChangeCreated && !watcher.lastProcessed.IsZero() &&
		change.Time.Sub(watcher.lastProcessed) < watcher.debounce {
		return dropDebounce
	}
	if current.target != "" && change.Path != current.target {
		return dropTarget
	}
	if !watcher.extensions.Matches(change.Path) {
		return dropExtension
	}
	return dropNone
}

func (watcher *Watcher) count(reason dropReason) {
	switch reason {
	case dropNone:
		watcher.accepted.Add(1)
	case dropIgnored:
		watcher.ignoredOps.Add(1)
	case dropDirectory:
		watcher.droppedDirectory.Add(1)
	case dropDebounce:
		watcher.droppedDebounce.Add(1)
	case dropTarget:
		watcher.droppedTarget.Add(1)
	case dropExtension:
		watcher.droppedExtension.Add(1)
	}
}
