// Package watcher turns noisy fsnotify events into effective change
// notifications for a single file or directory tree.
//
// A Watcher holds at most one watch session. Events are filtered on one
// dispatch goroutine, in arrival order, and the handler runs synchronously on
// that goroutine, so a slow handler delays later events rather than racing them.
package watcher
