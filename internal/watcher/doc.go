// Package watcher triggers catalog rescans when files change under the
// media roots.
//
// It registers fsnotify watches on every directory in each root,
// debounces bursts of events into a single rescan, and picks up newly
// created directories as they appear. Scheduled and manual scans remain
// available independently; the watcher is an optional accelerant.
package watcher
