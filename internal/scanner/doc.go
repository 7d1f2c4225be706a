// Package scanner walks the configured media roots and reconciles what
// it finds against the catalog store.
//
// Each scan upserts newly discovered images (never disturbing rotation
// progress for files already catalogued) and retires rows whose backing
// files have disappeared, per root and inside one transaction so a crash
// mid-scan cannot leave a missing file selectable.
//
// Scans run on demand, on a configurable interval, or when the watcher
// reports filesystem changes. Only one scan runs at a time; concurrent
// requests are rejected. Per-file errors (permission denied, broken
// symlinks) skip the file and are reported in the scan result rather
// than aborting the pass. Symbolic links are followed, with each
// directory visited at most once by canonical path.
package scanner
