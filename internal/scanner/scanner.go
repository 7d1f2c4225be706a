package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/karrick/godirwalk"

	"picture-frame/internal/logging"
	"picture-frame/internal/mediatypes"
	"picture-frame/internal/metrics"
	"picture-frame/internal/resolver"
	"picture-frame/internal/store"
)

// ErrScanInProgress is returned when a scan is requested while another
// one is still running.
var ErrScanInProgress = errors.New("a scan is already in progress")

// Scanner reconciles the catalog with the current filesystem state of
// the configured media roots. At most one scan runs at a time; a second
// request while one is in flight is rejected with ErrScanInProgress.
type Scanner struct {
	store        *store.Store
	roots        []string
	exts         mediatypes.ExtensionSet
	scanInterval time.Duration

	stopChan chan struct{}
	stopOnce sync.Once

	scanMu           sync.Mutex
	isScanning       bool
	initialScanDone  bool
	initialScanError error
	lastScanTime     time.Time
	lastResult       Result
	lastScanStamp    time.Time
	startTime        time.Time
}

// Result reports what one reconciliation pass changed. Skipped counts
// per-file errors (permission denied, broken symlinks); extension
// rejects are not errors and are not counted.
type Result struct {
	Added   int `json:"added"`
	Retired int `json:"retired"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// Status contains scanner health information.
type Status struct {
	Ready            bool      `json:"ready"`
	Scanning         bool      `json:"scanning"`
	StartTime        time.Time `json:"startTime"`
	Uptime           string    `json:"uptime"`
	LastScan         time.Time `json:"lastScan,omitempty"`
	LastResult       Result    `json:"lastResult"`
	InitialScanError string    `json:"initialScanError,omitempty"`
}

// New creates a Scanner over the given media roots. Roots are normalized
// to absolute paths so the catalog's source_root scoping is stable across
// working directories.
func New(st *store.Store, roots []string, exts mediatypes.ExtensionSet, scanInterval time.Duration) *Scanner {
	absRoots := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			logging.Warn("Cannot resolve media root %s: %v", root, err)
			abs = root
		}
		absRoots = append(absRoots, abs)
	}

	return &Scanner{
		store:        st,
		roots:        absRoots,
		exts:         exts,
		scanInterval: scanInterval,
		stopChan:     make(chan struct{}),
		startTime:    time.Now(),
	}
}

// Start runs the initial scan in the background and, if a scan interval
// is configured, begins periodic rescans.
func (s *Scanner) Start() {
	go func() {
		logging.Info("Starting initial media scan...")
		if _, err := s.Scan(); err != nil {
			logging.Error("Initial scan error: %v", err)
			s.scanMu.Lock()
			s.initialScanError = err
			s.scanMu.Unlock()
		}
		s.scanMu.Lock()
		s.initialScanDone = true
		s.scanMu.Unlock()
	}()

	if s.scanInterval > 0 {
		go s.periodicScan()
	}
}

// Stop stops periodic scanning.
func (s *Scanner) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// IsReady reports whether the initial scan has completed.
func (s *Scanner) IsReady() bool {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	return s.initialScanDone
}

// IsScanning reports whether a scan is currently in progress.
func (s *Scanner) IsScanning() bool {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	return s.isScanning
}

// GetStatus returns scanner health information.
func (s *Scanner) GetStatus() Status {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	status := Status{
		Ready:      s.initialScanDone,
		Scanning:   s.isScanning,
		StartTime:  s.startTime,
		Uptime:     time.Since(s.startTime).String(),
		LastScan:   s.lastScanTime,
		LastResult: s.lastResult,
	}
	if s.initialScanError != nil {
		status.InitialScanError = s.initialScanError.Error()
	}
	return status
}

// TriggerScan runs a scan in the background, for callers that do not
// need the result. An in-flight scan makes it a no-op.
func (s *Scanner) TriggerScan() {
	go func() {
		if _, err := s.Scan(); err != nil && !errors.Is(err, ErrScanInProgress) {
			logging.Error("Triggered scan failed: %v", err)
		}
	}()
}

// Scan walks every media root, upserts eligible images and retires rows
// whose files are gone, one transaction per root so additions and
// retirements land together.
func (s *Scanner) Scan() (Result, error) {
	if !s.tryStartScanning() {
		return Result{}, ErrScanInProgress
	}
	defer s.finishScanning()

	metrics.ScannerIsRunning.Set(1)
	defer metrics.ScannerIsRunning.Set(0)
	metrics.ScannerRunsTotal.Inc()

	startTime := time.Now()
	scanStamp := s.nextScanStamp()
	logging.Info("Starting media scan of %d root(s)...", len(s.roots))

	var result Result
	for _, root := range s.roots {
		if err := s.scanRoot(root, scanStamp, &result); err != nil {
			metrics.ScannerErrors.Inc()
			return result, fmt.Errorf("scanning %s: %w", root, err)
		}
	}

	if err := s.finalizeScan(startTime, &result); err != nil {
		logging.Warn("Failed to refresh catalog stats: %v", err)
	}

	duration := time.Since(startTime)
	metrics.ScannerLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.ScannerLastRunDuration.Set(duration.Seconds())
	metrics.ScannerImagesAdded.Add(float64(result.Added))
	metrics.ScannerImagesRetired.Add(float64(result.Retired))
	metrics.ScannerFilesSkipped.Add(float64(result.Skipped))

	logging.Info("Scan complete: %d added, %d retired, %d skipped, %d total in %v",
		result.Added, result.Retired, result.Skipped, result.Total, duration)

	return result, nil
}

// nextScanStamp returns the stamp that marks every file seen by this
// scan. Stamps are strictly increasing across scans, so RemoveMissing's
// last_seen_at < stamp comparison retires a file deleted between two
// scans even when the clock has not advanced between them.
func (s *Scanner) nextScanStamp() time.Time {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	// Compare the wall-clock nanosecond value, not the monotonic
	// reading, since last_seen_at stores UnixNano.
	stamp := time.Now()
	if stamp.UnixNano() <= s.lastScanStamp.UnixNano() {
		stamp = s.lastScanStamp.Add(time.Nanosecond)
	}
	s.lastScanStamp = stamp
	return stamp
}

// scanRoot reconciles one root inside a single transaction.
func (s *Scanner) scanRoot(root string, scanTime time.Time, result *Result) error {
	if _, err := os.Stat(root); err != nil {
		// An unavailable root (unmounted share, typo) is skipped rather
		// than reconciled, so a transient outage cannot retire its
		// whole catalog.
		logging.Warn("Media root unavailable, skipping: %s (%v)", root, err)
		return nil
	}

	tx, err := s.store.BeginBatch()
	if err != nil {
		return fmt.Errorf("failed to begin scan transaction: %w", err)
	}

	visited := map[string]bool{}

	walkErr := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted:            true,
		FollowSymbolicLinks: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			select {
			case <-s.stopChan:
				return errShuttingDown
			default:
			}

			if strings.HasPrefix(de.Name(), ".") && path != root {
				if de.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			isDir, err := de.IsDirOrSymlinkToDir()
			if err != nil {
				logging.Warn("Cannot classify %s: %v", path, err)
				result.Skipped++
				return nil
			}

			if isDir {
				// Follow each directory at most once by canonical path,
				// so symlink cycles terminate.
				canonical, err := filepath.EvalSymlinks(path)
				if err != nil {
					logging.Warn("Cannot canonicalize %s: %v", path, err)
					result.Skipped++
					return filepath.SkipDir
				}
				if visited[canonical] {
					logging.Debug("Already visited %s (via %s), skipping", canonical, path)
					return filepath.SkipDir
				}
				visited[canonical] = true
				return nil
			}

			resolved, err := resolver.Resolve(root, path, s.exts)
			if err != nil {
				// Extension and no-album rejects are routine, not errors.
				return nil
			}

			inserted, err := s.store.UpsertImage(tx, path, root, resolved.RelativePath, resolved.Album, scanTime)
			if err != nil {
				logging.Warn("Error cataloging %s: %v", path, err)
				result.Skipped++
				return nil
			}
			if inserted {
				result.Added++
				logging.Debug("Catalogued %s (album %s)", resolved.RelativePath, resolved.Album)
			}
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			logging.Warn("Error accessing %s: %v", path, err)
			result.Skipped++
			return godirwalk.SkipNode
		},
	})
	if walkErr != nil {
		// EndBatch rolls back and folds any rollback failure into the
		// returned error.
		return fmt.Errorf("walk failed: %w", s.store.EndBatch(tx, walkErr))
	}

	retired, err := s.store.RemoveMissing(tx, root, scanTime)
	if err != nil {
		return s.store.EndBatch(tx, err)
	}

	if err := s.store.EndBatch(tx, nil); err != nil {
		return fmt.Errorf("failed to commit scan: %w", err)
	}

	result.Retired += int(retired)
	return nil
}

var errShuttingDown = errors.New("scanner shutting down")

// finalizeScan refreshes catalog stats and records the scan outcome.
func (s *Scanner) finalizeScan(startTime time.Time, result *Result) error {
	stats, err := s.store.CalculateStats(context.Background())
	if err != nil {
		return err
	}
	result.Total = stats.TotalImages

	s.scanMu.Lock()
	s.lastScanTime = time.Now()
	s.lastResult = *result
	s.scanMu.Unlock()

	stats.LastScanned = s.LastScanTime()
	stats.ScanDuration = time.Since(startTime).String()
	s.store.UpdateStats(stats)
	return nil
}

// tryStartScanning attempts to start a scan, returns false if one is
// already in progress.
func (s *Scanner) tryStartScanning() bool {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	if s.isScanning {
		return false
	}
	s.isScanning = true
	return true
}

func (s *Scanner) finishScanning() {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	s.isScanning = false
}

// LastScanTime returns the time of the last completed scan.
func (s *Scanner) LastScanTime() time.Time {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	return s.lastScanTime
}

func (s *Scanner) periodicScan() {
	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic rescan triggered")
			if _, err := s.Scan(); err != nil && !errors.Is(err, ErrScanInProgress) {
				logging.Error("Periodic rescan failed: %v", err)
			}
		case <-s.stopChan:
			return
		}
	}
}
