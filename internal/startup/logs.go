package startup

import (
	"time"

	"picture-frame/internal/logging"
)

// LogDatabaseInit logs catalog database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CATALOG INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Catalog database initialized in %v", duration)
}

// LogScannerInit logs scanner initialization
func LogScannerInit(interval time.Duration, rootCount int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SCANNER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Media roots:   %d", rootCount)
	if interval > 0 {
		logging.Info("  Scan interval: %v", interval)
	} else {
		logging.Info("  Scan interval: disabled (manual and watch-triggered scans only)")
	}
	logging.Info("  Starting scanner...")
}

// LogScannerStarted logs successful scanner start
func LogScannerStarted() {
	logging.Info("  [OK] Scanner started")
}

// LogWatcherInit logs filesystem watcher initialization
func LogWatcherInit(enabled bool) {
	if !enabled {
		logging.Info("  Filesystem watching disabled (set WATCH_ENABLED=true to enable)")
		return
	}
	logging.Info("  [OK] Filesystem watcher started")
}

// LogServerStarted logs successful server start
func LogServerStarted(port string, metricsEnabled bool, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time: %v", startupDuration)
	logging.Info("")
	logging.Info("  Application:  http://localhost:%s", port)
	if metricsEnabled {
		logging.Info("  Metrics:      http://localhost:%s/metrics", port)
	} else {
		logging.Info("  Metrics:      DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}
