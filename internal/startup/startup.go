package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"picture-frame/internal/logging"
	"picture-frame/internal/mediatypes"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration
type Config struct {
	MediaRoots        []string
	DatabaseDir       string
	Port              string
	ScanInterval      time.Duration
	AllowedExtensions mediatypes.ExtensionSet
	WatchEnabled      bool
	MetricsEnabled    bool
	LogHealthChecks   bool

	// Derived paths
	DatabasePath string
}

// LoadConfig loads and validates configuration from environment
// variables. A .env file in the working directory is loaded first if
// present; real environment variables win over it.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Info("Loaded configuration overrides from .env")
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	mediaRoots := getEnvList("MEDIA_ROOTS", "/media")
	databaseDir := getEnv("DATABASE_DIR", "/database")
	port := getEnv("PORT", "8080")
	scanIntervalStr := getEnv("SCAN_INTERVAL", "5m")
	extensionsStr := getEnv("ALLOWED_EXTENSIONS", "")
	watchEnabled := getEnvBool("WATCH_ENABLED", true)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)

	extensions := mediatypes.DefaultExtensions()
	if extensionsStr != "" {
		extensions = mediatypes.ParseExtensions(extensionsStr)
	}

	logging.Info("  MEDIA_ROOTS:         %s", strings.Join(mediaRoots, ", "))
	logging.Info("  DATABASE_DIR:        %s", databaseDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  SCAN_INTERVAL:       %s", scanIntervalStr)
	logging.Info("  ALLOWED_EXTENSIONS:  %s", strings.Join(extensions.List(), ", "))
	logging.Info("  WATCH_ENABLED:       %v", watchEnabled)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	scanInterval, err := time.ParseDuration(scanIntervalStr)
	if err != nil {
		logging.Warn("  Invalid SCAN_INTERVAL, using default: 5m")
		scanInterval = 5 * time.Minute
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	for i, root := range mediaRoots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve media root %s: %w", root, err)
		}
		mediaRoots[i] = abs
		if _, err := os.Stat(abs); err != nil {
			// Missing roots are tolerated; the scanner skips them until
			// they appear (e.g. a network mount coming up late).
			logging.Warn("  Media root unavailable: %s (%v)", abs, err)
		} else {
			logging.Info("  Media root: %s", abs)
		}
	}

	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory: %s", databaseDir)

	if err := ensureDirectory(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable: %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	return &Config{
		MediaRoots:        mediaRoots,
		DatabaseDir:       databaseDir,
		Port:              port,
		ScanInterval:      scanInterval,
		AllowedExtensions: extensions,
		WatchEnabled:      watchEnabled,
		MetricsEnabled:    metricsEnabled,
		LogHealthChecks:   logHealthChecks,
		DatabasePath:      filepath.Join(databaseDir, "picture-frame.db"),
	}, nil
}

func ensureDirectory(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.MkdirAll(path, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists but is not a directory", path)
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("  failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(os.Getenv(key))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvList splits a comma-separated environment variable into a list,
// trimming whitespace and dropping empty entries.
func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func printBanner() {
	banner := `
------------------------------------------------------------
    ____  _      __                    ______
   / __ \(_)____/ /___  __________    / ____/________ _____ ___  ___
  / /_/ / / ___/ __/ / / / ___/ _ \  / /_  / ___/ __ '/ __ '__ \/ _ \
 / ____/ / /__/ /_/ /_/ / /  /  __/ / __/ / /  / /_/ / / / / / /  __/
/_/   /_/\___/\__/\__,_/_/   \___/ /_/   /_/   \__,_/_/ /_/ /_/\___/

------------------------------------------------------------`
	logging.Printf("%s", banner)
}

func logSystemInfo() {
	logging.Info("Version: %s (commit %s, built %s)", Version, Commit, BuildTime)
	logging.Info("Runtime: %s on %s/%s, %d CPU(s)", GoVersion, runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	logging.Info("")
}
