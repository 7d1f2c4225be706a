package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"picture-frame/internal/handlers"
	"picture-frame/internal/logging"
	"picture-frame/internal/middleware"
	"picture-frame/internal/rotation"
	"picture-frame/internal/scanner"
	"picture-frame/internal/startup"
	"picture-frame/internal/store"
	"picture-frame/internal/watcher"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize catalog store
	dbStart := time.Now()
	st, err := store.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize catalog store: %v", err)
	}
	defer st.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Initialize rotation engine
	eng := rotation.New(st)

	// Initialize scanner
	startup.LogScannerInit(config.ScanInterval, len(config.MediaRoots))
	sc := scanner.New(st, config.MediaRoots, config.AllowedExtensions, config.ScanInterval)

	// Start scanner in background (non-blocking)
	sc.Start()
	startup.LogScannerStarted()

	// Optionally watch media roots for changes
	startup.LogWatcherInit(config.WatchEnabled)
	var w *watcher.Watcher
	if config.WatchEnabled {
		w, err = watcher.New(config.MediaRoots, sc)
		if err != nil {
			logging.Warn("Filesystem watcher unavailable: %v", err)
		} else {
			w.Start()
		}
	}

	// Initialize handlers
	h := handlers.New(eng, sc, st)

	// Setup router
	router := setupRouter(h, config.MetricsEnabled)

	// Apply metrics middleware
	metricsHandler := middleware.Metrics(middleware.DefaultMetricsConfig())(router)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(metricsHandler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, sc, w)

	// Start server
	startup.LogServerStarted(config.Port, config.MetricsEnabled, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	// Frame API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/next-image", h.NextImage).Methods("GET")
	api.HandleFunc("/albums", h.GetAlbums).Methods("GET")
	api.HandleFunc("/album", h.GetAlbum).Methods("GET")
	api.HandleFunc("/album", h.SetAlbum).Methods("PUT")
	api.HandleFunc("/scan", h.ScanMedia).Methods("POST")
	api.HandleFunc("/reset-history", h.ResetHistory).Methods("POST")

	return r
}

func handleShutdown(srv *http.Server, sc *scanner.Scanner, w *watcher.Watcher) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if w != nil {
		startup.LogShutdownStep("Stopping filesystem watcher")
		w.Stop()
		startup.LogShutdownStepComplete("Filesystem watcher stopped")
	}

	startup.LogShutdownStep("Stopping scanner")
	sc.Stop()
	startup.LogShutdownStepComplete("Scanner stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
