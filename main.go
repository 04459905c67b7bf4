package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"model-library/internal/archive"
	"model-library/internal/database"
	"model-library/internal/handlers"
	"model-library/internal/logging"
	"model-library/internal/metrics"
	"model-library/internal/middleware"
	"model-library/internal/preview"
	"model-library/internal/reconciler"
	"model-library/internal/startup"
	"model-library/internal/upload"
	"model-library/internal/workers"

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

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Initialize metrics
	metrics.InitializeMetrics()

	// Initialize core components
	previews := preview.NewCache(config.LibraryDir, config.PreviewCacheDir)
	scanPool := workers.NewPool("scan", workers.ForIO(8))
	archivePool := workers.NewPool("archive", workers.ForMixed(4))
	rec := reconciler.New(db, previews, config.LibraryDir, scanPool)
	streamer := archive.NewStreamer(config.LibraryDir, archivePool)
	receiver := upload.NewReceiver(config.LibraryDir, config.UploadCacheDir)

	// Run an initial catalog refresh in the background so the server is
	// responsive immediately after start.
	go func() {
		if _, err := rec.Refresh(context.Background()); err != nil {
			logging.Error("Initial library refresh failed: %v", err)
		}
	}()

	// Initialize handlers
	h := handlers.New(db, rec, streamer, receiver, config)

	// Setup router
	router := setupRouter(h, config)

	// Apply logging middleware, skipping static asset noise
	loggingConfig := middleware.DefaultLoggingConfig(config.AssetPrefix, config.CachePrefix)
	handler := middleware.Logger(loggingConfig)(router)

	// Apply metrics middleware
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)

	// Apply CORS last so preflights never reach the router
	handler = middleware.CORS()(handler)

	// WriteTimeout stays 0: archive downloads of large folders can run
	// for an arbitrarily long time.
	srv := &http.Server{
		Addr:         config.Address(),
		Handler:      handler,
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Expose Prometheus metrics on a separate listener
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:        config.Host + ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv)

	// Start server
	startup.LogServerStarted(config, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health and version routes
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/refresh", h.RefreshLibrary).Methods("POST")
	api.HandleFunc("/models/list", h.ListModels).Methods("GET")
	api.HandleFunc("/model/{slug}", h.GetModel).Methods("GET")
	// Model folders can be nested, so the folder variable spans path
	// segments; Resolve rejects anything escaping the library root.
	api.HandleFunc("/download/{folder:.+}", h.DownloadArchive).Methods("GET")
	api.HandleFunc("/upload", h.UploadModel).Methods("POST")
	api.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Raw library assets and generated previews
	r.PathPrefix(config.AssetPrefix + "/").Handler(
		http.StripPrefix(config.AssetPrefix+"/", http.FileServer(http.Dir(config.LibraryDir))))
	r.PathPrefix(config.CachePrefix + "/").Handler(
		http.StripPrefix(config.CachePrefix+"/", http.FileServer(http.Dir(config.PreviewCacheDir))))

	// Everything else is a 404
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})

	return r
}

func handleShutdown(srv *http.Server, metricsSrv *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
