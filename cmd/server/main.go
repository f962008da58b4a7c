package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"waveshelf/internal/blob"
	"waveshelf/internal/config"
	"waveshelf/internal/fetch"
	"waveshelf/internal/gen"
	"waveshelf/internal/httpapp"
	"waveshelf/internal/library"
	"waveshelf/internal/logger"
	"waveshelf/internal/store"
	"waveshelf/internal/worker"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize blob storage and the lease tracker
	blobs, err := blob.NewStore(cfg.BlobDir)
	if err != nil {
		appLogger.Error("Failed to init blob store", "error", err)
		os.Exit(1)
	}
	tracker := blob.NewTracker(blobs)

	// Initialize remote clients
	fetcher := fetch.New(cfg.ResolverURL)
	genSvc := gen.NewHTTPService(cfg.AudioGenURL, cfg.MetaGenURL, cfg.CoverGenURL)

	// Initialize library services
	importer := library.NewImporter(db, blobs, fetcher, appLogger)
	graph := library.NewGraph(db, tracker, appLogger)
	projector := library.NewProjector(db, appLogger)

	// Drop blobs no record references anymore, e.g. after a crash
	if err := graph.SweepOrphanBlobs(blobs); err != nil {
		appLogger.Warn("Orphan blob sweep failed", "error", err)
	}

	// Initialize Worker
	w := worker.New(db, importer, fetcher, genSvc, appLogger)
	w.Start()
	defer w.Stop()

	// Initialize Services
	jobService := worker.NewJobService(db, appLogger)

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Routes
	h := httpapp.NewHandler(importer, graph, projector, jobService, blobs, tracker, db, appLogger)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
