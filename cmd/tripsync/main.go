package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fernhollow/tripsync/internal/archive"
	"github.com/fernhollow/tripsync/internal/database"
	"github.com/fernhollow/tripsync/internal/localcache"
	"github.com/fernhollow/tripsync/internal/logging"
	"github.com/fernhollow/tripsync/internal/server"
	"github.com/fernhollow/tripsync/internal/store"
)

func main() {
	port := os.Getenv("TRIPSYNC_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("TRIPSYNC_DB_PATH")
	if dbPath == "" {
		dbPath = "tripsync.db"
	}

	logger := logging.Setup(os.Getenv("TRIPSYNC_LOG_LEVEL"), os.Getenv("TRIPSYNC_LOG_FORMAT"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// The sealing key lives next to the database file.
	sealer, err := localcache.NewSealer(filepath.Join(filepath.Dir(dbPath), "tripsync.key"))
	if err != nil {
		log.Fatalf("failed to load sealing key: %v", err)
	}
	settings := localcache.NewSettingsStore(db, sealer)

	cfg := server.Config{
		RemoteURL:  os.Getenv("TRIPSYNC_REMOTE_URL"),
		MealgenURL: os.Getenv("TRIPSYNC_MEALGEN_URL"),
		Archive: archive.S3Config{
			Bucket:    os.Getenv("TRIPSYNC_S3_BUCKET"),
			Region:    os.Getenv("TRIPSYNC_S3_REGION"),
			Endpoint:  os.Getenv("TRIPSYNC_S3_ENDPOINT"),
			AccessKey: os.Getenv("TRIPSYNC_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("TRIPSYNC_S3_SECRET_KEY"),
		},
	}

	st := store.New(store.DefaultSnapshot())
	srv := server.New(db, st, settings, cfg, logger)

	// First fetch. A failure is not fatal: the cached snapshot or the
	// defaults are already installed, and the sync banner shows the error.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	if err := srv.Loader().Load(loadCtx); err != nil {
		logger.Warn("initial load failed", "error", err)
		srv.Persister().ReportSyncError(err)
	}
	cancelLoad()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Tripsync running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}

	// Push any edits still inside the quiet period before exiting.
	srv.Persister().FlushNow()
	srv.Persister().Stop()
}
