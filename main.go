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

	"github.com/gofrs/flock"

	"github.com/byteilm/media-backend/internal/api"
	"github.com/byteilm/media-backend/internal/config"
	"github.com/byteilm/media-backend/internal/db"
	"github.com/byteilm/media-backend/internal/job"
	"github.com/byteilm/media-backend/internal/transcribe"
	"github.com/byteilm/media-backend/internal/translate"
	"github.com/byteilm/media-backend/internal/upload"
)

func main() {
	cfg := config.Load()

	// Ensure data directories exist
	for _, dir := range []string{cfg.DataPath, cfg.AssetPath, cfg.StagingPath, cfg.CaptionPath} {
		os.MkdirAll(dir, 0755)
	}

	// Only one process may own the staging area. A second instance sweeping
	// the same chunk directories would delete sessions out from under us.
	lock := flock.New(filepath.Join(cfg.StagingPath, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("Failed to acquire staging lock: %v", err)
	}
	if !locked {
		log.Fatalf("Staging directory %s is in use by another instance", cfg.StagingPath)
	}
	defer lock.Unlock()

	// Initialize database
	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Upload session store
	store, err := upload.NewStore(database.DB(), cfg.StagingPath, cfg.AssetPath, cfg.ChunkSize, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("Failed to initialize upload store: %v", err)
	}
	defer store.Close()

	// Transcription providers. Each is optional: the client routes around
	// whichever credentials are missing.
	var syncProv, resumableProv, batchProv transcribe.Provider
	if cfg.GoogleCredsPath != "" {
		creds, err := os.ReadFile(cfg.GoogleCredsPath)
		if err != nil {
			log.Fatalf("Failed to read credentials %s: %v", cfg.GoogleCredsPath, err)
		}
		tokens, err := transcribe.NewTokenSource(creds)
		if err != nil {
			log.Fatalf("Failed to parse credentials: %v", err)
		}
		syncProv = transcribe.NewSyncProvider(tokens)
		batchProv = transcribe.NewBatchProvider(tokens, transcribe.DefaultPollConfig())
		log.Printf("Speech recognizers enabled (sync + batch)")
	} else {
		log.Printf("GOOGLE_CREDENTIALS not set, speech recognizers disabled")
	}

	var engine translate.Engine
	if cfg.GeminiAPIKey != "" {
		resumableProv = transcribe.NewResumableProvider(cfg.GeminiAPIKey, "", transcribe.DefaultPollConfig())
		engine = translate.NewGeminiEngine(cfg.GeminiAPIKey, "")
		log.Printf("Gemini transcription and translation enabled")
	} else {
		log.Printf("GEMINI_API_KEY not set, long-form transcription and translation disabled")
	}

	client := transcribe.NewClient(syncProv, resumableProv, batchProv)

	// Job queue and background services
	queue := job.NewQueue(database.DB())
	defer queue.Stop()

	chain := func(assetRef string, params job.TranslateParams) {
		if _, err := queue.Enqueue(job.TypeTranslate, assetRef, params); err != nil {
			log.Printf("[transcribe] failed to chain translation for %s: %v", assetRef, err)
		}
	}
	transcribeService := transcribe.NewService(client, cfg.AssetPath, cfg.CaptionPath, chain)
	queue.RegisterHandler(job.TypeTranscribe, transcribeService.HandleJob)

	if engine != nil {
		translateService := translate.NewService(engine, cfg.CaptionPath)
		queue.RegisterHandler(job.TypeTranslate, translateService.HandleJob)
	}

	// Create router
	router := api.NewRouter(cfg, store, client, engine, queue)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: router}

	// Graceful shutdown: stop accepting requests, then let deferred
	// cleanup stop the queue and the upload sweeper.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("Starting server on %s", addr)
	log.Printf("Asset path: %s", cfg.AssetPath)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
