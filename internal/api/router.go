package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/byteilm/media-backend/internal/api/handlers"
	"github.com/byteilm/media-backend/internal/api/middleware"
	"github.com/byteilm/media-backend/internal/config"
	"github.com/byteilm/media-backend/internal/job"
	"github.com/byteilm/media-backend/internal/transcribe"
	"github.com/byteilm/media-backend/internal/translate"
	"github.com/byteilm/media-backend/internal/upload"
)

const jsonBodyLimit = 10 << 20

func NewRouter(cfg *config.Config, store *upload.Store, client *transcribe.Client, engine translate.Engine, queue *job.Queue) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))
	r.Use(middleware.CallerContext(cfg.CallerTokenSecret))

	limiter := middleware.NewRateLimiter(60, time.Minute)

	// Handlers
	uploadHandler := handlers.NewUploadHandler(store)
	transcribeHandler := handlers.NewTranscribeHandler(client, engine, queue, cfg.AssetPath, cfg.MaxAudioSeconds)
	captionHandler := handlers.NewCaptionHandler(cfg.CaptionPath)
	jobHandler := handlers.NewJobHandler(queue)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		// Chunked uploads. Chunk bodies get their own limit, a little above
		// the configured chunk size since the final chunk may be short.
		r.Route("/upload", func(r chi.Router) {
			r.Use(limiter.Handler)
			r.With(middleware.MaxBodySize(jsonBodyLimit)).Post("/start", uploadHandler.Start)
			r.With(middleware.MaxBodySize(store.ChunkSize() + 64<<10)).Put("/{id}/chunk/{index}", uploadHandler.PutChunk)
			r.Post("/{id}/complete", uploadHandler.Complete)
			r.Get("/{id}/status", uploadHandler.Status)
			r.Delete("/{id}", uploadHandler.Cancel)
		})

		// Transcription and translation
		r.Group(func(r chi.Router) {
			r.Use(limiter.Handler)
			r.Use(middleware.MaxBodySize(jsonBodyLimit))
			r.Post("/transcribe/sync", transcribeHandler.Sync)
			r.Post("/transcribe", transcribeHandler.Start)
			r.Post("/translate", transcribeHandler.Translate)
			r.Post("/language/detect", transcribeHandler.DetectLanguage)
		})

		// Caption artifacts and conversion
		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodySize(jsonBodyLimit))
			r.Post("/caption/segment", captionHandler.Segment)
			r.Post("/caption/convert", captionHandler.Convert)
			r.Post("/caption/validate", captionHandler.ValidateSRT)
		})
		r.Get("/caption/list/{asset}", captionHandler.List)
		r.Get("/caption/content/{asset}/{name}", captionHandler.Content)

		// Jobs
		r.Get("/jobs", jobHandler.ListJobs)
		r.Get("/jobs/{id}", jobHandler.GetJob)
		r.Delete("/jobs/{id}", jobHandler.CancelJob)
		r.Post("/jobs/{id}/retry", jobHandler.RetryJob)
	})

	return r
}
