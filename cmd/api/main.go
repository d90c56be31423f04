package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/krampattern/kram-api/internal/archive"
	"github.com/krampattern/kram-api/internal/config"
	"github.com/krampattern/kram-api/internal/gallery"
	"github.com/krampattern/kram-api/internal/generator"
	"github.com/krampattern/kram-api/internal/handlers"
	"github.com/krampattern/kram-api/internal/kramai"
	"github.com/krampattern/kram-api/internal/logging"
	"github.com/krampattern/kram-api/internal/metrics"
	kmw "github.com/krampattern/kram-api/internal/middleware"
	"github.com/krampattern/kram-api/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config failed")
	}

	logging.Setup(cfg.Production())
	metrics.Init()

	// Database connection
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get sql db")
	}
	sqlDB.SetMaxOpenConns(32)
	sqlDB.SetMaxIdleConns(8)

	// Auto migrate models
	if err := db.AutoMigrate(&models.Tag{}, &models.History{}, &models.OutputGenerate{}); err != nil {
		log.Fatal().Err(err).Msg("failed to auto migrate models")
	}

	aiClient := kramai.New(cfg.OpenAIKey, cfg.OpenAIBaseURL)

	genOpts := []generator.Option{generator.WithDebug(!cfg.Production())}
	if cfg.ArchiveEnabled() {
		s3Client, err := archive.NewS3Client(context.Background(), cfg.Archive)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build archive client")
		}
		genOpts = append(genOpts, generator.WithArchiver(
			archive.New(s3Client, cfg.Archive.BucketName, cfg.Archive.PublicURL),
		))
	}
	gen := generator.New(db, aiClient, genOpts...)
	store := gallery.NewStore(db)

	// Chi
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(kmw.RequestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := sqlDB.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1/kram", func(r chi.Router) {
		r.Get("/tags", func(w http.ResponseWriter, r *http.Request) {
			handlers.ListTags(w, r, db)
		})
		r.With(kmw.AdminKey(cfg.AdminKey)).Post("/tags", func(w http.ResponseWriter, r *http.Request) {
			handlers.CreateTag(w, r, db)
		})

		r.With(httprate.Limit(
			cfg.GenerateRateLimit,
			1*time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		)).Post("/generate/kram-pattern", func(w http.ResponseWriter, r *http.Request) {
			handlers.GenerateKramPattern(w, r, gen)
		})

		r.Get("/gallery", func(w http.ResponseWriter, r *http.Request) {
			handlers.ListGallery(w, r, store)
		})
		r.Get("/gallery/{id}", func(w http.ResponseWriter, r *http.Request) {
			handlers.GetGalleryItem(w, r, store)
		})
	})

	log.Info().Str("address", cfg.Address).Msg("starting kram api")
	if err := http.ListenAndServe(cfg.Address, r); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}
