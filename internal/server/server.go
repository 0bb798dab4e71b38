package server

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	v1 "github.com/dsa-patterns/dsa-api/internal/api/v1"
	"github.com/dsa-patterns/dsa-api/internal/config"
	"github.com/dsa-patterns/dsa-api/internal/mail"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type Server struct {
	cfg    *config.Config
	db     *store.Store
	log    *zap.Logger
	mailer mail.Mailer
}

func NewServer(cfg *config.Config, db *store.Store, log *zap.Logger, mailer mail.Mailer) *Server {
	return &Server{cfg: cfg, db: db, log: log, mailer: mailer}
}

// Storage picks R2 when its credentials are configured and local disk otherwise.
func Storage(cfg *config.Config) utils.Storage {
	if cfg.R2AccessKeyID != "" && cfg.R2SecretAccessKey != "" && cfg.R2Endpoint != "" && cfg.R2BucketName != "" {
		return utils.NewR2Storage(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2Endpoint, cfg.R2BucketName)
	}
	return utils.NewFileStorage(cfg.UploadDir, cfg.UploadBaseURL)
}

// Handler builds the full router; split from NewHTTPServer so tests can drive it with httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	storage := Storage(s.cfg)
	api := v1.NewAPI(s.cfg, s.db, s.log, s.mailer, storage)
	r.Mount("/api/v1", api.Routes())

	if _, ok := storage.(*utils.FileStorage); ok {
		if err := os.MkdirAll(s.cfg.UploadDir, 0755); err != nil {
			s.log.Warn("create upload dir", zap.String("dir", s.cfg.UploadDir), zap.Error(err))
		}
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.UploadDir)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}
	return r
}

func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.BindAddr,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
