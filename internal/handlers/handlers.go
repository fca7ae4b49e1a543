package handlers

import (
	"net/http"
	"strings"

	"StudyVault/internal/config"
	"StudyVault/internal/middleware"
	"StudyVault/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	catalog *service.CatalogService,
	gate middleware.Authorizer,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "Content-Length", "Content-Range", "Accept-Ranges"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithGzip)
	r.Use(middleware.WithAuth(gate))

	// Handlers
	noteHandler := NewNoteHandler(catalog, logger, config)
	authHandler := NewAuthHandler(catalog, logger, config)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/login", authHandler.Login)

	r.Get("/categories", noteHandler.Categories)
	r.Get("/notes", noteHandler.List)
	r.Get("/notes/by-link/{categorySlug}/{slug}", noteHandler.GetByLink)
	r.Get("/notes/{id}", noteHandler.Get)
	r.Get("/pdf/{fileID}", noteHandler.PDF)
	r.Head("/pdf/{fileID}", noteHandler.PDF)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCapability)
		r.Post("/notes/upload", noteHandler.Upload)
		r.Put("/notes/{id}", noteHandler.Update)
		r.Delete("/notes/{id}", noteHandler.Delete)
	})

	// Старый базовый путь /api — постоянный редирект на канонический маршрут
	r.Handle("/api", http.HandlerFunc(redirectLegacy))
	r.Handle("/api/*", http.HandlerFunc(redirectLegacy))

	return &Handler{Router: r}
}

func redirectLegacy(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimPrefix(r.URL.Path, "/api")
	if target == "" {
		target = "/"
	}
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusPermanentRedirect)
}
