package handlers

import (
	"encoding/json"
	"net/http"

	"StudyVault/internal/apperr"
	"StudyVault/internal/config"
	"StudyVault/internal/middleware"
	"StudyVault/internal/service"

	"go.uber.org/zap"
)

// AuthHandler выдаёт токен администратора.
type AuthHandler struct {
	Catalog *service.CatalogService
	Logger  *zap.SugaredLogger
	Config  *config.Config
}

func NewAuthHandler(catalog *service.CatalogService, logger *zap.SugaredLogger, cfg *config.Config) *AuthHandler {
	return &AuthHandler{Catalog: catalog, Logger: logger, Config: cfg}
}

// Login обменивает пароль на bearer-токен и дублирует его в cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, h.Logger, "Login", apperr.Validation("invalid request body"))
		return
	}
	tok, err := h.Catalog.Login(req.Password)
	if err != nil {
		h.Logger.Warnw("Login: rejected", "remote", r.RemoteAddr)
		writeError(w, h.Logger, "Login", err)
		return
	}
	middleware.SetLoginCookie(w, tok, h.Config.EnableHTTPS)
	writeJSON(w, http.StatusOK, tok)
}
