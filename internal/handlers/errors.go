package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"StudyVault/internal/apperr"

	"go.uber.org/zap"
)

// statusFor переводит ошибку каталога в HTTP-статус.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrPayloadTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, apperr.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, apperr.ErrSlugConflict), errors.Is(err, apperr.ErrExhausted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает {"detail": ...}. Внутренние ошибки логируются, клиенту уходит общий текст.
func writeError(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error) {
	status := statusFor(err)
	detail := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		logger.Errorw(op+": internal error", "error", err)
		detail = "internal server error"
	case status == http.StatusRequestEntityTooLarge:
		detail = apperr.ErrPayloadTooLarge.Error()
	default:
		logger.Debugw(op+": request rejected", "status", status, "error", err)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="studyvault"`)
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
