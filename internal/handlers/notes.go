package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"StudyVault/internal/apperr"
	"StudyVault/internal/config"
	"StudyVault/internal/middleware"
	"StudyVault/internal/query"
	"StudyVault/internal/repo"
	"StudyVault/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	// запас на текстовые поля формы сверх лимита PDF
	formOverhead  = 1 << 20
	formMemoryMax = 10 << 20
)

// NoteHandler обслуживает каталог заметок и выдачу PDF.
type NoteHandler struct {
	Catalog *service.CatalogService
	Logger  *zap.SugaredLogger
	Config  *config.Config
}

// NewNoteHandler создаёт хендлер заметок
func NewNoteHandler(catalog *service.CatalogService, logger *zap.SugaredLogger, cfg *config.Config) *NoteHandler {
	return &NoteHandler{Catalog: catalog, Logger: logger, Config: cfg}
}

func (h *NoteHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Catalog.Categories(r.Context())
	if err != nil {
		writeError(w, h.Logger, "Categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": cats})
}

// List — GET /notes?category=&sort_by=&search=
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sortBy, err := query.ParseSort(q.Get("sort_by"))
	if err != nil {
		writeError(w, h.Logger, "List", err)
		return
	}
	notes, err := h.Catalog.List(r.Context(), query.Criteria{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		SortBy:   sortBy,
	})
	if err != nil {
		writeError(w, h.Logger, "List", err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteList(notes, h.Config.PublicURL))
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, "Get", err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteResponse(n, h.Config.PublicURL))
}

func (h *NoteHandler) GetByLink(w http.ResponseWriter, r *http.Request) {
	categorySlug, err := pathParam(r, "categorySlug")
	if err != nil {
		writeError(w, h.Logger, "GetByLink", err)
		return
	}
	s, err := pathParam(r, "slug")
	if err != nil {
		writeError(w, h.Logger, "GetByLink", err)
		return
	}
	n, err := h.Catalog.GetByLink(r.Context(), categorySlug, s)
	if err != nil {
		writeError(w, h.Logger, "GetByLink", err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteResponse(n, h.Config.PublicURL))
}

// pathParam возвращает декодированный сегмент пути. chi маршрутизирует по RawPath,
// если он задан, и тогда параметры приходят в экранированном виде.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	u, err := url.PathUnescape(v)
	if err != nil {
		return "", apperr.Validation("invalid %s", key)
	}
	return u, nil
}

// Upload — POST /notes/upload, multipart: title, description, category, order, file
func (h *NoteHandler) Upload(w http.ResponseWriter, r *http.Request) {
	c, _ := middleware.CapabilityFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.Config.BlobMaxBytes()+formOverhead)
	if err := r.ParseMultipartForm(formMemoryMax); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, h.Logger, "Upload", err)
			return
		}
		h.Logger.Warnw("Upload: invalid multipart form", "error", err)
		writeError(w, h.Logger, "Upload", apperr.Validation("invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	draft := repo.NoteDraft{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
	}
	if v := strings.TrimSpace(r.FormValue("order")); v != "" {
		order, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, h.Logger, "Upload", apperr.Validation("order must be an integer"))
			return
		}
		draft.Order = order
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.Logger, "Upload", apperr.Validation("file is required"))
		return
	}
	defer file.Close()

	n, err := h.Catalog.Create(r.Context(), c, draft, service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		writeError(w, h.Logger, "Upload", err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoteResponse(n, h.Config.PublicURL))
}

// Update — PUT /notes/{id}
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, _ := middleware.CapabilityFromContext(r.Context())

	var req UpdateNoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, formOverhead)).Decode(&req); err != nil {
		h.Logger.Warnw("Update: invalid request body", "error", err)
		writeError(w, h.Logger, "Update", apperr.Validation("invalid request body"))
		return
	}
	n, err := h.Catalog.Update(r.Context(), c, chi.URLParam(r, "id"), repo.NotePatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Order:       req.Order,
	})
	if err != nil {
		writeError(w, h.Logger, "Update", err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteResponse(n, h.Config.PublicURL))
}

// Delete — DELETE /notes/{id}
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, _ := middleware.CapabilityFromContext(r.Context())
	if err := h.Catalog.Delete(r.Context(), c, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Logger, "Delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Note deleted successfully"})
}

// PDF — GET|HEAD /pdf/{fileID}; Range обрабатывает http.ServeContent.
func (h *NoteHandler) PDF(w http.ResponseWriter, r *http.Request) {
	pdf, err := h.Catalog.OpenPDF(r.Context(), chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, h.Logger, "PDF", err)
		return
	}
	defer pdf.Body.Close()

	w.Header().Set("Content-Type", pdf.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": pdf.Filename}))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, pdf.Filename, pdf.ModTime, pdf.Body)
}
