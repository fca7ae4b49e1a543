package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"StudyVault/internal/apperr"
	"StudyVault/internal/auth"
	"StudyVault/internal/blobstore"
	"StudyVault/internal/model"
	"StudyVault/internal/query"
	"StudyVault/internal/repo"

	"go.uber.org/zap"
)

// Authorizer — то, что сервису нужно от шлюза доступа.
type Authorizer interface {
	Login(password string) (auth.Token, error)
	Check(c *auth.Capability) error
}

// Upload — загружаемый файл.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// PDF — открытый на чтение документ заметки. Вызывающий закрывает Body.
type PDF struct {
	*blobstore.Object
	Filename string
}

// CatalogService — единая точка входа для всех операций каталога.
// Мутации требуют Capability; чтения доступны всем.
type CatalogService struct {
	notes      repo.NoteRepository
	blobs      blobstore.Store
	gate       Authorizer
	categories map[string]bool
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewCatalogService создаёт фасад. allowed — необязательный список допустимых категорий.
func NewCatalogService(notes repo.NoteRepository, blobs blobstore.Store, gate Authorizer, allowed []string, logger *zap.SugaredLogger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	var cats map[string]bool
	if len(allowed) > 0 {
		cats = make(map[string]bool, len(allowed))
		for _, c := range allowed {
			cats[c] = true
		}
	}
	return &CatalogService{
		notes:      notes,
		blobs:      blobs,
		gate:       gate,
		categories: cats,
		logger:     logger,
		now:        time.Now,
	}
}

// Login обменивает пароль администратора на токен.
func (s *CatalogService) Login(password string) (auth.Token, error) {
	return s.gate.Login(password)
}

// Categories — отсортированный список категорий живых заметок.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.notes.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []string{}
	}
	return cats, nil
}

// List возвращает отфильтрованный и отсортированный снимок каталога.
func (s *CatalogService) List(ctx context.Context, c query.Criteria) ([]model.Note, error) {
	all, err := s.notes.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return query.Apply(all, c), nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*model.Note, error) {
	return s.notes.GetByID(ctx, id)
}

func (s *CatalogService) GetByLink(ctx context.Context, categorySlug, slug string) (*model.Note, error) {
	return s.notes.GetBySlug(ctx, categorySlug, slug)
}

// Create сохраняет PDF и заметку. Снаружи операция атомарна:
// если строку вставить не удалось, блоб удаляется.
func (s *CatalogService) Create(ctx context.Context, c *auth.Capability, d repo.NoteDraft, file Upload) (*model.Note, error) {
	if err := s.gate.Check(c); err != nil {
		return nil, err
	}
	d.Category = strings.TrimSpace(d.Category)
	if strings.TrimSpace(d.Title) == "" {
		return nil, apperr.Validation("title is required")
	}
	if err := s.checkCategory(d.Category); err != nil {
		return nil, err
	}
	if file.Body == nil {
		return nil, apperr.Validation("file is required")
	}

	fileID, err := s.blobs.Put(ctx, file.Body, file.ContentType)
	if err != nil {
		return nil, err
	}
	d.PDFFileID = fileID
	d.PDFFilename = cleanFilename(file.Filename)

	n, err := s.notes.Insert(ctx, d)
	if err != nil {
		// компенсация; то, что не удалилось, уберёт SweepOrphans
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), fileID); derr != nil {
			s.logger.Warnw("failed to release blob after insert error", "file_id", fileID, "error", derr)
		}
		return nil, err
	}
	s.logger.Infow("note created", "id", n.ID, "category", n.CategorySlug, "slug", n.Slug, "file_id", fileID)
	return n, nil
}

// Update меняет title, description, category и order заметки.
func (s *CatalogService) Update(ctx context.Context, c *auth.Capability, id string, p repo.NotePatch) (*model.Note, error) {
	if err := s.gate.Check(c); err != nil {
		return nil, err
	}
	if p.Category != nil {
		if err := s.checkCategory(strings.TrimSpace(*p.Category)); err != nil {
			return nil, err
		}
	}
	n, err := s.notes.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("note updated", "id", n.ID, "category", n.CategorySlug, "slug", n.Slug)
	return n, nil
}

// Delete удаляет заметку и освобождает её PDF.
func (s *CatalogService) Delete(ctx context.Context, c *auth.Capability, id string) error {
	if err := s.gate.Check(c); err != nil {
		return err
	}
	n, err := s.notes.Delete(ctx, id)
	if err != nil {
		return err
	}
	// Заметки уже нет, поэтому блоб недостижим; ошибку оставляем сборщику.
	if err := s.blobs.Delete(context.WithoutCancel(ctx), n.PDFFileID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		s.logger.Warnw("failed to delete blob", "file_id", n.PDFFileID, "error", err)
	}
	s.logger.Infow("note deleted", "id", n.ID, "file_id", n.PDFFileID)
	return nil
}

// OpenPDF открывает документ живой заметки.
func (s *CatalogService) OpenPDF(ctx context.Context, fileID string) (*PDF, error) {
	n, err := s.notes.GetByFileID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	obj, err := s.blobs.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.logger.Errorw("note references missing blob", "id", n.ID, "file_id", fileID)
		}
		return nil, err
	}
	name := n.PDFFilename
	if name == "" {
		name = n.Slug + ".pdf"
	}
	return &PDF{Object: obj, Filename: name}, nil
}

func (s *CatalogService) checkCategory(category string) error {
	if category == "" {
		return apperr.Validation("category is required")
	}
	if s.categories != nil && !s.categories[category] {
		return apperr.Validation("unknown category %q", category)
	}
	return nil
}

// cleanFilename оставляет только имя файла без каталогов.
func cleanFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
