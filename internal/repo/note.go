package repo

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"StudyVault/internal/apperr"
	"StudyVault/internal/model"
	"StudyVault/internal/slug"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SlugPolicy определяет, что происходит со slug при смене заголовка или категории.
type SlugPolicy string

const (
	// SlugFrozen — slug фиксируется при создании; меняется только при коллизии в новой категории.
	SlugFrozen SlugPolicy = "frozen"
	// SlugRegenerate — slug пересчитывается из нового заголовка.
	SlugRegenerate SlugPolicy = "regenerate"
)

const (
	defaultSlugAttempts = 10
	lockStripes         = 64
)

// NoteDraft — данные для создания заметки.
type NoteDraft struct {
	Title       string
	Description string
	Category    string
	PDFFileID   string
	PDFFilename string
	Order       int
}

// NotePatch — частичное обновление; nil означает "не менять".
type NotePatch struct {
	Title       *string
	Description *string
	Category    *string
	Order       *int
}

// NoteRepository определяет контракт хранилища каталога для слоя сервиса.
type NoteRepository interface {
	// Insert создаёт заметку, подбирая свободный slug внутри категории.
	Insert(ctx context.Context, d NoteDraft) (*model.Note, error)
	GetByID(ctx context.Context, id string) (*model.Note, error)
	// GetBySlug ищет живую заметку по человекочитаемой ссылке.
	GetBySlug(ctx context.Context, categorySlug, slug string) (*model.Note, error)
	GetByFileID(ctx context.Context, fileID string) (*model.Note, error)
	// Update никогда не меняет id, pdf_file_id и upload_date.
	Update(ctx context.Context, id string, p NotePatch) (*model.Note, error)
	// Delete удаляет строку и возвращает удалённую заметку (для освобождения блоба).
	Delete(ctx context.Context, id string) (*model.Note, error)
	// ListAll — снимок всех живых заметок, без порядка.
	ListAll(ctx context.Context) ([]model.Note, error)
	// Categories — различные категории живых заметок.
	Categories(ctx context.Context) ([]string, error)
	FileIDExists(ctx context.Context, fileID string) (bool, error)
}

// Options настраивает NoteRepository.
type Options struct {
	SlugPolicy      SlugPolicy
	MaxSlugAttempts int
	Now             func() time.Time
}

type noteRepo struct {
	db    *gorm.DB
	opts  Options
	locks [lockStripes]sync.Mutex
}

// NewNoteRepository создаёт реализацию репозитория для Note.
func NewNoteRepository(db *gorm.DB, opts Options) NoteRepository {
	if opts.SlugPolicy != SlugRegenerate {
		opts.SlugPolicy = SlugFrozen
	}
	if opts.MaxSlugAttempts <= 0 {
		opts.MaxSlugAttempts = defaultSlugAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &noteRepo{db: db, opts: opts}
}

// lockFor — мьютекс полосы для id: записи одного id сериализуются, разных — нет.
func (r *noteRepo) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &r.locks[h.Sum32()%lockStripes]
}

func (r *noteRepo) Insert(ctx context.Context, d NoteDraft) (*model.Note, error) {
	// Заголовок и описание хранятся как прислал клиент; категория — ключ каталога и нормализуется.
	category := strings.TrimSpace(d.Category)
	switch {
	case strings.TrimSpace(d.Title) == "":
		return nil, apperr.Validation("title is required")
	case category == "":
		return nil, apperr.Validation("category is required")
	case d.PDFFileID == "":
		return nil, apperr.Validation("file is required")
	}

	n := &model.Note{
		ID:           uuid.NewString(),
		Title:        d.Title,
		Description:  d.Description,
		Category:     category,
		CategorySlug: slug.Category(category),
		PDFFileID:    d.PDFFileID,
		PDFFilename:  d.PDFFilename,
		Order:        d.Order,
		UploadDate:   r.opts.Now().UTC(),
	}
	base := slug.Make(d.Title)

	// Уникальность гарантирует индекс idx_notes_link: при гонке INSERT падает,
	// перечитываем занятые slug и пробуем следующий вариант.
	for attempt := 0; attempt < r.opts.MaxSlugAttempts; attempt++ {
		db := r.db.WithContext(ctx)
		taken, err := takenSlugs(db, n.CategorySlug, base, n.ID)
		if err != nil {
			return nil, err
		}
		n.Slug = slug.Pick(base, taken)

		err = db.Create(n).Error
		if err == nil {
			return n, nil
		}
		if !isLinkConflict(err) {
			return nil, apperr.Storage("insert note", err)
		}
	}
	return nil, exhausted(n.CategorySlug, base)
}

func (r *noteRepo) GetByID(ctx context.Context, id string) (*model.Note, error) {
	return r.first(ctx, "note "+id, "id = ?", id)
}

func (r *noteRepo) GetBySlug(ctx context.Context, categorySlug, s string) (*model.Note, error) {
	cs := slug.Category(categorySlug)
	s = strings.ToLower(strings.TrimSpace(s))
	return r.first(ctx, "note "+cs+"/"+s, "category_slug = ? AND slug = ?", cs, s)
}

func (r *noteRepo) GetByFileID(ctx context.Context, fileID string) (*model.Note, error) {
	return r.first(ctx, "file "+fileID, "pdf_file_id = ?", fileID)
}

func (r *noteRepo) first(ctx context.Context, what string, query string, args ...any) (*model.Note, error) {
	var n model.Note
	err := r.db.WithContext(ctx).Where(query, args...).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Storage("select note", err)
	}
	return &n, nil
}

func (r *noteRepo) Update(ctx context.Context, id string, p NotePatch) (*model.Note, error) {
	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	var base string
	for attempt := 0; attempt < r.opts.MaxSlugAttempts; attempt++ {
		var updated model.Note
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var n model.Note
			if err := r.forUpdate(tx).Where("id = ?", id).First(&n).Error; err != nil {
				return err
			}
			titleChanged, categoryChanged, err := applyPatch(&n, p)
			if err != nil {
				return err
			}

			regenerate := r.opts.SlugPolicy == SlugRegenerate && (titleChanged || categoryChanged)
			if regenerate || categoryChanged {
				base = n.Slug
				if regenerate {
					base = slug.Make(n.Title)
				}
				taken, err := takenSlugs(tx, n.CategorySlug, base, n.ID)
				if err != nil {
					return err
				}
				n.Slug = slug.Pick(base, taken)
			}

			err = tx.Model(&model.Note{}).Where("id = ?", id).Updates(map[string]any{
				"title":         n.Title,
				"description":   n.Description,
				"category":      n.Category,
				"category_slug": n.CategorySlug,
				"slug":          n.Slug,
				"sort_order":    n.Order,
			}).Error
			if err != nil {
				return err
			}
			updated = n
			return nil
		})

		switch {
		case err == nil:
			return &updated, nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
		case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrStorage):
			return nil, err
		case isLinkConflict(err):
			continue
		default:
			return nil, apperr.Storage("update note", err)
		}
	}
	return nil, exhausted(id, base)
}

func (r *noteRepo) Delete(ctx context.Context, id string) (*model.Note, error) {
	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	var n model.Note
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.forUpdate(tx).Where("id = ?", id).First(&n).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Note{}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Storage("delete note", err)
	}
	return &n, nil
}

func (r *noteRepo) ListAll(ctx context.Context) ([]model.Note, error) {
	var notes []model.Note
	if err := r.db.WithContext(ctx).Find(&notes).Error; err != nil {
		return nil, apperr.Storage("list notes", err)
	}
	return notes, nil
}

func (r *noteRepo) Categories(ctx context.Context) ([]string, error) {
	var cats []string
	err := r.db.WithContext(ctx).
		Model(&model.Note{}).
		Distinct("category").
		Order("category").
		Pluck("category", &cats).Error
	if err != nil {
		return nil, apperr.Storage("list categories", err)
	}
	return cats, nil
}

func (r *noteRepo) FileIDExists(ctx context.Context, fileID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Note{}).Where("pdf_file_id = ?", fileID).Count(&count).Error
	if err != nil {
		return false, apperr.Storage("count notes", err)
	}
	return count > 0, nil
}

// forUpdate добавляет SELECT ... FOR UPDATE там, где диалект его поддерживает.
// В SQLite транзакции и так берут write-lock сразу (_txlock=immediate).
func (r *noteRepo) forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// applyPatch применяет патч и сообщает, изменились ли заголовок и категория.
func applyPatch(n *model.Note, p NotePatch) (titleChanged, categoryChanged bool, err error) {
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return false, false, apperr.Validation("title must not be empty")
		}
		titleChanged = *p.Title != n.Title
		n.Title = *p.Title
	}
	if p.Description != nil {
		n.Description = *p.Description
	}
	if p.Category != nil {
		category := strings.TrimSpace(*p.Category)
		if category == "" {
			return false, false, apperr.Validation("category must not be empty")
		}
		newSlug := slug.Category(category)
		categoryChanged = newSlug != n.CategorySlug
		n.Category = category
		n.CategorySlug = newSlug
	}
	if p.Order != nil {
		n.Order = *p.Order
	}
	return titleChanged, categoryChanged, nil
}

// takenSlugs возвращает slug-и категории, которые конфликтуют с base или его вариантами.
func takenSlugs(db *gorm.DB, categorySlug, base, exceptID string) (map[string]bool, error) {
	var slugs []string
	err := db.Model(&model.Note{}).
		Where("category_slug = ? AND id <> ? AND (slug = ? OR slug LIKE ?)", categorySlug, exceptID, base, base+"-%").
		Pluck("slug", &slugs).Error
	if err != nil {
		return nil, apperr.Storage("select slugs", err)
	}
	taken := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		taken[s] = true
	}
	return taken, nil
}

func exhausted(scope, base string) error {
	return fmt.Errorf("%w: %s/%s: %w", apperr.ErrExhausted, scope, base, apperr.ErrSlugConflict)
}
