package repo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"StudyVault/internal/apperr"
	"StudyVault/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newRepo(t *testing.T, policy SlugPolicy) (NoteRepository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewNoteRepository(db, Options{SlugPolicy: policy, Now: func() time.Time { return fixedNow }}), db
}

func draft(title, category string) NoteDraft {
	return NoteDraft{
		Title:       title,
		Description: "desc of " + title,
		Category:    category,
		PDFFileID:   uuid.NewString(),
		PDFFilename: "file.pdf",
	}
}

func ptr[T any](v T) *T { return &v }

func TestNoteRepository_InsertAndGet(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	d := draft("  Linear Algebra Basics ", "Computer Science")
	d.Order = 3
	n, err := r.Insert(ctx, d)
	require.NoError(t, err)

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, d.Title, n.Title)
	assert.Equal(t, "computer-science", n.CategorySlug)
	assert.Equal(t, "linear-algebra-basics", n.Slug)
	assert.Equal(t, fixedNow, n.UploadDate)

	got, err := r.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Title, got.Title)
	assert.Equal(t, d.Description, got.Description)
	assert.Equal(t, d.Category, got.Category)
	assert.Equal(t, d.PDFFileID, got.PDFFileID)
	assert.Equal(t, d.PDFFilename, got.PDFFilename)
	assert.Equal(t, 3, got.Order)
	assert.True(t, fixedNow.Equal(got.UploadDate), "upload date: %s", got.UploadDate)

	byLink, err := r.GetBySlug(ctx, "computer-science", "linear-algebra-basics")
	require.NoError(t, err)
	assert.Equal(t, n.ID, byLink.ID)

	byFile, err := r.GetByFileID(ctx, d.PDFFileID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, byFile.ID)
}

// Заголовок и описание возвращаются байт в байт, включая краевые пробелы и переводы строк.
func TestNoteRepository_InsertKeepsTextVerbatim(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	d := draft(" Vectors\t", "Math")
	d.Description = "  Line one\n\n  indented code\n"
	n, err := r.Insert(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "vectors", n.Slug)

	got, err := r.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Title, got.Title)
	assert.Equal(t, d.Description, got.Description)

	desc := "\n trailing \n"
	updated, err := r.Update(ctx, n.ID, NotePatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, desc, updated.Description)
	got, err = r.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, desc, got.Description)
	assert.Equal(t, d.Title, got.Title)
}

func TestNoteRepository_SameTitleGetsDistinctSlugs(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	first, err := r.Insert(ctx, draft("Vectors", "Math"))
	require.NoError(t, err)
	second, err := r.Insert(ctx, draft("Vectors", "Math"))
	require.NoError(t, err)
	other, err := r.Insert(ctx, draft("Vectors", "Physics"))
	require.NoError(t, err)

	assert.Equal(t, "vectors", first.Slug)
	assert.Equal(t, "vectors-2", second.Slug)
	assert.Equal(t, "vectors", other.Slug, "slugs are scoped to the category")

	for _, n := range []*model.Note{first, second} {
		got, err := r.GetBySlug(ctx, "math", n.Slug)
		require.NoError(t, err)
		assert.Equal(t, n.ID, got.ID)
	}
}

func TestNoteRepository_GetBySlugNormalisesCategory(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	n, err := r.Insert(ctx, draft("Vectors", "Linear Algebra"))
	require.NoError(t, err)

	got, err := r.GetBySlug(ctx, "Linear  Algebra", "VECTORS")
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)

	_, err = r.GetBySlug(ctx, "linear-algebra", "matrices")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNoteRepository_InsertValidation(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	cases := map[string]NoteDraft{
		"empty title":    draft("   ", "Math"),
		"empty category": draft("Vectors", " "),
		"no file":        {Title: "Vectors", Category: "Math"},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Insert(ctx, d)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNoteRepository_DuplicateFileIDIsStorageError(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	d := draft("Vectors", "Math")
	_, err := r.Insert(ctx, d)
	require.NoError(t, err)

	d.Title = "Matrices"
	_, err = r.Insert(ctx, d)
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestNoteRepository_InsertExhaustsSlugAttempts(t *testing.T) {
	db := newTestDB(t)
	r := NewNoteRepository(db, Options{MaxSlugAttempts: 3})
	ctx := context.Background()

	// Перед каждой вставкой "кто-то" успевает занять выбранный slug.
	var steals int
	err := db.Callback().Create().Before("gorm:create").Register("test:squat", func(tx *gorm.DB) {
		n, ok := tx.Statement.Dest.(*model.Note)
		if !ok {
			return
		}
		steals++
		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			`INSERT INTO notes (id, title, description, category, category_slug, slug, pdf_file_id, pdf_filename, sort_order, upload_date)
			 VALUES (?, 'squatter', '', ?, ?, ?, ?, '', 0, ?)`,
			uuid.NewString(), n.Category, n.CategorySlug, n.Slug, uuid.NewString(), time.Now().UTC())
		if err != nil {
			_ = tx.AddError(err)
		}
	})
	require.NoError(t, err)

	_, err = r.Insert(ctx, draft("Vectors", "Math"))
	assert.ErrorIs(t, err, apperr.ErrExhausted)
	assert.ErrorIs(t, err, apperr.ErrSlugConflict)
	assert.Equal(t, 3, steals)
}

func TestNoteRepository_ConcurrentInsertsSameTitle(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Insert(ctx, draft("Vectors", "Math"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, workers)
	seen := map[string]bool{}
	for _, n := range all {
		assert.False(t, seen[n.Slug], "duplicate slug %q", n.Slug)
		seen[n.Slug] = true
	}
	assert.True(t, seen["vectors"])
	assert.True(t, seen[fmt.Sprintf("vectors-%d", workers)])
}

func TestNoteRepository_UpdateFrozenPolicy(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	n, err := r.Insert(ctx, draft("Vectors", "Math"))
	require.NoError(t, err)

	upd, err := r.Update(ctx, n.ID, NotePatch{Title: ptr("Vector Spaces"), Description: ptr(""), Order: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, "Vector Spaces", upd.Title)
	assert.Equal(t, "", upd.Description)
	assert.Equal(t, "vectors", upd.Slug, "frozen policy keeps the slug on rename")
	assert.Equal(t, n.ID, upd.ID)
	assert.Equal(t, n.PDFFileID, upd.PDFFileID)
	assert.True(t, n.UploadDate.Equal(upd.UploadDate))

	got, err := r.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vector Spaces", got.Title)
	assert.Equal(t, "", got.Description)
}

func TestNoteRepository_UpdateFrozenDisambiguatesInNewCategory(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	_, err := r.Insert(ctx, draft("Vectors", "Physics"))
	require.NoError(t, err)
	n, err := r.Insert(ctx, draft("Vectors", "Math"))
	require.NoError(t, err)

	upd, err := r.Update(ctx, n.ID, NotePatch{Category: ptr("Physics")})
	require.NoError(t, err)
	assert.Equal(t, "physics", upd.CategorySlug)
	assert.Equal(t, "vectors-2", upd.Slug)

	_, err = r.GetBySlug(ctx, "math", "vectors")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	got, err := r.GetBySlug(ctx, "physics", "vectors-2")
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
}

func TestNoteRepository_UpdateRegeneratePolicy(t *testing.T) {
	r, _ := newRepo(t, SlugRegenerate)
	ctx := context.Background()

	n, err := r.Insert(ctx, draft("Vectors", "Math"))
	require.NoError(t, err)
	_, err = r.Insert(ctx, draft("Matrices", "Math"))
	require.NoError(t, err)

	upd, err := r.Update(ctx, n.ID, NotePatch{Title: ptr("Matrices")})
	require.NoError(t, err)
	assert.Equal(t, "matrices-2", upd.Slug)

	// Повторное сохранение того же заголовка не меняет slug.
	again, err := r.Update(ctx, n.ID, NotePatch{Title: ptr("Matrices")})
	require.NoError(t, err)
	assert.Equal(t, "matrices-2", again.Slug)
}

func TestNoteRepository_UpdateErrors(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	n, err := r.Insert(ctx, draft("Vectors", "Math"))
	require.NoError(t, err)

	_, err = r.Update(ctx, n.ID, NotePatch{Title: ptr("  ")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = r.Update(ctx, n.ID, NotePatch{Category: ptr("")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = r.Update(ctx, uuid.NewString(), NotePatch{Title: ptr("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := r.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vectors", got.Title)
}

func TestNoteRepository_DeleteFreesSlug(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	n, err := r.Insert(ctx, draft("Vectors", "Math"))
	require.NoError(t, err)

	deleted, err := r.Delete(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.PDFFileID, deleted.PDFFileID)

	_, err = r.GetByID(ctx, n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = r.GetBySlug(ctx, "math", "vectors")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	exists, err := r.FileIDExists(ctx, n.PDFFileID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = r.Delete(ctx, n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	again, err := r.Insert(ctx, draft("Vectors", "Math"))
	require.NoError(t, err)
	assert.Equal(t, "vectors", again.Slug)
}

func TestNoteRepository_Categories(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	cats, err := r.Categories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)

	var physics *model.Note
	for _, d := range []NoteDraft{draft("A", "Math"), draft("B", "Physics"), draft("C", "Math")} {
		n, err := r.Insert(ctx, d)
		require.NoError(t, err)
		if n.Category == "Physics" {
			physics = n
		}
	}

	cats, err = r.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Math", "Physics"}, cats)

	_, err = r.Delete(ctx, physics.ID)
	require.NoError(t, err)
	cats, err = r.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Math"}, cats)
}

func TestNoteRepository_ConcurrentUpdatesSameID(t *testing.T) {
	r, _ := newRepo(t, SlugFrozen)
	ctx := context.Background()

	n, err := r.Insert(ctx, draft("Vectors", "Math"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Update(ctx, n.ID, NotePatch{Order: ptr(i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := r.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Order, 0)
	assert.Less(t, got.Order, 10)
	assert.Equal(t, "Vectors", got.Title)
}
