package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"StudyVault/internal/apperr"
	"StudyVault/internal/auth"
	"StudyVault/internal/blobstore"
	"StudyVault/internal/model"
	"StudyVault/internal/repo"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// stubGate — шлюз без bcrypt: пароль "admin", права истекают по ExpiresAt.
type stubGate struct{}

func (stubGate) Login(password string) (auth.Token, error) {
	if password != "admin" {
		return auth.Token{}, apperr.ErrUnauthorized
	}
	return auth.Token{AccessToken: "tok", TokenType: auth.TokenType, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (stubGate) Check(c *auth.Capability) error {
	if c == nil || !time.Now().Before(c.ExpiresAt) {
		return apperr.ErrUnauthorized
	}
	return nil
}

var (
	validCap   = &auth.Capability{Subject: auth.RoleAdmin, ExpiresAt: time.Now().Add(24 * time.Hour)}
	expiredCap = &auth.Capability{Subject: auth.RoleAdmin, ExpiresAt: time.Now().Add(-time.Minute)}
)

func pdfUpload(name string) Upload {
	return Upload{Filename: name, ContentType: "application/pdf", Body: bytes.NewReader([]byte("%PDF-1.4\n%%EOF\n"))}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{Logger: repo.NewGormLogger(nil)})
	if err != nil {
		t.Fatalf("failed to open sqlite (modernc): %v", err)
	}
	if err := repo.Migrate(db); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestCatalog(t *testing.T, allowed ...string) (*CatalogService, *blobstore.MemoryStore) {
	t.Helper()
	blobs := blobstore.NewMemoryStore(1 << 20)
	notes := repo.NewNoteRepository(newTestDB(t), repo.Options{})
	return NewCatalogService(notes, blobs, stubGate{}, allowed, zap.NewNop().Sugar()), blobs
}

// мок для repo.NoteRepository
type mockNoteRepo struct{ mock.Mock }

func (m *mockNoteRepo) note(args mock.Arguments) (*model.Note, error) {
	if n, ok := args.Get(0).(*model.Note); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNoteRepo) Insert(ctx context.Context, d repo.NoteDraft) (*model.Note, error) {
	return m.note(m.Called(ctx, d))
}
func (m *mockNoteRepo) GetByID(ctx context.Context, id string) (*model.Note, error) {
	return m.note(m.Called(ctx, id))
}
func (m *mockNoteRepo) GetBySlug(ctx context.Context, categorySlug, slug string) (*model.Note, error) {
	return m.note(m.Called(ctx, categorySlug, slug))
}
func (m *mockNoteRepo) GetByFileID(ctx context.Context, fileID string) (*model.Note, error) {
	return m.note(m.Called(ctx, fileID))
}
func (m *mockNoteRepo) Update(ctx context.Context, id string, p repo.NotePatch) (*model.Note, error) {
	return m.note(m.Called(ctx, id, p))
}
func (m *mockNoteRepo) Delete(ctx context.Context, id string) (*model.Note, error) {
	return m.note(m.Called(ctx, id))
}
func (m *mockNoteRepo) ListAll(ctx context.Context) ([]model.Note, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]model.Note); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNoteRepo) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]string); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNoteRepo) FileIDExists(ctx context.Context, fileID string) (bool, error) {
	args := m.Called(ctx, fileID)
	return args.Bool(0), args.Error(1)
}

var _ repo.NoteRepository = (*mockNoteRepo)(nil)

func ptrStr(s string) *string { return &s }
