package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"StudyVault/internal/apperr"
	"StudyVault/internal/model"

	"gorm.io/gorm"
)

// DBMaxBlobBytes — потолок размера PDF для бэкенда "db" при сборке из конфига.
const DBMaxBlobBytes = 8 << 20

// DBStore хранит блобы строками таблицы blobs в той же БД, что и каталог.
// Get читает содержимое целиком, поэтому бэкенд годится только для небольших PDF.
type DBStore struct {
	db      *gorm.DB
	maxSize int64
}

// NewDBStore создаёт реализацию хранилища поверх gorm.
func NewDBStore(db *gorm.DB, maxSize int64) *DBStore {
	return &DBStore{db: db, maxSize: maxSize}
}

// Put — одна вставка строки, поэтому блоб либо виден целиком, либо не виден вовсе.
func (s *DBStore) Put(ctx context.Context, r io.Reader, contentType string) (string, error) {
	lr, err := prepare(r, contentType, s.maxSize)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(lr)
	if err != nil {
		if err = lr.result(err); errors.Is(err, apperr.ErrPayloadTooLarge) {
			return "", err
		}
		return "", apperr.Storage("read blob", err)
	}

	b := &model.Blob{ID: newID(), ContentType: ContentTypePDF, Size: int64(len(data)), Data: data}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return "", apperr.Storage("insert blob", err)
	}
	return b.ID, nil
}

func (s *DBStore) Get(ctx context.Context, id string) (*Object, error) {
	if !validID(id) {
		return nil, fmt.Errorf("blob %q: %w", id, apperr.ErrNotFound)
	}
	var b model.Blob
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("blob %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Storage("select blob", err)
	}
	return &Object{
		ID:          b.ID,
		ContentType: b.ContentType,
		Size:        b.Size,
		ModTime:     b.CreatedAt.UTC(),
		Body:        withContext(ctx, newBytesBody(b.Data)),
	}, nil
}

func (s *DBStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("blob %q: %w", id, apperr.ErrNotFound)
	}
	tx := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Blob{})
	if tx.Error != nil {
		return apperr.Storage("delete blob", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("blob %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// List не читает само содержимое — только id, размер и время создания.
func (s *DBStore) List(ctx context.Context) ([]Info, error) {
	var rows []model.Blob
	err := s.db.WithContext(ctx).
		Select("id", "size", "created_at").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Storage("list blobs", err)
	}
	out := make([]Info, 0, len(rows))
	for _, b := range rows {
		out = append(out, Info{ID: b.ID, Size: b.Size, CreatedAt: b.CreatedAt.UTC()})
	}
	return out, nil
}

var _ Store = (*DBStore)(nil)
