package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"StudyVault/internal/apperr"
)

const blobExt = ".pdf"

// FileSystemStore хранит каждый блоб отдельным файлом:
//
//	<root>/
//	  <fileId>.pdf
//	  .tmp-*        (незавершённые записи)
type FileSystemStore struct {
	root    string
	maxSize int64
}

// NewFileSystemStore создаёт хранилище в каталоге root (каталог создаётся при необходимости).
func NewFileSystemStore(root string, maxSize int64) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FileSystemStore{root: root, maxSize: maxSize}, nil
}

func (s *FileSystemStore) path(id string) string {
	return filepath.Join(s.root, id+blobExt)
}

// Put пишет во временный файл того же каталога и атомарно переименовывает его.
func (s *FileSystemStore) Put(ctx context.Context, r io.Reader, contentType string) (string, error) {
	lr, err := prepare(r, contentType, s.maxSize)
	if err != nil {
		return "", err
	}

	tmpFile, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return "", apperr.Storage("create temp file", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, lr); err != nil {
		_ = tmpFile.Close()
		if err = lr.result(err); errors.Is(err, apperr.ErrPayloadTooLarge) {
			return "", err
		}
		return "", apperr.Storage("write blob", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return "", apperr.Storage("sync blob", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", apperr.Storage("close temp file", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := newID()
	if err := os.Rename(tmpPath, s.path(id)); err != nil {
		return "", apperr.Storage("rename temp file", err)
	}
	success = true
	return id, nil
}

func (s *FileSystemStore) Get(ctx context.Context, id string) (*Object, error) {
	if !validID(id) {
		return nil, fmt.Errorf("blob %q: %w", id, apperr.ErrNotFound)
	}
	f, err := os.Open(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", id, apperr.ErrNotFound)
		}
		return nil, apperr.Storage("open blob", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, apperr.Storage("stat blob", err)
	}
	return &Object{
		ID:          id,
		ContentType: ContentTypePDF,
		Size:        st.Size(),
		ModTime:     st.ModTime().UTC(),
		Body:        withContext(ctx, f),
	}, nil
}

func (s *FileSystemStore) Delete(_ context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("blob %q: %w", id, apperr.ErrNotFound)
	}
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("blob %s: %w", id, apperr.ErrNotFound)
		}
		return apperr.Storage("remove blob", err)
	}
	return nil
}

// List перечисляет готовые блобы; временные файлы пропускаются.
func (s *FileSystemStore) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, apperr.Storage("read blob directory", err)
	}
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, blobExt) {
			continue
		}
		id := strings.TrimSuffix(name, blobExt)
		if !validID(id) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // файл удалён между ReadDir и Info
		}
		out = append(out, Info{ID: id, Size: info.Size(), CreatedAt: info.ModTime().UTC()})
	}
	return out, nil
}

var _ Store = (*FileSystemStore)(nil)
