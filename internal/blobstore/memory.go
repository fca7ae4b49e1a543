package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"StudyVault/internal/apperr"
)

type memBlob struct {
	data      []byte
	createdAt time.Time
}

// MemoryStore хранит блобы в памяти. Безопасен для конкурентного использования;
// подходит для тестов и локального запуска без диска.
type MemoryStore struct {
	mu      sync.RWMutex
	blobs   map[string]memBlob
	maxSize int64
	now     func() time.Time
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore(maxSize int64) *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memBlob), maxSize: maxSize, now: time.Now}
}

func (m *MemoryStore) Put(ctx context.Context, r io.Reader, contentType string) (string, error) {
	lr, err := prepare(r, contentType, m.maxSize)
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
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := newID()
	m.mu.Lock()
	m.blobs[id] = memBlob{data: data, createdAt: m.now().UTC()}
	m.mu.Unlock()
	return id, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Object, error) {
	m.mu.RLock()
	b, ok := m.blobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", id, apperr.ErrNotFound)
	}
	return &Object{
		ID:          id,
		ContentType: ContentTypePDF,
		Size:        int64(len(b.data)),
		ModTime:     b.createdAt,
		Body:        withContext(ctx, newBytesBody(b.data)),
	}, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[id]; !ok {
		return fmt.Errorf("blob %s: %w", id, apperr.ErrNotFound)
	}
	delete(m.blobs, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.blobs))
	for id, b := range m.blobs {
		out = append(out, Info{ID: id, Size: int64(len(b.data)), CreatedAt: b.createdAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len — количество блобов; используется в тестах.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

var _ Store = (*MemoryStore)(nil)
