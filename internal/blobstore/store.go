// Package blobstore хранит бинарное содержимое PDF, адресуемое непрозрачным fileId.
package blobstore

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"StudyVault/internal/apperr"

	"github.com/google/uuid"
)

// ContentTypePDF — единственный допустимый тип содержимого.
const ContentTypePDF = "application/pdf"

// sniffLen — сколько байт читаем для определения типа (как http.DetectContentType).
const sniffLen = 512

// Store минимальный контракт хранилища блобов.
type Store interface {
	// Put атомарно сохраняет содержимое и возвращает новый fileId.
	// Читатель никогда не видит частично записанный блоб.
	Put(ctx context.Context, r io.Reader, contentType string) (string, error)
	// Get открывает блоб на чтение. Вызывающий обязан закрыть Object.Body.
	Get(ctx context.Context, id string) (*Object, error)
	// Delete удаляет блоб; apperr.ErrNotFound если его нет.
	Delete(ctx context.Context, id string) error
	// List перечисляет все блобы (для очистки осиротевших).
	List(ctx context.Context) ([]Info, error)
}

// Object — открытый на чтение блоб. Body поддерживает Seek для Range-запросов.
type Object struct {
	ID          string
	ContentType string
	Size        int64
	ModTime     time.Time
	Body        io.ReadSeekCloser
}

// Info — краткое описание блоба.
type Info struct {
	ID        string
	Size      int64
	CreatedAt time.Time
}

// newID генерирует fileId.
func newID() string { return uuid.NewString() }

// validID — fileId должен быть UUID; это же защищает fs-бэкенд от обхода путей.
func validID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

// limitedReader возвращает ErrPayloadTooLarge, как только прочитано больше max байт.
type limitedReader struct {
	r        io.Reader
	max      int64
	n        int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.max > 0 && l.n > l.max {
		l.exceeded = true
		return n, apperr.ErrPayloadTooLarge
	}
	return n, err
}

// result подменяет ошибку бэкенда на ErrPayloadTooLarge, если лимит был превышен:
// некоторые клиенты (например, s3 manager) теряют исходную ошибку чтения.
func (l *limitedReader) result(err error) error {
	if l.exceeded {
		return apperr.ErrPayloadTooLarge
	}
	return err
}

// prepare проверяет заявленный тип, сниффит первые байты и ограничивает размер.
// Пустой файл и не-PDF -> ErrUnsupportedMediaType.
func prepare(r io.Reader, contentType string, maxSize int64) (*limitedReader, error) {
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil || (mt != ContentTypePDF && mt != "application/octet-stream") {
			return nil, apperr.ErrUnsupportedMediaType
		}
	}
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, apperr.Storage("read upload", err)
	}
	if !IsPDF(head) {
		return nil, apperr.ErrUnsupportedMediaType
	}
	return &limitedReader{r: br, max: maxSize}, nil
}

// IsPDF сообщает, похожи ли первые байты на PDF.
func IsPDF(head []byte) bool {
	if len(head) == 0 {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(head), ContentTypePDF)
}

// ctxReadSeeker привязывает чтение к контексту запроса: после отмены
// следующий Read возвращает ошибку контекста.
type ctxReadSeeker struct {
	ctx context.Context
	rs  io.ReadSeekCloser
}

func withContext(ctx context.Context, rs io.ReadSeekCloser) io.ReadSeekCloser {
	return &ctxReadSeeker{ctx: ctx, rs: rs}
}

func (c *ctxReadSeeker) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.rs.Read(p)
}

func (c *ctxReadSeeker) Seek(offset int64, whence int) (int64, error) {
	return c.rs.Seek(offset, whence)
}

func (c *ctxReadSeeker) Close() error { return c.rs.Close() }

// bytesBody — ReadSeekCloser поверх среза в памяти.
type bytesBody struct {
	*bytes.Reader
}

func (bytesBody) Close() error { return nil }

func newBytesBody(b []byte) io.ReadSeekCloser {
	return bytesBody{bytes.NewReader(b)}
}
