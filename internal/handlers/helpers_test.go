package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"StudyVault/internal/auth"
	"StudyVault/internal/blobstore"
	"StudyVault/internal/config"
	"StudyVault/internal/handlers"
	"StudyVault/internal/repo"
	"StudyVault/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

const (
	testSecret   = "test-secret"
	testPassword = "s3cret"
	testPublic   = "http://notes.test"
)

type testEnv struct {
	router http.Handler
	gate   *auth.Gate
	blobs  *blobstore.MemoryStore
	token  string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{Logger: repo.NewGormLogger(nil)})
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(db))
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		AuthSecret:    testSecret,
		BlobMaxSizeMB: 1,
		PublicURL:     testPublic,
		CORSOrigins:   []string{"*"},
	}
	logger := zap.NewNop().Sugar()

	gate, err := auth.NewGate(auth.Options{Secret: testSecret, Password: testPassword, TTL: time.Hour})
	require.NoError(t, err)
	blobs := blobstore.NewMemoryStore(cfg.BlobMaxBytes())
	notes := repo.NewNoteRepository(newTestDB(t), repo.Options{})
	svc := service.NewCatalogService(notes, blobs, gate, nil, logger)

	tok, err := gate.Login(testPassword)
	require.NoError(t, err)

	h := handlers.NewHandler(svc, gate, logger, cfg)
	return &testEnv{router: h.Router, gate: gate, blobs: blobs, token: tok.AccessToken}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+e.token)
	return req
}

func pdfContent(size int) []byte {
	head := []byte("%PDF-1.4\n")
	if size < len(head) {
		size = len(head)
	}
	b := bytes.Repeat([]byte("0"), size)
	copy(b, head)
	return b
}

// uploadRequest собирает multipart-запрос POST /notes/upload
func uploadRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if content != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		hdr.Set("Content-Type", "application/pdf")
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/notes/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) upload(t *testing.T, title, category string) handlers.NoteResponse {
	t.Helper()
	req := e.authed(uploadRequest(t, map[string]string{"title": title, "category": category}, "notes.pdf", pdfContent(256)))
	rr := e.do(req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var n handlers.NoteResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &n))
	return n
}

func decodeDetail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["detail"]
}
