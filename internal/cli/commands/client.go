package commands

import (
	"net/url"
	"strings"

	"StudyVault/internal/cli/repo"
	"StudyVault/internal/cli/repo/fs"
	"StudyVault/internal/config"
)

// note — заметка в том виде, в каком её отдаёт сервер.
type note struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	CategorySlug string `json:"category_slug"`
	Slug         string `json:"slug"`
	PDFFileID    string `json:"pdf_file_id"`
	PDFFilename  string `json:"pdf_filename"`
	UploadDate   string `json:"upload_date"`
	Order        int    `json:"order"`
	ShareLink    string `json:"share_link"`
}

// newTokenStore позволяет тестам подменить хранилище токена.
var newTokenStore = func(cfg *config.Config) repo.TokenStore {
	return fs.AuthFSStore{Path: cfg.TokenFile}
}

// endpoint склеивает ServerURL и экранированные сегменты пути.
func endpoint(cfg *config.Config, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(cfg.ServerURL, "/"))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// token возвращает сохранённый токен; ошибку отдаёт, если login не выполнялся.
func token(cfg *config.Config) (string, error) {
	return newTokenStore(cfg).Load()
}
