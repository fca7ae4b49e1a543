// Package api — HTTP-клиент CLI для сервера StudyVault.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// Client — общий http.Client; в тестах может подменяться.
var Client = http.DefaultClient

// APIError — ответ сервера со статусом не 2xx.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: %s", http.StatusText(e.Status), e.Detail)
}

// IsStatus сообщает, что err — APIError с указанным статусом.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func newRequest(ctx context.Context, method, url string, body io.Reader, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do выполняет запрос и декодирует JSON-ответ в out (если out != nil).
func do(req *http.Request, out any) error {
	resp, err := Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromBody(resp.StatusCode, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorFromBody(status int, body []byte) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Detail == "" {
		payload.Detail = strings.TrimSpace(string(body))
	}
	return &APIError{Status: status, Detail: payload.Detail}
}

// GetJSON выполняет GET и декодирует ответ.
func GetJSON(ctx context.Context, url, token string, out any) error {
	req, err := newRequest(ctx, http.MethodGet, url, nil, token)
	if err != nil {
		return err
	}
	return do(req, out)
}

// PostJSON отправляет JSON методом POST.
func PostJSON(ctx context.Context, url string, payload any, token string, out any) error {
	return sendJSON(ctx, http.MethodPost, url, payload, token, out)
}

// PutJSON отправляет JSON методом PUT.
func PutJSON(ctx context.Context, url string, payload any, token string, out any) error {
	return sendJSON(ctx, http.MethodPut, url, payload, token, out)
}

func sendJSON(ctx context.Context, method, url string, payload any, token string, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := newRequest(ctx, method, url, bytes.NewReader(b), token)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req, out)
}

// Delete выполняет DELETE.
func Delete(ctx context.Context, url, token string, out any) error {
	req, err := newRequest(ctx, http.MethodDelete, url, nil, token)
	if err != nil {
		return err
	}
	return do(req, out)
}

// UploadPDF отправляет multipart-форму с полями fields и файлом path в поле "file".
// Файл не читается в память целиком: тело формируется потоково через io.Pipe.
func UploadPDF(ctx context.Context, url string, fields map[string]string, path, token string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, fields, filepath.Base(path), f))
	}()

	req, err := newRequest(ctx, http.MethodPost, url, pr, token)
	if err != nil {
		_ = pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	err = do(req, out)
	_ = pr.Close()
	return err
}

func writeForm(mw *multipart.Writer, fields map[string]string, filename string, r io.Reader) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// Download сохраняет ответ GET в файл dst атомарно (временный файл + rename).
func Download(ctx context.Context, url, token, dst string) (int64, error) {
	req, err := newRequest(ctx, http.MethodGet, url, nil, token)
	if err != nil {
		return 0, err
	}
	resp, err := Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return 0, errorFromBody(resp.StatusCode, body)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dst)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}
