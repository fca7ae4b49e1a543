package handlers

import (
	"net/url"
	"time"

	"StudyVault/internal/model"
)

// NoteResponse — представление заметки в API.
type NoteResponse struct {
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
	LegacyLink   string `json:"legacy_link"`
}

// UpdateNoteRequest — тело PUT /notes/{id}; отсутствующее поле не меняется.
type UpdateNoteRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Order       *int    `json:"order"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

func toNoteResponse(n *model.Note, publicURL string) NoteResponse {
	return NoteResponse{
		ID:           n.ID,
		Title:        n.Title,
		Description:  n.Description,
		Category:     n.Category,
		CategorySlug: n.CategorySlug,
		Slug:         n.Slug,
		PDFFileID:    n.PDFFileID,
		PDFFilename:  n.PDFFilename,
		UploadDate:   n.UploadDate.UTC().Format(time.RFC3339),
		Order:        n.Order,
		ShareLink:    publicURL + "/" + url.PathEscape(n.CategorySlug) + "/" + url.PathEscape(n.Slug),
		LegacyLink:   publicURL + "/note/" + url.PathEscape(n.ID),
	}
}

func toNoteList(notes []model.Note, publicURL string) []NoteResponse {
	out := make([]NoteResponse, 0, len(notes))
	for i := range notes {
		out = append(out, toNoteResponse(&notes[i], publicURL))
	}
	return out
}
