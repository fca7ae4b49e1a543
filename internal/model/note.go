package model

import "time"

// Note — серверная модель учебной заметки (метаданные одного PDF).
type Note struct {
	ID string `gorm:"primaryKey;type:uuid" json:"id"`

	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"not null;default:''" json:"description"`
	Category    string `gorm:"not null;index" json:"category"`

	// Человекочитаемая ссылка: пара уникальна среди живых заметок.
	CategorySlug string `gorm:"not null;uniqueIndex:idx_notes_link,priority:1" json:"category_slug"`
	Slug         string `gorm:"not null;uniqueIndex:idx_notes_link,priority:2" json:"slug"`

	PDFFileID   string `gorm:"column:pdf_file_id;not null;uniqueIndex" json:"pdf_file_id"`
	PDFFilename string `gorm:"column:pdf_filename" json:"pdf_filename"`

	// Order — ручной порядок для сортировки "custom".
	Order int `gorm:"column:sort_order;not null;default:0" json:"order"`

	UploadDate time.Time `gorm:"not null;index" json:"upload_date"`
}
