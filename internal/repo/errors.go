package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isUniqueViolation распознаёт нарушение уникального индекса
// для SQLite (modernc) и Postgres (pgx) без трансляции ошибок gorm.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// isLinkConflict — занята пара (category_slug, slug).
func isLinkConflict(err error) bool {
	if !isUniqueViolation(err) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "idx_notes_link") ||
		strings.Contains(msg, "notes.category_slug") ||
		errors.Is(err, gorm.ErrDuplicatedKey)
}
