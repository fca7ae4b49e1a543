package model

import "time"

// Blob — бинарное содержимое PDF для бэкенда хранения "db".
// Адресуется только по ID (он же Note.PDFFileID).
type Blob struct {
	ID string `gorm:"primaryKey;type:uuid"`

	ContentType string `gorm:"not null"`
	Size        int64  `gorm:"not null"`
	Data        []byte `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}
