package blobstore

import (
	"context"
	"fmt"

	"StudyVault/internal/config"

	"gorm.io/gorm"
)

// NewFromConfig создаёт реализацию Store по cfg.BlobBackend.
// db нужен только бэкенду "db" (та же БД, что и у каталога).
// Пустой бэкенд означает "fs": он отдаёт PDF потоком, не читая файл в память.
func NewFromConfig(ctx context.Context, cfg *config.Config, db *gorm.DB) (Store, error) {
	maxSize := cfg.BlobMaxBytes()
	switch cfg.BlobBackend {
	case "memory":
		return NewMemoryStore(maxSize), nil
	case "fs", "filesystem", "":
		if cfg.BlobDir == "" {
			return nil, fmt.Errorf("filesystem blob backend requires BLOB_DIR to be set")
		}
		return NewFileSystemStore(cfg.BlobDir, maxSize)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
			PathStyle: cfg.S3PathStyle,
			MaxSize:   maxSize,
		})
	case "db":
		if db == nil {
			return nil, fmt.Errorf("db blob backend requires a database connection")
		}
		return NewDBStore(db, min(maxSize, DBMaxBlobBytes)), nil
	default:
		return nil, fmt.Errorf("unknown blob backend: %s", cfg.BlobBackend)
	}
}
