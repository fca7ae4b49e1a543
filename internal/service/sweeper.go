package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StudyVault/internal/apperr"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SweepOrphans удаляет блобы старше grace, на которые не ссылается ни одна заметка.
// grace защищает блобы, для которых Create ещё не успел вставить строку.
func (s *CatalogService) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	infos, err := s.blobs.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-grace)
	removed := 0
	for _, info := range infos {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if info.CreatedAt.After(cutoff) {
			continue
		}
		used, err := s.notes.FileIDExists(ctx, info.ID)
		if err != nil {
			return removed, err
		}
		if used {
			continue
		}
		if err := s.blobs.Delete(ctx, info.ID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return removed, err
		}
		removed++
		s.logger.Infow("orphan blob removed", "file_id", info.ID, "size", info.Size)
	}
	return removed, nil
}

// Sweeper периодически запускает SweepOrphans.
type Sweeper struct {
	cron   *cron.Cron
	svc    *CatalogService
	grace  time.Duration
	logger *zap.SugaredLogger
}

func NewSweeper(svc *CatalogService, grace time.Duration, logger *zap.SugaredLogger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Sweeper{
		cron:   cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		svc:    svc,
		grace:  grace,
		logger: logger.Named("sweeper"),
	}
}

// Schedule регистрирует очистку с заданным интервалом.
func (s *Sweeper) Schedule(interval time.Duration) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), s.RunOnce)
}

// RunOnce выполняет один проход очистки.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	n, err := s.svc.SweepOrphans(ctx, s.grace)
	if err != nil {
		s.logger.Errorw("sweep failed", "removed", n, "error", err)
		return
	}
	s.logger.Debugw("sweep finished", "removed", n)
}

// Run запускает планировщик и блокируется до отмены ctx.
func (s *Sweeper) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	return nil
}
