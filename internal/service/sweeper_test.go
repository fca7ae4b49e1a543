package service

import (
	"context"
	"testing"
	"time"

	"StudyVault/internal/blobstore"
	"StudyVault/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweepOrphans_RemovesOnlyOldUnreferencedBlobs(t *testing.T) {
	svc, blobs := newTestCatalog(t)
	ctx := context.Background()

	n, err := svc.Create(ctx, validCap, repo.NoteDraft{Title: "Vectors", Category: "Math"}, pdfUpload("a.pdf"))
	require.NoError(t, err)
	orphan, err := blobs.Put(ctx, pdfUpload("o.pdf").Body, blobstore.ContentTypePDF)
	require.NoError(t, err)

	// свежий осиротевший блоб защищён grace-периодом
	removed, err := svc.SweepOrphans(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 2, blobs.Len())

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	removed, err = svc.SweepOrphans(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, blobs.Len())

	_, err = blobs.Get(ctx, orphan)
	assert.Error(t, err)
	pdf, err := svc.OpenPDF(ctx, n.PDFFileID)
	require.NoError(t, err)
	_ = pdf.Body.Close()
}

func TestSweeper_ScheduleAndRun(t *testing.T) {
	svc, blobs := newTestCatalog(t)
	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err := blobs.Put(context.Background(), pdfUpload("o.pdf").Body, blobstore.ContentTypePDF)
	require.NoError(t, err)

	sw := NewSweeper(svc, time.Minute, zap.NewNop().Sugar())
	_, err = sw.Schedule(0)
	assert.Error(t, err)
	_, err = sw.Schedule(time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()

	assert.Eventually(t, func() bool { return blobs.Len() == 0 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
