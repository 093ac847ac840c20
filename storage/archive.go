package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/Dosada05/livescore/models"
)

const DefaultArchiveQueue = 64

// UploadResult describes a stored match document.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader puts match documents into an object bucket.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	GetPublicURL(key string) string
}

// Archiver uploads final match documents in the background.
type Archiver struct {
	uploader FileUploader
	logger   *slog.Logger
	queue    chan *models.Match
}

func NewArchiver(uploader FileUploader, logger *slog.Logger, queueSize int) *Archiver {
	if queueSize <= 0 {
		queueSize = DefaultArchiveQueue
	}
	return &Archiver{
		uploader: uploader,
		logger:   logger,
		queue:    make(chan *models.Match, queueSize),
	}
}

// ArchiveKey is the object key of a match document.
func ArchiveKey(m *models.Match) string {
	return fmt.Sprintf("matches/%s/%s/%s.json", m.LeagueID, m.SeasonID, m.ID)
}

// Enqueue schedules m for upload. A full queue drops the document and reports
// false.
func (a *Archiver) Enqueue(m *models.Match) bool {
	select {
	case a.queue <- m.Clone():
		return true
	default:
		a.logger.Warn("archive queue full, match not archived", slog.String("match_id", m.ID))
		return false
	}
}

// Run uploads queued documents until ctx is done.
func (a *Archiver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-a.queue:
			if _, err := a.Archive(ctx, m); err != nil && ctx.Err() == nil {
				a.logger.Error("match archive failed", slog.String("match_id", m.ID), slog.Any("error", err))
			}
		}
	}
}

// Archive uploads one match document synchronously.
func (a *Archiver) Archive(ctx context.Context, m *models.Match) (*UploadResult, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode match %s: %w", m.ID, err)
	}
	res, err := a.uploader.Upload(ctx, ArchiveKey(m), "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	a.logger.Info("match archived",
		slog.String("match_id", m.ID),
		slog.Int64("version", m.Version),
		slog.String("location", res.Location),
	)
	return res, nil
}
