package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"pastelfeed/internal/common"
	"pastelfeed/internal/filestore"
	"pastelfeed/internal/metrics"
	"pastelfeed/internal/models"
	"pastelfeed/internal/repositories"
	"pastelfeed/pkg/rabbitmq"
)

// UploadService stores purpose-tagged images. Each (user, purpose) keeps
// only its latest image; the superseded file is removed from disk.
type UploadService struct {
	imageRepo repositories.UploadedImageRepository
	files     FileStore
	events    EventPublisher
	metrics   *metrics.Metrics
	log       *logrus.Logger
}

// NewUploadService creates a new UploadService.
func NewUploadService(imageRepo repositories.UploadedImageRepository, files FileStore, events EventPublisher, m *metrics.Metrics, log *logrus.Logger) *UploadService {
	return &UploadService{imageRepo: imageRepo, files: files, events: events, metrics: m, log: log}
}

// Upload saves the file and records it as the latest image for its purpose.
// An empty purpose means filestore.PurposeFeed.
func (s *UploadService) Upload(ctx context.Context, userID uint, up filestore.Upload) (*models.UploadedImage, error) {
	up.Purpose = strings.TrimSpace(up.Purpose)
	if up.Purpose == "" {
		up.Purpose = filestore.PurposeFeed
	}
	if up.Purpose == filestore.PurposeProfile || !filestore.ValidPurpose(up.Purpose) {
		return nil, common.InvalidInput("Invalid upload type")
	}
	up.OwnerID = userID

	stored, err := s.files.Save(up)
	if err != nil {
		return nil, err
	}

	img := &models.UploadedImage{
		UserID:   userID,
		Purpose:  up.Purpose,
		Filename: stored.Filename,
		Path:     stored.Path,
		URL:      stored.URL,
	}
	previous, err := s.imageRepo.Upsert(ctx, img)
	if err != nil {
		s.remove(stored.Path)
		return nil, err
	}
	if previous != nil && previous.Path != stored.Path {
		s.remove(previous.Path)
	}

	s.metrics.Uploaded(up.Purpose)
	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"purpose": up.Purpose,
		"file":    stored.Filename,
		"bytes":   stored.Size,
	}).Info("Image uploaded")
	publish(s.log, s.events, rabbitmq.EventImageUploaded, map[string]interface{}{
		"userId":   userID,
		"purpose":  up.Purpose,
		"imageUrl": stored.URL,
	})
	return img, nil
}

// FeedImage returns the user's latest feed image.
func (s *UploadService) FeedImage(ctx context.Context, userID uint) (*models.UploadedImage, error) {
	return s.imageRepo.GetByUserAndPurpose(ctx, userID, filestore.PurposeFeed)
}

func (s *UploadService) remove(path string) {
	if err := s.files.Remove(path); err != nil {
		s.log.WithError(err).WithField("path", path).Warn("Failed to remove image file")
	}
}
