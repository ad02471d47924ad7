package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"pastelfeed/internal/common"
	"pastelfeed/internal/filestore"
	"pastelfeed/internal/repositories"
)

// ProfileService updates a user's display name and photo.
type ProfileService struct {
	userRepo repositories.UserRepository
	files    FileStore
	log      *logrus.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(userRepo repositories.UserRepository, files FileStore, log *logrus.Logger) *ProfileService {
	return &ProfileService{userRepo: userRepo, files: files, log: log}
}

// UpdateDisplayName stores the trimmed name and returns it.
func (s *ProfileService) UpdateDisplayName(ctx context.Context, userID uint, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", common.InvalidInput("Invalid display name")
	}
	if err := s.userRepo.UpdateDisplayName(ctx, userID, name); err != nil {
		return "", err
	}
	return name, nil
}

// UpdatePhoto stores the image and points the user's photo URL at it. The
// previous photo file stays on disk.
func (s *ProfileService) UpdatePhoto(ctx context.Context, userID uint, up filestore.Upload) (*filestore.Stored, error) {
	up.Purpose = filestore.PurposeProfile
	up.OwnerID = userID

	stored, err := s.files.Save(up)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdatePhotoURL(ctx, userID, stored.URL); err != nil {
		if rmErr := s.files.Remove(stored.Path); rmErr != nil {
			s.log.WithError(rmErr).WithField("path", stored.Path).Warn("Failed to remove unreferenced photo")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "file": stored.Filename}).Info("Profile photo updated")
	return stored, nil
}
