package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"pastelfeed/internal/common"
	"pastelfeed/internal/models"
	"pastelfeed/internal/repositories"
)

// LetterService reads and saves the single letter each user owns.
type LetterService struct {
	letterRepo repositories.LetterRepository
	log        *logrus.Logger
}

// NewLetterService creates a new LetterService.
func NewLetterService(letterRepo repositories.LetterRepository, log *logrus.Logger) *LetterService {
	return &LetterService{letterRepo: letterRepo, log: log}
}

// Get returns the user's letter, or nil if none was ever saved.
func (s *LetterService) Get(ctx context.Context, userID uint) (*models.Letter, error) {
	letter, err := s.letterRepo.GetByUser(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return letter, err
}

// Save creates the letter or overwrites it in place. A blank title becomes
// models.DefaultLetterTitle.
func (s *LetterService) Save(ctx context.Context, userID uint, title, content string) (*models.Letter, error) {
	if strings.TrimSpace(content) == "" {
		return nil, common.InvalidInput("Letter content cannot be empty")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = models.DefaultLetterTitle
	}

	letter, err := s.letterRepo.Upsert(ctx, &models.Letter{
		UserID:  userID,
		Title:   title,
		Content: content,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "letter_id": letter.ID}).Info("Letter saved")
	return letter, nil
}
