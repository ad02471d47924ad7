package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"pastelfeed/internal/common"
	"pastelfeed/internal/metrics"
	"pastelfeed/internal/models"
	"pastelfeed/internal/repositories"
	"pastelfeed/pkg/rabbitmq"
)

// AuthService handles registration and credential checks. Establishing the
// session is left to the HTTP layer.
type AuthService struct {
	userRepo repositories.UserRepository
	events   EventPublisher
	metrics  *metrics.Metrics
	log      *logrus.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, events EventPublisher, m *metrics.Metrics, log *logrus.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		events:   events,
		metrics:  m,
		log:      log,
	}
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Username string
	Password string
	Email    string
}

// Register creates a user whose display name starts out as the username.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, common.InvalidInput("Missing required fields")
	}

	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, common.Conflict("Username is already taken")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, common.Conflict("Email is already registered")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:    username,
		Password:    string(hashedPassword),
		Email:       email,
		DisplayName: username,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.metrics.Registered()
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")
	publish(s.log, s.events, rabbitmq.EventUserRegistered, map[string]interface{}{
		"userId":   user.ID,
		"username": user.Username,
	})
	return user, nil
}

// Login verifies the credentials. An unknown username and a wrong password
// produce the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.metrics.Login(false)
			return nil, common.Unauthorized("Invalid username or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.metrics.Login(false)
		return nil, common.Unauthorized("Invalid username or password")
	}

	s.metrics.Login(true)
	s.log.WithField("user_id", user.ID).Info("User logged in")
	return user, nil
}

// CurrentUser resolves the user behind a session.
func (s *AuthService) CurrentUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
