package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pastelfeed/internal/filestore"
	"pastelfeed/internal/models"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil && user.ID == 0 {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateDisplayName(ctx context.Context, id uint, name string) error {
	return m.Called(ctx, id, name).Error(0)
}

func (m *MockUserRepository) UpdatePhotoURL(ctx context.Context, id uint, url string) error {
	return m.Called(ctx, id, url).Error(0)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	if args.Error(0) == nil {
		msg.ID = 10
	}
	return args.Error(0)
}

func (m *MockMessageRepository) Recent(ctx context.Context, limit int) ([]models.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

type MockSavedItemRepository struct {
	mock.Mock
}

func (m *MockSavedItemRepository) Create(ctx context.Context, item *models.SavedItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockSavedItemRepository) ListByUser(ctx context.Context, userID uint) ([]models.SavedItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SavedItem), args.Error(1)
}

func (m *MockSavedItemRepository) Delete(ctx context.Context, userID, id uint) error {
	return m.Called(ctx, userID, id).Error(0)
}

type MockLetterRepository struct {
	mock.Mock
}

func (m *MockLetterRepository) GetByUser(ctx context.Context, userID uint) (*models.Letter, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Letter), args.Error(1)
}

func (m *MockLetterRepository) Upsert(ctx context.Context, letter *models.Letter) (*models.Letter, error) {
	args := m.Called(ctx, letter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Letter), args.Error(1)
}

type MockUploadedImageRepository struct {
	mock.Mock
}

func (m *MockUploadedImageRepository) Upsert(ctx context.Context, img *models.UploadedImage) (*models.UploadedImage, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UploadedImage), args.Error(1)
}

func (m *MockUploadedImageRepository) GetByUserAndPurpose(ctx context.Context, userID uint, purpose string) (*models.UploadedImage, error) {
	args := m.Called(ctx, userID, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UploadedImage), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishEvent(eventType string, data map[string]interface{}) error {
	return m.Called(eventType, data).Error(0)
}

type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(up filestore.Upload) (*filestore.Stored, error) {
	args := m.Called(up)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*filestore.Stored), args.Error(1)
}

func (m *MockFileStore) Remove(path string) error {
	return m.Called(path).Error(0)
}
