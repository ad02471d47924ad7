package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pastelfeed/internal/models"
)

const storageTimeout = 5 * time.Second

// GORMSessionStorage is a fiber.Storage backed by the sessions table.
// Expired rows are ignored on read and purged by GC.
type GORMSessionStorage struct {
	db   *gorm.DB
	now  func() time.Time
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewGORMSessionStorage returns the storage and, when gcInterval is
// positive, starts a goroutine that purges expired rows until Close.
func NewGORMSessionStorage(db *gorm.DB, gcInterval time.Duration) *GORMSessionStorage {
	s := &GORMSessionStorage{
		db:   db,
		now:  func() time.Time { return time.Now().UTC() },
		stop: make(chan struct{}),
	}
	if gcInterval > 0 {
		s.wg.Add(1)
		go s.gcLoop(gcInterval)
	}
	return s
}

func (s *GORMSessionStorage) gcLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
			_, _ = s.GC(ctx)
			cancel()
		}
	}
}

func (s *GORMSessionStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	var rec models.SessionRecord
	if err := s.db.WithContext(ctx).Where("id = ?", key).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if rec.ExpiresAt != nil && !rec.ExpiresAt.After(s.now()) {
		return nil, nil
	}
	return rec.Data, nil
}

// Set stores val under key. A zero exp never expires.
func (s *GORMSessionStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	rec := models.SessionRecord{ID: key, Data: val}
	if exp > 0 {
		expiresAt := s.now().Add(exp)
		rec.ExpiresAt = &expiresAt
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *GORMSessionStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Where("id = ?", key).Delete(&models.SessionRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *GORMSessionStorage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&models.SessionRecord{}).Error; err != nil {
		return fmt.Errorf("failed to reset sessions: %w", err)
	}
	return nil
}

// Close stops the GC goroutine. The database handle is owned by the caller.
func (s *GORMSessionStorage) Close() error {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
	return nil
}

// GC deletes expired sessions and reports how many were removed.
func (s *GORMSessionStorage) GC(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Delete(&models.SessionRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
