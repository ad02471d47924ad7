package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pastelfeed/internal/common"
	"pastelfeed/internal/metrics"
	"pastelfeed/internal/models"
	"pastelfeed/internal/repositories"
	"pastelfeed/pkg/rabbitmq"
)

// WallLimit caps how many messages the wall returns.
const WallLimit = 50

// WallMessage is a wall entry annotated with its author's display name.
type WallMessage struct {
	ID          uint      `json:"id"`
	UserID      *uint     `json:"userId"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
	DisplayName string    `json:"displayName"`
}

// MessageService posts to and reads the shared wall.
type MessageService struct {
	messageRepo repositories.MessageRepository
	events      EventPublisher
	metrics     *metrics.Metrics
	log         *logrus.Logger
}

// NewMessageService creates a new MessageService.
func NewMessageService(messageRepo repositories.MessageRepository, events EventPublisher, m *metrics.Metrics, log *logrus.Logger) *MessageService {
	return &MessageService{messageRepo: messageRepo, events: events, metrics: m, log: log}
}

// Post appends a message to the wall. Surrounding whitespace is dropped.
func (s *MessageService) Post(ctx context.Context, userID uint, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, common.InvalidInput("Invalid message")
	}

	msg := &models.Message{UserID: &userID, Body: body}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.metrics.MessagePosted()
	publish(s.log, s.events, rabbitmq.EventMessagePosted, map[string]interface{}{
		"messageId": msg.ID,
		"userId":    userID,
	})
	return msg, nil
}

// Recent returns the newest messages first.
func (s *MessageService) Recent(ctx context.Context) ([]WallMessage, error) {
	msgs, err := s.messageRepo.Recent(ctx, WallLimit)
	if err != nil {
		return nil, err
	}

	wall := make([]WallMessage, 0, len(msgs))
	for _, m := range msgs {
		wall = append(wall, WallMessage{
			ID:          m.ID,
			UserID:      m.UserID,
			Message:     m.Body,
			CreatedAt:   m.CreatedAt,
			DisplayName: authorName(m),
		})
	}
	return wall, nil
}

func authorName(m models.Message) string {
	switch {
	case m.Author != nil:
		return m.Author.Name()
	case m.UserID != nil:
		return fmt.Sprintf("User %d", *m.UserID)
	default:
		return "Unknown user"
	}
}
