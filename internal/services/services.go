// Package services holds the PastelFeed business rules. Services validate
// input, enforce ownership and translate storage outcomes into the error
// kinds defined in internal/common.
package services

import (
	"github.com/sirupsen/logrus"

	"pastelfeed/internal/filestore"
)

// EventPublisher emits domain events. A nil publisher disables events.
type EventPublisher interface {
	PublishEvent(eventType string, data map[string]interface{}) error
}

// FileStore persists uploaded bytes and removes superseded files.
type FileStore interface {
	Save(up filestore.Upload) (*filestore.Stored, error)
	Remove(path string) error
}

// publish sends an event without failing the caller; broker trouble is only
// logged.
func publish(log *logrus.Logger, events EventPublisher, eventType string, data map[string]interface{}) {
	if events == nil {
		return
	}
	if err := events.PublishEvent(eventType, data); err != nil {
		log.WithError(err).WithField("type", eventType).Warn("Failed to publish event")
	}
}
