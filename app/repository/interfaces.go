package repository

import (
	"github.com/subdeckhq/subdeck/app/models"
)

// CustomerMappingRepository provides access to user → Stripe customer
// mappings.
type CustomerMappingRepository interface {
	GetByUserID(userID string) (*models.CustomerMapping, error)
	// CreateIfNotExists inserts the mapping unless one already exists for the
	// user; it returns whether a row was created plus the stored row either
	// way. The customer ID of an existing mapping is never overwritten.
	CreateIfNotExists(mapping *models.CustomerMapping) (bool, *models.CustomerMapping, error)
}

// WebhookEventRepository persists webhook deliveries for idempotent
// processing.
type WebhookEventRepository interface {
	// CreateIfNotExists inserts the event unless its provider event ID was
	// already recorded; it returns whether a row was created plus the stored
	// row either way.
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}
