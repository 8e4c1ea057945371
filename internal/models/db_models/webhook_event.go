package db_models

import "gorm.io/datatypes"

// WebhookEvent records every verified provider delivery with a unique
// (provider, event id) pair so redeliveries are detected before any handler
// runs.
type WebhookEvent struct {
	BaseModel
	Provider        string         `gorm:"size:20;not null;uniqueIndex:ux_webhook_events_provider_event,priority:1"`
	ProviderEventID string         `gorm:"size:191;not null;uniqueIndex:ux_webhook_events_provider_event,priority:2"`
	EventType       string         `gorm:"size:100;not null;index"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`
	ProcessedAt     *int64
	ProcessingError string
}
