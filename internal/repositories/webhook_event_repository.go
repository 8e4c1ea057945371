package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gudani/internal/models/db_models"
)

type WebhookEventRepository interface {
	// MarkReceived records a verified delivery and reports whether it still
	// needs processing. Only an event whose earlier delivery was applied to
	// completion (processed_at set) counts as a duplicate; a redelivery of an
	// event that failed mid-processing is reported as needing processing
	// again, so a 5xx answered to the provider stays safe to retry.
	MarkReceived(ctx context.Context, provider, eventID, eventType string, payload []byte) (bool, error)

	// MarkProcessed records the outcome of a processing attempt. Success
	// stamps processed_at (making later deliveries true duplicates); failure
	// only records the error and leaves the event reprocessable.
	MarkProcessed(ctx context.Context, provider, eventID string, processingErr error) error
}

type webhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) MarkReceived(ctx context.Context, provider, eventID, eventType string, payload []byte) (bool, error) {
	event := db_models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       eventType,
		Payload:         payload,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(&event)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var existing db_models.WebhookEvent
	err := r.db.WithContext(ctx).
		First(&existing, "provider = ? AND provider_event_id = ?", provider, eventID).Error
	if err != nil {
		// The conflicting row vanished between the insert and the read; treat
		// the delivery as fresh rather than dropping it.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, nil
		}
		return false, err
	}
	return existing.ProcessedAt == nil, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, provider, eventID string, processingErr error) error {
	var updates map[string]interface{}
	if processingErr != nil {
		updates = map[string]interface{}{
			"processing_error": processingErr.Error(),
		}
	} else {
		updates = map[string]interface{}{
			"processed_at":     time.Now().Unix(),
			"processing_error": "",
		}
	}
	return r.db.WithContext(ctx).
		Model(&db_models.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		Updates(updates).Error
}
