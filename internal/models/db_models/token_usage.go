package db_models

import "github.com/google/uuid"

// TokenUsage is an append-only ledger row. Rows are never updated or deleted;
// current usage is always derived by aggregating over a time window.
type TokenUsage struct {
	BaseModel
	UserID uuid.UUID `gorm:"index:idx_token_usage_user_created,priority:1"`
	Tokens int64     `gorm:"not null"`

	User User `gorm:"foreignKey:UserID"`
}
