package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gudani/internal/models/db_models"
	"gudani/internal/models/response_models"
	"gudani/pkg/utils"
)

type QuotaServiceInterface interface {
	// CheckAndConsume atomically verifies the user's remaining quota for the
	// current UTC day and month and appends one ledger row on success.
	CheckAndConsume(ctx context.Context, userID uuid.UUID, tokens int64) error
	Usage(ctx context.Context, userID uuid.UUID) (*response_models.UsageSummary, error)
}

type QuotaService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewQuotaService(db *gorm.DB, logger *zap.Logger) QuotaServiceInterface {
	return &QuotaService{db: db, logger: logger}
}

// CheckAndConsume runs the read-aggregate-append sequence as one serializable
// transaction holding a lock on the user row, so two concurrent calls for the
// same user cannot both pass a near-limit check and overshoot together.
func (q *QuotaService) CheckAndConsume(ctx context.Context, userID uuid.UUID, tokens int64) error {
	if tokens < 0 {
		tokens = 0
	}
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user db_models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", userID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrUserNotFound
			}
			return err
		}

		plan, err := currentPlan(tx, userID)
		if err != nil {
			return err
		}

		now := time.Now()
		dailyUsed, err := sumTokensSince(tx, userID, utils.StartOfDayUTC(now))
		if err != nil {
			return err
		}
		monthlyUsed, err := sumTokensSince(tx, userID, utils.StartOfMonthUTC(now))
		if err != nil {
			return err
		}

		if err := evaluateQuota(dailyUsed, monthlyUsed, tokens, plan.DailyLimit, plan.MonthlyLimit); err != nil {
			return err
		}

		return tx.Create(&db_models.TokenUsage{UserID: userID, Tokens: tokens}).Error
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func (q *QuotaService) Usage(ctx context.Context, userID uuid.UUID) (*response_models.UsageSummary, error) {
	db := q.db.WithContext(ctx)

	plan, err := currentPlan(db, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dailyUsed, err := sumTokensSince(db, userID, utils.StartOfDayUTC(now))
	if err != nil {
		return nil, err
	}
	monthlyUsed, err := sumTokensSince(db, userID, utils.StartOfMonthUTC(now))
	if err != nil {
		return nil, err
	}

	return &response_models.UsageSummary{
		DailyUsed:    dailyUsed,
		DailyLimit:   plan.DailyLimit,
		MonthlyUsed:  monthlyUsed,
		MonthlyLimit: plan.MonthlyLimit,
	}, nil
}

// currentPlan resolves the user's limits through the current subscription. A
// user with no resolvable plan is an explicit error, never silently unlimited.
func currentPlan(db *gorm.DB, userID uuid.UUID) (*db_models.PlanConfig, error) {
	var sub db_models.Subscription
	err := db.Preload("Plan").
		Where("user_id = ?", userID).
		Order("start_date DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrMissingPlan
		}
		return nil, err
	}
	if sub.Plan.ID == uuid.Nil {
		return nil, utils.ErrMissingPlan
	}
	return &sub.Plan, nil
}

func sumTokensSince(db *gorm.DB, userID uuid.UUID, since time.Time) (int64, error) {
	var total int64
	err := db.Model(&db_models.TokenUsage{}).
		Where("user_id = ? AND created_at >= ?", userID, since.Unix()).
		Select("COALESCE(SUM(tokens), 0)").
		Scan(&total).Error
	return total, err
}

// evaluateQuota applies the limit policy: daily is checked before monthly. The
// comparison is unconditional, so a zero limit admits only zero-token requests.
func evaluateQuota(dailyUsed, monthlyUsed, tokens, dailyLimit, monthlyLimit int64) error {
	if dailyUsed+tokens > dailyLimit {
		return utils.ErrDailyLimitExceeded
	}
	if monthlyUsed+tokens > monthlyLimit {
		return utils.ErrMonthlyLimitExceeded
	}
	return nil
}
