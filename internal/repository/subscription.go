package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"qrcode-platform/internal/model"
)

// SubscriptionRepository 订阅数据访问
type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// ForUser 返回用户订阅, 没有记录时视为免费版
func (r *SubscriptionRepository) ForUser(ctx context.Context, userID uint) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Subscription{UserID: userID, Plan: model.PlanFree, Status: model.StatusActive}, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert 按用户写入订阅
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan", "status", "trial_ends_at", "current_period_end", "updated_at"}),
	}).Create(sub).Error
}

// WithTx 返回绑定到事务的副本
func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

// ExpireTrials 把试用期已结束的订阅标记为过期, 返回更新条数
func (r *SubscriptionRepository) ExpireTrials(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("status = ? AND trial_ends_at IS NOT NULL AND trial_ends_at <= ?", model.StatusTrialing, now).
		Updates(map[string]any{"status": model.StatusExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}

func (r *SubscriptionRepository) DeleteForUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Subscription{}).Error
}
