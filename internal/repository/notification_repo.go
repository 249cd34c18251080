package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/schema"
	"gorm.io/gorm"
)

// NotificationRepository 通知发件箱：与业务写入同事务落库，提交后再投递
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) BatchInsert(ctx context.Context, items []schema.Notification) error {
	if len(items) == 0 {
		return nil
	}
	if err := conn(ctx, r.db).Create(&items).Error; err != nil {
		return fmt.Errorf("写入通知失败: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListUndelivered(ctx context.Context, limit int) ([]schema.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []schema.Notification
	if err := conn(ctx, r.db).
		Where("delivered_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询待投递通知失败: %w", err)
	}
	return out, nil
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID, classID int64, limit int) ([]schema.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []schema.Notification
	if err := conn(ctx, r.db).
		Where("recipient_id = ? AND class_id = ?", recipientID, classID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询通知失败: %w", err)
	}
	return out, nil
}

func (r *NotificationRepository) MarkDelivered(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if err := conn(ctx, r.db).Model(&schema.Notification{}).
		Where("id IN ? AND delivered_at IS NULL", ids).
		Update("delivered_at", at).Error; err != nil {
		return fmt.Errorf("标记通知已投递失败: %w", err)
	}
	return nil
}
