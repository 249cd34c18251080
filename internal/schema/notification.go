package schema

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationKind 通知类型
type NotificationKind string

const (
	NotificationLevelUp          NotificationKind = "level_up"
	NotificationBadgeAwarded     NotificationKind = "badge_awarded"
	NotificationMissionCompleted NotificationKind = "mission_completed"
	NotificationPurchase         NotificationKind = "purchase"
)

// Notification 通知发件箱：与状态变更同事务写入，提交后再投递
type Notification struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`
	RecipientID int64             `gorm:"not null;index" json:"recipient_id"`
	ClassID     int64             `gorm:"not null;index" json:"class_id"`
	Kind        NotificationKind  `gorm:"size:30;not null" json:"kind"`
	Title       string            `gorm:"size:200" json:"title"`
	Message     string            `gorm:"type:text" json:"message"`
	Metadata    datatypes.JSONMap `gorm:"type:text" json:"metadata"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	DeliveredAt *time.Time        `gorm:"index" json:"delivered_at,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
