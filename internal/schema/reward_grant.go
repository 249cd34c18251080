package schema

import "time"

// RewardGrant 记录一次“奖励发放”，用于幂等：同一来源不会重复记账
// 例如同一份提交的批改事件被重复投递，只有第一次会真正发放经验与货币
type RewardGrant struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	Source     string    `gorm:"size:32;not null;uniqueIndex:uniq_reward_grant,priority:1"` // 目前只有 submission
	SourceID   int64     `gorm:"not null;uniqueIndex:uniq_reward_grant,priority:2"`
	StudentID  int64     `gorm:"not null;uniqueIndex:uniq_reward_grant,priority:3"`
	ClassID    int64     `gorm:"not null;uniqueIndex:uniq_reward_grant,priority:4"`
	Experience int64     `gorm:"not null"`
	Currency   int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (RewardGrant) TableName() string {
	return "reward_grants"
}
