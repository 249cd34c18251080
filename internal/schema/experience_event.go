package schema

import "time"

// ExperienceEvent 经验流水（只追加）
// 用于审计与“本周获得经验”等精确统计
type ExperienceEvent struct {
	ID                 string    `gorm:"primaryKey;size:36"`
	CharacterID        int64     `gorm:"not null;index"`
	StudentID          int64     `gorm:"not null;index:idx_exp_event_owner,priority:1"`
	ClassID            int64     `gorm:"not null;index:idx_exp_event_owner,priority:2"`
	Delta              int64     `gorm:"not null"` // 实际生效的变化量（已按 0 截断）
	RequestedDelta     int64     `gorm:"not null"` // 调用方请求的变化量
	Reason             string    `gorm:"size:50;index"`
	SourceRef          string    `gorm:"size:100;index"`
	PreviousExperience int64     `gorm:"not null"`
	NewExperience      int64     `gorm:"not null"`
	PreviousLevel      int       `gorm:"not null"`
	NewLevel           int       `gorm:"not null"`
	CreatedAt          time.Time `gorm:"index:idx_exp_event_owner,priority:3"`
}

// TableName 指定表名
func (ExperienceEvent) TableName() string {
	return "experience_events"
}
