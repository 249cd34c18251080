package schema

import "time"

// ClassSetting 班级级别的配置覆盖（key → 字符串值，按 key 解析为具体类型）
type ClassSetting struct {
	ClassID   int64     `gorm:"primaryKey;autoIncrement:false"`
	Key       string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"size:255;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ClassSetting) TableName() string {
	return "class_settings"
}
