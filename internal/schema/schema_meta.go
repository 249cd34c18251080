package schema

import "time"

// SchemaMeta 记录数据库 schema 版本，AutoMigrate 只在版本落后时执行。
// 表内仅维护单行（ID=1）。
type SchemaMeta struct {
	ID            int       `gorm:"primaryKey"`
	SchemaVersion int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (SchemaMeta) TableName() string {
	return "schema_meta"
}

// All 返回需要迁移的全部表，顺序即建表顺序
func All() []any {
	return []any{
		&Character{},
		&LevelThreshold{},
		&ExperienceEvent{},
		&CurrencyTransaction{},
		&CurrencyBalance{},
		&BadgeDefinition{},
		&BadgeAward{},
		&Activity{},
		&Submission{},
		&AttendanceRecord{},
		&BehaviorRecord{},
		&StoreItem{},
		&Mission{},
		&MissionProgress{},
		&RewardGrant{},
		&ClassSetting{},
		&Notification{},
	}
}
