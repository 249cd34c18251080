package schema

import "time"

// Character 学生在某个班级中的游戏化身份
// 每个 (学生, 班级) 唯一一条；只允许经验账本修改 Level/TotalExperience
type Character struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	StudentID       int64     `gorm:"not null;uniqueIndex:uniq_character,priority:1"`
	ClassID         int64     `gorm:"not null;uniqueIndex:uniq_character,priority:2;index"`
	Archetype       string    `gorm:"size:50"`                // 角色职业：mage, warrior, healer ...
	Level           int       `gorm:"not null;default:1"`     // 由 LevelTable 推导，禁止单独写入
	TotalExperience int64     `gorm:"not null;default:0"`     // 累计经验，>= 0
	Version         int64     `gorm:"not null;default:0"`     // CAS 版本号
	Archived        bool      `gorm:"not null;default:false"` // 随班级归档，不做物理删除
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Character) TableName() string {
	return "characters"
}

// LevelThreshold 等级经验门槛（种子数据）
type LevelThreshold struct {
	Level              int   `gorm:"primaryKey;autoIncrement:false"`
	ExperienceRequired int64 `gorm:"not null"`
}

// TableName 指定表名
func (LevelThreshold) TableName() string {
	return "level_thresholds"
}
