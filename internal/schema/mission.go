package schema

import "time"

// Mission 任务：一组活动，全部通过后发放奖励
type Mission struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	ClassID         int64     `gorm:"not null;index"`
	Title           string    `gorm:"size:200"`
	BonusExperience int64     `gorm:"not null;default:0"`
	BonusCurrency   int64     `gorm:"not null;default:0"`
	Active          bool      `gorm:"not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (Mission) TableName() string {
	return "missions"
}

// MissionProgress 学生任务进度，(任务, 学生) 唯一
// Completed 一旦为 true 不再回退；两个 Granted 标记只允许 false→true
type MissionProgress struct {
	ID                     int64   `gorm:"primaryKey;autoIncrement"`
	MissionID              int64   `gorm:"not null;uniqueIndex:uniq_mission_progress,priority:1"`
	StudentID              int64   `gorm:"not null;uniqueIndex:uniq_mission_progress,priority:2;index"`
	CompletedActivityCount int     `gorm:"not null;default:0"`
	TotalActivityCount     int     `gorm:"not null;default:0"`
	PercentComplete        float64 `gorm:"not null;default:0"` // 0-100，保留两位小数
	Completed              bool    `gorm:"not null;default:false"`
	CompletedAt            *time.Time
	ExperienceBonusGranted bool      `gorm:"not null;default:false"`
	CurrencyBonusGranted   bool      `gorm:"not null;default:false"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (MissionProgress) TableName() string {
	return "mission_progress"
}

// BonusesGranted 两项奖励是否都已发放
func (p MissionProgress) BonusesGranted() bool {
	return p.ExperienceBonusGranted && p.CurrencyBonusGranted
}
