package schema

import "time"

// CriterionType 徽章判定规则（封闭枚举）
type CriterionType string

const (
	CriterionLevelReached            CriterionType = "level-reached"
	CriterionActivitiesCompleted     CriterionType = "activities-completed"
	CriterionPerfectAttendanceStreak CriterionType = "perfect-attendance-streak"
	CriterionPositiveBehaviorStreak  CriterionType = "positive-behavior-streak"
	CriterionFirstSubmission         CriterionType = "first-submission"
	CriterionOnTimeSubmissionStreak  CriterionType = "on-time-submission-streak"
	CriterionParticipationCount      CriterionType = "participation-count"
	CriterionTotalExperience         CriterionType = "total-experience"
)

// CriterionTypes 全部已知规则，顺序稳定
var CriterionTypes = []CriterionType{
	CriterionLevelReached,
	CriterionActivitiesCompleted,
	CriterionPerfectAttendanceStreak,
	CriterionPositiveBehaviorStreak,
	CriterionFirstSubmission,
	CriterionOnTimeSubmissionStreak,
	CriterionParticipationCount,
	CriterionTotalExperience,
}

// Valid 是否为已知规则
func (c CriterionType) Valid() bool {
	for _, known := range CriterionTypes {
		if c == known {
			return true
		}
	}
	return false
}

// BadgeDefinition 徽章定义
// 发布后不可修改；Active=false 只影响后续评估，不影响历史
type BadgeDefinition struct {
	ID            int64         `gorm:"primaryKey;autoIncrement"`
	Code          string        `gorm:"size:100;uniqueIndex;not null"`
	Name          string        `gorm:"size:100"`
	Description   string        `gorm:"type:text"`
	CriterionType CriterionType `gorm:"size:50;not null"`
	RequiredValue int64         `gorm:"not null"`
	ClassID       int64         `gorm:"not null;default:0;index"` // 0 表示全部班级
	Active        bool          `gorm:"not null"`                 // 注意：不设 default，避免 false 被 gorm 忽略
	CreatedAt     time.Time     `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (BadgeDefinition) TableName() string {
	return "badge_definitions"
}

// BadgeAward 徽章授予记录，(学生, 徽章, 班级) 至多一条
type BadgeAward struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	StudentID int64     `gorm:"not null;uniqueIndex:uniq_badge_award,priority:1"`
	BadgeID   int64     `gorm:"not null;uniqueIndex:uniq_badge_award,priority:2"`
	ClassID   int64     `gorm:"not null;uniqueIndex:uniq_badge_award,priority:3"`
	AwardedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (BadgeAward) TableName() string {
	return "badge_awards"
}
