package schema

import "time"

// Activity 班级活动（作业/测验），可挂载到某个任务
type Activity struct {
	ID            int64      `gorm:"primaryKey;autoIncrement"`
	ClassID       int64      `gorm:"not null;index"`
	MissionID     int64      `gorm:"not null;default:0;index"` // 0 表示未挂载任务
	Title         string     `gorm:"size:200"`
	MaxExperience *int64     // 满分可得经验，为空表示用班级默认值，0 表示不发放
	MaxCurrency   *int64     // 满分可得货币，为空表示用班级默认值，0 表示不发放
	DueAt         *time.Time `gorm:"index"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (Activity) TableName() string {
	return "activities"
}

// Submission 学生提交，(活动, 学生) 唯一
type Submission struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	ActivityID  int64     `gorm:"not null;uniqueIndex:uniq_submission,priority:1"`
	StudentID   int64     `gorm:"not null;uniqueIndex:uniq_submission,priority:2;index:idx_submission_owner,priority:1"`
	ClassID     int64     `gorm:"not null;index:idx_submission_owner,priority:2"`
	Score       *float64  // 未批改时为空
	SubmittedAt time.Time `gorm:"not null;index"`
	GradedAt    *time.Time
}

// TableName 指定表名
func (Submission) TableName() string {
	return "submissions"
}

// AttendanceStatus 考勤状态
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid 是否为已知状态
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceLate, AttendanceAbsent, AttendanceExcused:
		return true
	}
	return false
}

// AttendanceRecord 考勤记录，(学生, 班级, 日期) 唯一
type AttendanceRecord struct {
	ID        int64            `gorm:"primaryKey;autoIncrement"`
	StudentID int64            `gorm:"not null;uniqueIndex:uniq_attendance,priority:1"`
	ClassID   int64            `gorm:"not null;uniqueIndex:uniq_attendance,priority:2"`
	Date      string           `gorm:"size:10;not null;uniqueIndex:uniq_attendance,priority:3"` // YYYY-MM-DD
	Status    AttendanceStatus `gorm:"size:20;not null"`
	CreatedAt time.Time        `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// BehaviorCategory 行为分类
type BehaviorCategory string

const (
	BehaviorParticipation BehaviorCategory = "participation"
	BehaviorConduct       BehaviorCategory = "conduct"
	BehaviorTeamwork      BehaviorCategory = "teamwork"
	BehaviorEffort        BehaviorCategory = "effort"
)

// Valid 是否为已知分类
func (c BehaviorCategory) Valid() bool {
	switch c {
	case BehaviorParticipation, BehaviorConduct, BehaviorTeamwork, BehaviorEffort:
		return true
	}
	return false
}

// BehaviorRecord 行为记录（正/负分）
type BehaviorRecord struct {
	ID         int64            `gorm:"primaryKey;autoIncrement"`
	StudentID  int64            `gorm:"not null;index:idx_behavior_owner,priority:1"`
	ClassID    int64            `gorm:"not null;index:idx_behavior_owner,priority:2"`
	Category   BehaviorCategory `gorm:"size:30;not null"`
	Points     int64            `gorm:"not null"`
	Note       string           `gorm:"size:500"`
	RecordedAt time.Time        `gorm:"not null;index:idx_behavior_owner,priority:3"`
}

// TableName 指定表名
func (BehaviorRecord) TableName() string {
	return "behavior_records"
}

// StoreItem 班级商店商品
type StoreItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	ClassID   int64     `gorm:"not null;index"`
	Name      string    `gorm:"size:100"`
	Price     int64     `gorm:"not null"`
	Active    bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (StoreItem) TableName() string {
	return "store_items"
}
