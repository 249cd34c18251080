package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClassroomRepository 课堂数据：活动、提交、考勤、行为、商店物品
type ClassroomRepository struct {
	db *gorm.DB
}

func NewClassroomRepository(db *gorm.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

func (r *ClassroomRepository) CreateActivity(ctx context.Context, a *schema.Activity) error {
	if err := conn(ctx, r.db).Create(a).Error; err != nil {
		return fmt.Errorf("创建活动失败: %w", err)
	}
	return nil
}

func (r *ClassroomRepository) GetActivity(ctx context.Context, id int64) (*schema.Activity, error) {
	var a schema.Activity
	err := conn(ctx, r.db).First(&a, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询活动失败: %w", err)
	}
	return &a, nil
}

// RecordGrade 写入（或更新）批改结果；提交时间只在首次写入时生效
func (r *ClassroomRepository) RecordGrade(ctx context.Context, sub *schema.Submission) (*schema.Submission, error) {
	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "activity_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "graded_at"}),
	}).Create(sub).Error
	if err != nil {
		return nil, fmt.Errorf("写入提交失败: %w", err)
	}

	var stored schema.Submission
	if err := conn(ctx, r.db).
		Where("activity_id = ? AND student_id = ?", sub.ActivityID, sub.StudentID).
		First(&stored).Error; err != nil {
		return nil, fmt.Errorf("查询提交失败: %w", err)
	}
	return &stored, nil
}

// CountPassedActivities 班级内达到及格线的不同活动数
func (r *ClassroomRepository) CountPassedActivities(ctx context.Context, studentID, classID int64, passingScore float64) (int64, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&schema.Submission{}).
		Where("student_id = ? AND class_id = ? AND score IS NOT NULL AND score >= ?", studentID, classID, passingScore).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("统计完成活动失败: %w", err)
	}
	return n, nil
}

func (r *ClassroomRepository) CountSubmissions(ctx context.Context, studentID, classID int64) (int64, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&schema.Submission{}).
		Where("student_id = ? AND class_id = ?", studentID, classID).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("统计提交失败: %w", err)
	}
	return n, nil
}

// SubmissionTiming 提交时间与活动截止时间
type SubmissionTiming struct {
	SubmittedAt time.Time
	DueAt       *time.Time
}

// ListSubmissionTimings 按提交时间倒序（最近的在前）
func (r *ClassroomRepository) ListSubmissionTimings(ctx context.Context, studentID, classID int64) ([]SubmissionTiming, error) {
	var out []SubmissionTiming
	err := conn(ctx, r.db).Table("submissions AS s").
		Select("s.submitted_at AS submitted_at, a.due_at AS due_at").
		Joins("JOIN activities AS a ON a.id = s.activity_id").
		Where("s.student_id = ? AND s.class_id = ?", studentID, classID).
		Order("s.submitted_at DESC, s.id DESC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("查询提交时间失败: %w", err)
	}
	return out, nil
}

// UpsertAttendance 同一天重复记录时以最新状态为准
func (r *ClassroomRepository) UpsertAttendance(ctx context.Context, rec *schema.AttendanceRecord) error {
	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "class_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"status"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("写入考勤失败: %w", err)
	}
	return nil
}

// ListAttendanceStatuses 按日期倒序返回考勤状态
func (r *ClassroomRepository) ListAttendanceStatuses(ctx context.Context, studentID, classID int64) ([]schema.AttendanceStatus, error) {
	var out []schema.AttendanceStatus
	if err := conn(ctx, r.db).Model(&schema.AttendanceRecord{}).
		Where("student_id = ? AND class_id = ?", studentID, classID).
		Order("date DESC").
		Pluck("status", &out).Error; err != nil {
		return nil, fmt.Errorf("查询考勤失败: %w", err)
	}
	return out, nil
}

func (r *ClassroomRepository) CreateBehavior(ctx context.Context, rec *schema.BehaviorRecord) error {
	if err := conn(ctx, r.db).Create(rec).Error; err != nil {
		return fmt.Errorf("写入行为记录失败: %w", err)
	}
	return nil
}

// ListBehaviorPoints 按记录时间倒序返回行为分
func (r *ClassroomRepository) ListBehaviorPoints(ctx context.Context, studentID, classID int64) ([]int64, error) {
	var out []int64
	if err := conn(ctx, r.db).Model(&schema.BehaviorRecord{}).
		Where("student_id = ? AND class_id = ?", studentID, classID).
		Order("recorded_at DESC, id DESC").
		Pluck("points", &out).Error; err != nil {
		return nil, fmt.Errorf("查询行为记录失败: %w", err)
	}
	return out, nil
}

func (r *ClassroomRepository) CountPositiveBehavior(ctx context.Context, studentID, classID int64, category schema.BehaviorCategory) (int64, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&schema.BehaviorRecord{}).
		Where("student_id = ? AND class_id = ? AND category = ? AND points > 0", studentID, classID, category).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("统计行为记录失败: %w", err)
	}
	return n, nil
}

func (r *ClassroomRepository) CreateStoreItem(ctx context.Context, item *schema.StoreItem) error {
	if err := conn(ctx, r.db).Create(item).Error; err != nil {
		return fmt.Errorf("创建商品失败: %w", err)
	}
	return nil
}

func (r *ClassroomRepository) GetStoreItem(ctx context.Context, id int64) (*schema.StoreItem, error) {
	var item schema.StoreItem
	err := conn(ctx, r.db).First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询商品失败: %w", err)
	}
	return &item, nil
}
