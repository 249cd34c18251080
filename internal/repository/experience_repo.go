package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/schema"
	"gorm.io/gorm"
)

type ExperienceEventRepository struct {
	db *gorm.DB
}

func NewExperienceEventRepository(db *gorm.DB) *ExperienceEventRepository {
	return &ExperienceEventRepository{db: db}
}

func (r *ExperienceEventRepository) Append(ctx context.Context, ev *schema.ExperienceEvent) error {
	if err := conn(ctx, r.db).Create(ev).Error; err != nil {
		return fmt.Errorf("写入经验流水失败: %w", err)
	}
	return nil
}

// ReasonSum 按原因聚合的经验
type ReasonSum struct {
	Reason string
	Total  int64
	Count  int64
}

// SumByTimeRange 统计 [start, end) 内实际生效的经验
func (r *ExperienceEventRepository) SumByTimeRange(ctx context.Context, studentID, classID int64, start, end time.Time) (int64, error) {
	var total int64
	err := conn(ctx, r.db).Model(&schema.ExperienceEvent{}).
		Select("COALESCE(SUM(delta), 0)").
		Where("student_id = ? AND class_id = ? AND created_at >= ? AND created_at < ?", studentID, classID, start, end).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("统计经验失败: %w", err)
	}
	return total, nil
}

func (r *ExperienceEventRepository) SumByReason(ctx context.Context, studentID, classID int64, start, end time.Time) ([]ReasonSum, error) {
	var out []ReasonSum
	err := conn(ctx, r.db).Model(&schema.ExperienceEvent{}).
		Select("reason AS reason, COALESCE(SUM(delta), 0) AS total, COUNT(1) AS count").
		Where("student_id = ? AND class_id = ? AND created_at >= ? AND created_at < ?", studentID, classID, start, end).
		Group("reason").
		Order("total DESC, reason ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("按原因统计经验失败: %w", err)
	}
	return out, nil
}

func (r *ExperienceEventRepository) ListRecent(ctx context.Context, studentID, classID int64, limit int) ([]schema.ExperienceEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []schema.ExperienceEvent
	if err := conn(ctx, r.db).
		Where("student_id = ? AND class_id = ?", studentID, classID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询经验流水失败: %w", err)
	}
	return out, nil
}
