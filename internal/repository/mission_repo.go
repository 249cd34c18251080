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

type MissionRepository struct {
	db *gorm.DB
}

func NewMissionRepository(db *gorm.DB) *MissionRepository {
	return &MissionRepository{db: db}
}

func (r *MissionRepository) Create(ctx context.Context, m *schema.Mission) error {
	if err := conn(ctx, r.db).Create(m).Error; err != nil {
		return fmt.Errorf("创建任务失败: %w", err)
	}
	return nil
}

func (r *MissionRepository) GetByID(ctx context.Context, id int64) (*schema.Mission, error) {
	var m schema.Mission
	err := conn(ctx, r.db).First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询任务失败: %w", err)
	}
	return &m, nil
}

func (r *MissionRepository) ListActiveByClass(ctx context.Context, classID int64) ([]schema.Mission, error) {
	var out []schema.Mission
	if err := conn(ctx, r.db).
		Where("class_id = ? AND active = ?", classID, true).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询班级任务失败: %w", err)
	}
	return out, nil
}

// CountActivities 任务下挂载的活动数
func (r *MissionRepository) CountActivities(ctx context.Context, missionID int64) (int64, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&schema.Activity{}).
		Where("mission_id = ?", missionID).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("统计任务活动失败: %w", err)
	}
	return n, nil
}

// CountPassedActivities 学生在该任务下达到及格线的活动数
func (r *MissionRepository) CountPassedActivities(ctx context.Context, missionID, studentID int64, passingScore float64) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Table("submissions AS s").
		Joins("JOIN activities AS a ON a.id = s.activity_id").
		Where("a.mission_id = ? AND s.student_id = ? AND s.score IS NOT NULL AND s.score >= ?", missionID, studentID, passingScore).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("统计任务完成活动失败: %w", err)
	}
	return n, nil
}

func (r *MissionRepository) GetProgress(ctx context.Context, missionID, studentID int64) (*schema.MissionProgress, error) {
	var p schema.MissionProgress
	err := conn(ctx, r.db).Where("mission_id = ? AND student_id = ?", missionID, studentID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询任务进度失败: %w", err)
	}
	return &p, nil
}

// EnsureProgress 保证进度行存在并返回最新内容；并发创建时由唯一索引兜底
func (r *MissionRepository) EnsureProgress(ctx context.Context, missionID, studentID int64) (*schema.MissionProgress, error) {
	row := schema.MissionProgress{MissionID: missionID, StudentID: studentID}
	if err := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; err != nil {
		return nil, fmt.Errorf("创建任务进度失败: %w", err)
	}
	p, err := r.GetProgress(ctx, missionID, studentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("任务进度缺失: mission=%d student=%d", missionID, studentID)
	}
	return p, nil
}

// UpdateCounts 写入最新的计数与百分比（不触碰完成标记与奖励标记）
func (r *MissionRepository) UpdateCounts(ctx context.Context, id int64, completedCount, totalCount int, percent float64) error {
	if err := conn(ctx, r.db).Model(&schema.MissionProgress{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"completed_activity_count": completedCount,
			"total_activity_count":     totalCount,
			"percent_complete":         percent,
		}).Error; err != nil {
		return fmt.Errorf("更新任务进度失败: %w", err)
	}
	return nil
}

// MarkCompleted 未完成 → 完成，只会成功一次
func (r *MissionRepository) MarkCompleted(ctx context.Context, id int64, at time.Time) (bool, error) {
	res := conn(ctx, r.db).Model(&schema.MissionProgress{}).
		Where("id = ? AND completed = ?", id, false).
		Updates(map[string]any{
			"completed":        true,
			"completed_at":     at,
			"percent_complete": 100.0,
		})
	if res.Error != nil {
		return false, fmt.Errorf("标记任务完成失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkExperienceBonusGranted 经验奖励标记 false → true，只会成功一次
func (r *MissionRepository) MarkExperienceBonusGranted(ctx context.Context, id int64) (bool, error) {
	return r.flip(ctx, id, "experience_bonus_granted")
}

// MarkCurrencyBonusGranted 货币奖励标记 false → true，只会成功一次
func (r *MissionRepository) MarkCurrencyBonusGranted(ctx context.Context, id int64) (bool, error) {
	return r.flip(ctx, id, "currency_bonus_granted")
}

func (r *MissionRepository) flip(ctx context.Context, id int64, column string) (bool, error) {
	res := conn(ctx, r.db).Model(&schema.MissionProgress{}).
		Where("id = ? AND completed = ?", id, true).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: false}).
		Update(column, true)
	if res.Error != nil {
		return false, fmt.Errorf("更新任务奖励标记失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *MissionRepository) ListProgressByStudent(ctx context.Context, studentID, classID int64) ([]schema.MissionProgress, error) {
	var out []schema.MissionProgress
	if err := conn(ctx, r.db).Table("mission_progress AS p").
		Select("p.*").
		Joins("JOIN missions AS m ON m.id = p.mission_id").
		Where("p.student_id = ? AND m.class_id = ?", studentID, classID).
		Order("p.mission_id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询任务进度失败: %w", err)
	}
	return out, nil
}
