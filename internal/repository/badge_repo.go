package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/SchoolQuest/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository struct {
	db *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// SeedDefinitions 按 code 幂等写入徽章定义；已发布的定义不会被覆盖
func (r *BadgeRepository) SeedDefinitions(ctx context.Context, defs []schema.BadgeDefinition) (int64, error) {
	if len(defs) == 0 {
		return 0, nil
	}
	res := conn(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&defs)
	if res.Error != nil {
		return 0, fmt.Errorf("写入徽章定义失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListActive 返回对该班级生效的徽章（全局 + 班级专属）
func (r *BadgeRepository) ListActive(ctx context.Context, classID int64) ([]schema.BadgeDefinition, error) {
	var out []schema.BadgeDefinition
	if err := conn(ctx, r.db).
		Where("active = ? AND (class_id = 0 OR class_id = ?)", true, classID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询徽章定义失败: %w", err)
	}
	return out, nil
}

func (r *BadgeRepository) GetByCode(ctx context.Context, code string) (*schema.BadgeDefinition, error) {
	var def schema.BadgeDefinition
	err := conn(ctx, r.db).Where("code = ?", code).First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询徽章定义失败: %w", err)
	}
	return &def, nil
}

// AwardedBadgeIDs 返回学生在该班级已获得的徽章 ID 集合
func (r *BadgeRepository) AwardedBadgeIDs(ctx context.Context, studentID, classID int64) (map[int64]struct{}, error) {
	var ids []int64
	if err := conn(ctx, r.db).Model(&schema.BadgeAward{}).
		Where("student_id = ? AND class_id = ?", studentID, classID).
		Pluck("badge_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("查询已获徽章失败: %w", err)
	}
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// CreateAward 依赖唯一索引做幂等；返回 false 表示已被其他请求抢先授予
func (r *BadgeRepository) CreateAward(ctx context.Context, award *schema.BadgeAward) (bool, error) {
	res := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(award)
	if res.Error != nil {
		return false, fmt.Errorf("写入徽章授予失败: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *BadgeRepository) ListAwards(ctx context.Context, studentID, classID int64) ([]schema.BadgeAward, error) {
	var out []schema.BadgeAward
	if err := conn(ctx, r.db).
		Where("student_id = ? AND class_id = ?", studentID, classID).
		Order("awarded_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询徽章授予失败: %w", err)
	}
	return out, nil
}

func (r *BadgeRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]schema.BadgeDefinition, error) {
	out := make(map[int64]schema.BadgeDefinition, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var defs []schema.BadgeDefinition
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("查询徽章定义失败: %w", err)
	}
	for _, d := range defs {
		out[d.ID] = d
	}
	return out, nil
}
