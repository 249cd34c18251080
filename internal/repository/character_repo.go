package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/SchoolQuest/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CharacterRepository struct {
	db *gorm.DB
}

func NewCharacterRepository(db *gorm.DB) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// Get 按 (student, class) 查询角色，不存在返回 nil, nil
func (r *CharacterRepository) Get(ctx context.Context, studentID, classID int64) (*schema.Character, error) {
	return r.get(conn(ctx, r.db), studentID, classID)
}

// GetForUpdate 同 Get，PostgreSQL 下额外加行锁（需在事务内调用）
func (r *CharacterRepository) GetForUpdate(ctx context.Context, studentID, classID int64) (*schema.Character, error) {
	return r.get(forUpdate(conn(ctx, r.db)), studentID, classID)
}

func (r *CharacterRepository) get(q *gorm.DB, studentID, classID int64) (*schema.Character, error) {
	var c schema.Character
	err := q.Where("student_id = ? AND class_id = ?", studentID, classID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询角色失败: %w", err)
	}
	return &c, nil
}

// CreateIfAbsent 创建角色；已存在时不覆盖，返回 false
func (r *CharacterRepository) CreateIfAbsent(ctx context.Context, c *schema.Character) (bool, error) {
	res := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(c)
	if res.Error != nil {
		return false, fmt.Errorf("创建角色失败: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CompareAndSwapExperience 仅当版本号未变时写入新的经验与等级，返回是否写入成功
func (r *CharacterRepository) CompareAndSwapExperience(ctx context.Context, id, version, totalExperience int64, level int) (bool, error) {
	res := conn(ctx, r.db).Model(&schema.Character{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"total_experience": totalExperience,
			"level":            level,
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("更新角色经验失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *CharacterRepository) ListByClass(ctx context.Context, classID int64) ([]schema.Character, error) {
	var out []schema.Character
	if err := conn(ctx, r.db).
		Where("class_id = ? AND archived = ?", classID, false).
		Order("total_experience DESC, student_id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询班级角色失败: %w", err)
	}
	return out, nil
}

// ArchiveClass 班级归档时同步归档角色，不做物理删除
func (r *CharacterRepository) ArchiveClass(ctx context.Context, classID int64) (int64, error) {
	res := conn(ctx, r.db).Model(&schema.Character{}).
		Where("class_id = ? AND archived = ?", classID, false).
		Update("archived", true)
	if res.Error != nil {
		return 0, fmt.Errorf("归档角色失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}

type LevelThresholdRepository struct {
	db *gorm.DB
}

func NewLevelThresholdRepository(db *gorm.DB) *LevelThresholdRepository {
	return &LevelThresholdRepository{db: db}
}

// Seed 写入等级阈值；已存在的等级保持不变
func (r *LevelThresholdRepository) Seed(ctx context.Context, thresholds []schema.LevelThreshold) (int64, error) {
	if len(thresholds) == 0 {
		return 0, nil
	}
	res := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&thresholds)
	if res.Error != nil {
		return 0, fmt.Errorf("写入等级阈值失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *LevelThresholdRepository) List(ctx context.Context) ([]schema.LevelThreshold, error) {
	var out []schema.LevelThreshold
	if err := conn(ctx, r.db).Order("level ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询等级阈值失败: %w", err)
	}
	return out, nil
}
