package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/SchoolQuest/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GrantSourceSubmission 批改奖励按提交 ID 去重
const GrantSourceSubmission = "submission"

type RewardGrantRepository struct {
	db *gorm.DB
}

func NewRewardGrantRepository(db *gorm.DB) *RewardGrantRepository {
	return &RewardGrantRepository{db: db}
}

// TryCreate 以 (source, source_id, student, class) 唯一索引保证奖励只发放一次
// 返回 false 表示该来源已发放过
func (r *RewardGrantRepository) TryCreate(ctx context.Context, g *schema.RewardGrant) (bool, error) {
	res := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(g)
	if res.Error != nil {
		return false, fmt.Errorf("写入奖励发放记录失败: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *RewardGrantRepository) Exists(ctx context.Context, source string, sourceID, studentID, classID int64) (bool, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&schema.RewardGrant{}).
		Where("source = ? AND source_id = ? AND student_id = ? AND class_id = ?", source, sourceID, studentID, classID).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("查询奖励发放记录失败: %w", err)
	}
	return n > 0, nil
}
