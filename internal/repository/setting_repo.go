package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/SchoolQuest/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClassSettingRepository struct {
	db *gorm.DB
}

func NewClassSettingRepository(db *gorm.DB) *ClassSettingRepository {
	return &ClassSettingRepository{db: db}
}

// GetAll 返回班级的全部覆盖项 key → 原始字符串
func (r *ClassSettingRepository) GetAll(ctx context.Context, classID int64) (map[string]string, error) {
	var rows []schema.ClassSetting
	if err := conn(ctx, r.db).Where("class_id = ?", classID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询班级配置失败: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (r *ClassSettingRepository) Set(ctx context.Context, classID int64, key, value string) error {
	row := schema.ClassSetting{ClassID: classID, Key: key, Value: value}
	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "class_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("写入班级配置失败: %w", err)
	}
	return nil
}
