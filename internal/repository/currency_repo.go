package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/SchoolQuest/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CurrencyRepository struct {
	db *gorm.DB
}

func NewCurrencyRepository(db *gorm.DB) *CurrencyRepository {
	return &CurrencyRepository{db: db}
}

func (r *CurrencyRepository) AppendTransaction(ctx context.Context, tx *schema.CurrencyTransaction) error {
	if err := conn(ctx, r.db).Create(tx).Error; err != nil {
		return fmt.Errorf("写入货币流水失败: %w", err)
	}
	return nil
}

// SumFromLog 按流水重放余额：Σcredit − Σdebit
func (r *CurrencyRepository) SumFromLog(ctx context.Context, studentID, classID int64) (int64, error) {
	var total int64
	err := conn(ctx, r.db).Model(&schema.CurrencyTransaction{}).
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE -amount END), 0)", schema.CurrencyCredit).
		Where("student_id = ? AND class_id = ?", studentID, classID).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("统计货币余额失败: %w", err)
	}
	return total, nil
}

// Credit 增加物化余额，不存在则创建
func (r *CurrencyRepository) Credit(ctx context.Context, studentID, classID, amount int64) error {
	row := schema.CurrencyBalance{StudentID: studentID, ClassID: classID, Balance: amount}
	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "class_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance":    gorm.Expr("currency_balances.balance + ?", amount),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("更新货币余额失败: %w", err)
	}
	return nil
}

// TryDebit 条件扣减：余额不足（或没有余额行）时不写入并返回 false
func (r *CurrencyRepository) TryDebit(ctx context.Context, studentID, classID, amount int64) (bool, error) {
	res := conn(ctx, r.db).Model(&schema.CurrencyBalance{}).
		Where("student_id = ? AND class_id = ? AND balance >= ?", studentID, classID, amount).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("扣减货币余额失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GetBalance 读取物化余额，不存在返回 nil, nil
func (r *CurrencyRepository) GetBalance(ctx context.Context, studentID, classID int64) (*schema.CurrencyBalance, error) {
	var b schema.CurrencyBalance
	err := conn(ctx, r.db).Where("student_id = ? AND class_id = ?", studentID, classID).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询货币余额失败: %w", err)
	}
	return &b, nil
}

// SetBalance 覆盖物化余额（用于按流水重建）
func (r *CurrencyRepository) SetBalance(ctx context.Context, studentID, classID, balance int64) error {
	row := schema.CurrencyBalance{StudentID: studentID, ClassID: classID, Balance: balance}
	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "class_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("重建货币余额失败: %w", err)
	}
	return nil
}

func (r *CurrencyRepository) ListTransactions(ctx context.Context, studentID, classID int64, limit int) ([]schema.CurrencyTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []schema.CurrencyTransaction
	if err := conn(ctx, r.db).
		Where("student_id = ? AND class_id = ?", studentID, classID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询货币流水失败: %w", err)
	}
	return out, nil
}
