package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yuqie6/SchoolQuest/internal/schema"
)

// TransactionInput 一笔货币流水
type TransactionInput struct {
	StudentID int64
	ClassID   int64
	Direction schema.CurrencyDirection
	Amount    int64
	Reason    string
	SourceRef string
}

// CurrencyLedger 只追加的货币流水 + 同事务维护的物化余额
type CurrencyLedger struct {
	tx      Transactor
	repo    CurrencyRepository
	metrics Metrics
	now     func() time.Time
}

func NewCurrencyLedger(tx Transactor, repo CurrencyRepository, metrics Metrics) *CurrencyLedger {
	return &CurrencyLedger{tx: tx, repo: repo, metrics: metricsOrNoop(metrics), now: time.Now}
}

// Append 写入一笔流水并返回其 ID；支出在余额不足时返回 ErrInsufficientFunds
func (l *CurrencyLedger) Append(ctx context.Context, in TransactionInput) (string, error) {
	const op = "CurrencyLedger.Append"
	if in.Amount <= 0 {
		return "", newError(op, ErrInvalidAmount, "金额必须 > 0: %d", in.Amount)
	}
	if !in.Direction.Valid() {
		return "", newError(op, ErrInvalidAmount, "未知的流水方向: %q", in.Direction)
	}

	id := uuid.NewString()
	err := l.tx.Transaction(ctx, func(ctx context.Context) error {
		switch in.Direction {
		case schema.CurrencyDebit:
			// 条件扣减：检查与扣减在同一条语句里完成
			ok, err := l.repo.TryDebit(ctx, in.StudentID, in.ClassID, in.Amount)
			if err != nil {
				return err
			}
			if !ok {
				return newError(op, ErrInsufficientFunds, "余额不足: student=%d class=%d amount=%d", in.StudentID, in.ClassID, in.Amount)
			}
		default:
			if err := l.repo.Credit(ctx, in.StudentID, in.ClassID, in.Amount); err != nil {
				return err
			}
		}
		return l.repo.AppendTransaction(ctx, &schema.CurrencyTransaction{
			ID:        id,
			StudentID: in.StudentID,
			ClassID:   in.ClassID,
			Direction: in.Direction,
			Amount:    in.Amount,
			Reason:    in.Reason,
			SourceRef: in.SourceRef,
			CreatedAt: l.now(),
		})
	})
	if err != nil {
		return "", err
	}
	metricsFor(ctx, l.metrics).CurrencyRecorded(string(in.Direction), in.Amount)
	return id, nil
}

// Spend 支出
func (l *CurrencyLedger) Spend(ctx context.Context, studentID, classID, amount int64, reason, sourceRef string) (string, error) {
	return l.Append(ctx, TransactionInput{
		StudentID: studentID,
		ClassID:   classID,
		Direction: schema.CurrencyDebit,
		Amount:    amount,
		Reason:    reason,
		SourceRef: sourceRef,
	})
}

// Balance 按流水重放：Σcredit − Σdebit
func (l *CurrencyLedger) Balance(ctx context.Context, studentID, classID int64) (int64, error) {
	return l.repo.SumFromLog(ctx, studentID, classID)
}

// Rebuild 用流水重建物化余额，返回重建后的余额
func (l *CurrencyLedger) Rebuild(ctx context.Context, studentID, classID int64) (int64, error) {
	var balance int64
	err := l.tx.Transaction(ctx, func(ctx context.Context) error {
		sum, err := l.repo.SumFromLog(ctx, studentID, classID)
		if err != nil {
			return err
		}
		balance = sum
		return l.repo.SetBalance(ctx, studentID, classID, sum)
	})
	return balance, err
}

func (l *CurrencyLedger) History(ctx context.Context, studentID, classID int64, limit int) ([]schema.CurrencyTransaction, error) {
	return l.repo.ListTransactions(ctx, studentID, classID, limit)
}
