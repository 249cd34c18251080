package schema

import "time"

// CurrencyDirection 货币流水方向
type CurrencyDirection string

const (
	CurrencyCredit CurrencyDirection = "credit"
	CurrencyDebit  CurrencyDirection = "debit"
)

// Valid 是否为已知方向
func (d CurrencyDirection) Valid() bool {
	return d == CurrencyCredit || d == CurrencyDebit
}

// Sign 返回方向对应的符号：credit=+1, debit=-1, 未知=0
func (d CurrencyDirection) Sign() int64 {
	switch d {
	case CurrencyCredit:
		return 1
	case CurrencyDebit:
		return -1
	default:
		return 0
	}
}

// CurrencyTransaction 货币流水（只追加，审计用途，禁止修改/删除）
type CurrencyTransaction struct {
	ID        string            `gorm:"primaryKey;size:36"`
	StudentID int64             `gorm:"not null;index:idx_currency_owner,priority:1"`
	ClassID   int64             `gorm:"not null;index:idx_currency_owner,priority:2"`
	Direction CurrencyDirection `gorm:"size:10;not null"`
	Amount    int64             `gorm:"not null"` // 恒为正，符号由 Direction 表示
	Reason    string            `gorm:"size:50"`
	SourceRef string            `gorm:"size:100;index"`
	CreatedAt time.Time         `gorm:"index:idx_currency_owner,priority:3"`
}

// TableName 指定表名
func (CurrencyTransaction) TableName() string {
	return "currency_transactions"
}

// SignedAmount 带符号的金额
func (t CurrencyTransaction) SignedAmount() int64 {
	return t.Direction.Sign() * t.Amount
}

// CurrencyBalance 物化余额，可随时由流水重建
type CurrencyBalance struct {
	StudentID int64     `gorm:"primaryKey;autoIncrement:false"`
	ClassID   int64     `gorm:"primaryKey;autoIncrement:false"`
	Balance   int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (CurrencyBalance) TableName() string {
	return "currency_balances"
}
