package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type txKey struct{}

// Transactor 以 context 传递事务：同一 ctx 内的所有仓储调用落在同一个事务里
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// Transaction 在事务中执行 fn；ctx 已在事务中时直接复用（不开嵌套事务）
func (t *Transactor) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn 返回 ctx 中的事务句柄，没有则返回普通连接
// 单连接的 SQLite 下，事务内绕过 tx 直接用 db 会死锁，所以仓储一律走这里
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// forUpdate 在支持行锁的数据库上追加 SELECT ... FOR UPDATE
func forUpdate(q *gorm.DB) *gorm.DB {
	if q.Dialector != nil && q.Dialector.Name() == DriverPostgres {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}
