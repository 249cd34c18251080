package repository

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite" // 纯 Go SQLite 驱动
	"github.com/yuqie6/SchoolQuest/internal/schema"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options 数据库连接参数
type Options struct {
	Driver string // sqlite（默认）/ postgres
	Path   string // sqlite 文件路径
	DSN    string // postgres DSN
}

// Database 数据库管理器
type Database struct {
	DB             *gorm.DB
	SafeMode       bool
	SchemaVersion  int
	MigrationError string
}

// NewDatabase 创建数据库连接
func NewDatabase(opts Options) (*Database, error) {
	dialector, err := openDialector(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if dialector.Name() == DriverSQLite {
		if err := configureSQLite(db); err != nil {
			return nil, fmt.Errorf("配置数据库失败: %w", err)
		}
	}

	d := &Database{DB: db}
	if err := migrateWithVersion(db, d); err != nil {
		// 迁移失败进入“安全模式”，只读命令仍可使用
		d.SafeMode = true
		d.MigrationError = err.Error()
		slog.Error("数据库迁移失败，进入安全模式", "error", err)
	}

	slog.Info("数据库初始化成功", "driver", dialector.Name())
	return d, nil
}

func openDialector(opts Options) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite 路径不能为空")
		}
		if opts.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
				return nil, fmt.Errorf("创建数据目录失败: %w", err)
			}
		}
		return sqlite.Open(opts.Path), nil
	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres DSN 不能为空")
		}
		return postgres.Open(opts.DSN), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", opts.Driver)
	}
}

// configureSQLite 配置 SQLite 参数
// SQLite 只有一个写者：限制为单连接，事务天然串行，也避免 :memory: 多连接各自一份库
func configureSQLite(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("执行 %s 失败: %w", pragma, err)
		}
	}
	return nil
}

// 2: activities.max_experience/max_currency 改为可空，0 表示不发放
const latestSchemaVersion = 2

func migrateWithVersion(db *gorm.DB, out *Database) error {
	if db == nil {
		return fmt.Errorf("db 不能为空")
	}
	if out == nil {
		return fmt.Errorf("out 不能为空")
	}

	// 先确保 schema_meta 存在（即使后续迁移失败，也能记录状态）
	if err := db.AutoMigrate(&schema.SchemaMeta{}); err != nil {
		return fmt.Errorf("创建 schema_meta 失败: %w", err)
	}

	var meta schema.SchemaMeta
	err := db.First(&meta, 1).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			meta = schema.SchemaMeta{ID: 1, SchemaVersion: 0}
			if err := db.Create(&meta).Error; err != nil {
				return fmt.Errorf("初始化 schema_meta 失败: %w", err)
			}
		} else {
			return fmt.Errorf("读取 schema_meta 失败: %w", err)
		}
	}

	cur := meta.SchemaVersion
	out.SchemaVersion = cur

	if cur > latestSchemaVersion {
		return fmt.Errorf("数据库 schema_version=%d 高于当前程序支持的版本=%d", cur, latestSchemaVersion)
	}
	if cur == latestSchemaVersion {
		return nil
	}

	if err := db.AutoMigrate(schema.All()...); err != nil {
		return fmt.Errorf("迁移数据库失败: %w", err)
	}
	if cur == 1 {
		// v1 中 0 表示使用班级默认值
		for _, col := range []string{"max_experience", "max_currency"} {
			if err := db.Model(&schema.Activity{}).Where(col+" = ?", 0).Update(col, nil).Error; err != nil {
				return fmt.Errorf("迁移 activities.%s 失败: %w", col, err)
			}
		}
	}

	meta.SchemaVersion = latestSchemaVersion
	if err := db.Save(&meta).Error; err != nil {
		return fmt.Errorf("写入 schema_meta 失败: %w", err)
	}
	out.SchemaVersion = latestSchemaVersion
	return nil
}

// Close 关闭数据库连接
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
