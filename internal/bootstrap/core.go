package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yuqie6/SchoolQuest/internal/catalog"
	"github.com/yuqie6/SchoolQuest/internal/eventbus"
	"github.com/yuqie6/SchoolQuest/internal/lock"
	"github.com/yuqie6/SchoolQuest/internal/observability"
	"github.com/yuqie6/SchoolQuest/internal/pkg/config"
	"github.com/yuqie6/SchoolQuest/internal/repository"
	"github.com/yuqie6/SchoolQuest/internal/service"
)

// Core 持有 CLI 与测试共享的核心依赖
type Core struct {
	Cfg     *config.Config
	DB      *repository.Database
	Hub     *eventbus.Hub
	Metrics *observability.Metrics
	Redis   *redis.Client // lock.backend=redis 时非空

	Repos struct {
		Characters    *repository.CharacterRepository
		Levels        *repository.LevelThresholdRepository
		Experience    *repository.ExperienceEventRepository
		Currency      *repository.CurrencyRepository
		Badges        *repository.BadgeRepository
		Missions      *repository.MissionRepository
		Classroom     *repository.ClassroomRepository
		Grants        *repository.RewardGrantRepository
		Settings      *repository.ClassSettingRepository
		Notifications *repository.NotificationRepository
	}

	Services struct {
		Settings    *service.SettingsResolver
		Experience  *service.ExperienceLedger
		Currency    *service.CurrencyLedger
		Badges      *service.BadgeAwardRegistry
		Evaluator   *service.BadgeEvaluator
		Missions    *service.MissionProgressTracker
		Progression *service.ProgressionFacade
		Report      *service.ExperienceReport
	}
}

// NewCore 加载配置并构建核心依赖
func NewCore(ctx context.Context, cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	config.SetupLogger(cfg.App.LogLevel)
	return Build(ctx, cfg)
}

// Build 按给定配置构建：连接数据库 → 写入目录 → 组装服务
func Build(ctx context.Context, cfg *config.Config) (*Core, error) {
	db, err := repository.NewDatabase(repository.Options{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.DBPath,
		DSN:    cfg.Storage.DSN,
	})
	if err != nil {
		return nil, err
	}

	c := &Core{Cfg: cfg, DB: db, Hub: eventbus.NewHub(), Metrics: observability.NewMetrics()}
	if err := c.wire(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Core) wire(ctx context.Context) error {
	gdb := c.DB.DB

	// Repos
	c.Repos.Characters = repository.NewCharacterRepository(gdb)
	c.Repos.Levels = repository.NewLevelThresholdRepository(gdb)
	c.Repos.Experience = repository.NewExperienceEventRepository(gdb)
	c.Repos.Currency = repository.NewCurrencyRepository(gdb)
	c.Repos.Badges = repository.NewBadgeRepository(gdb)
	c.Repos.Missions = repository.NewMissionRepository(gdb)
	c.Repos.Classroom = repository.NewClassroomRepository(gdb)
	c.Repos.Grants = repository.NewRewardGrantRepository(gdb)
	c.Repos.Settings = repository.NewClassSettingRepository(gdb)
	c.Repos.Notifications = repository.NewNotificationRepository(gdb)

	if c.DB.SafeMode {
		// 安全模式：表结构不可信，不写入目录也不组装写链路
		slog.Warn("数据库处于安全模式，仅提供只读能力", "reason", c.DB.MigrationError)
		return nil
	}

	// 目录 → 等级表
	cat, err := catalog.Load(c.Cfg.Catalog.Path)
	if err != nil {
		return err
	}
	if err := cat.Seed(ctx, c.Repos.Levels, c.Repos.Badges); err != nil {
		return err
	}
	rows, err := c.Repos.Levels.List(ctx)
	if err != nil {
		return err
	}
	levels, err := service.NewLevelTable(rows)
	if err != nil {
		return err
	}

	locker, err := c.newLocker(ctx)
	if err != nil {
		return err
	}

	// Services
	tx := repository.NewTransactor(gdb)
	settings, err := service.NewSettingsResolver(progressionSettings(c.Cfg.Progression), c.Repos.Settings)
	if err != nil {
		return err
	}
	c.Services.Settings = settings
	c.Services.Experience = service.NewExperienceLedger(tx, c.Repos.Characters, c.Repos.Experience, levels, c.Metrics)
	c.Services.Currency = service.NewCurrencyLedger(tx, c.Repos.Currency, c.Metrics)
	c.Services.Evaluator = service.NewBadgeEvaluator(c.Repos.Characters, c.Repos.Classroom, settings)
	c.Services.Badges = service.NewBadgeAwardRegistry(c.Repos.Badges, c.Services.Evaluator, c.Services.Experience, settings, c.Metrics)
	c.Services.Missions = service.NewMissionProgressTracker(c.Repos.Missions, c.Repos.Classroom, c.Services.Experience, c.Services.Currency, settings, c.Metrics)
	c.Services.Progression = service.NewProgressionFacade(service.ProgressionDeps{
		Tx:            tx,
		Locker:        locker,
		Classroom:     c.Repos.Classroom,
		Grants:        c.Repos.Grants,
		Notifications: c.Repos.Notifications,
		Publisher:     c.Hub,
		Settings:      settings,
		Experience:    c.Services.Experience,
		Currency:      c.Services.Currency,
		Badges:        c.Services.Badges,
		Missions:      c.Services.Missions,
		Metrics:       c.Metrics,
	})
	c.Services.Report = service.NewExperienceReport(c.Repos.Experience, c.Services.Experience, c.Services.Currency, c.Services.Badges)
	return nil
}

func (c *Core) newLocker(ctx context.Context) (service.Locker, error) {
	lc := c.Cfg.Lock
	if !strings.EqualFold(lc.Backend, "redis") {
		return lock.NewLocal(), nil
	}

	c.Redis = redis.NewClient(&redis.Options{
		Addr:     lc.Redis.Addr,
		Password: lc.Redis.Password,
		DB:       lc.Redis.DB,
	})
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	slog.Info("使用 Redis 锁", "addr", lc.Redis.Addr)
	return lock.NewRedis(c.Redis, lock.RedisOptions{
		TTL:         time.Duration(lc.TTLMs) * time.Millisecond,
		WaitTimeout: time.Duration(lc.WaitTimeoutMs) * time.Millisecond,
	}), nil
}

func progressionSettings(p config.ProgressionConfig) service.ProgressionSettings {
	return service.ProgressionSettings{
		PassingScore:             p.PassingScore,
		MaxScore:                 p.MaxScore,
		DefaultExperience:        p.DefaultExperience,
		DefaultCurrency:          p.DefaultCurrency,
		ExcellenceHighRatio:      p.ExcellenceHighRatio,
		ExcellenceHighMultiplier: p.ExcellenceHighMultiplier,
		ExcellenceMidRatio:       p.ExcellenceMidRatio,
		ExcellenceMidMultiplier:  p.ExcellenceMidMultiplier,
		BadgeBonusMultiplier:     p.BadgeBonusMultiplier,
		BadgeBonusCap:            p.BadgeBonusCap,
	}
}

// RequireWritable 安全模式下拒绝写操作
func (c *Core) RequireWritable() error {
	if c.DB != nil && c.DB.SafeMode {
		return fmt.Errorf("数据库处于安全模式（%s），请先修复迁移问题", c.DB.MigrationError)
	}
	return nil
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
