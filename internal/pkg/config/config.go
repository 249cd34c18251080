package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Progression ProgressionConfig `mapstructure:"progression"`
	Lock        LockConfig        `mapstructure:"lock"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Driver string `mapstructure:"driver"`  // sqlite / postgres
	DBPath string `mapstructure:"db_path"` // sqlite
	DSN    string `mapstructure:"dsn"`     // postgres，支持 ${ENV}
}

// ProgressionConfig 全局默认进度参数，可被班级配置覆盖
type ProgressionConfig struct {
	PassingScore             float64 `mapstructure:"passing_score"`
	MaxScore                 float64 `mapstructure:"max_score"`
	DefaultExperience        int64   `mapstructure:"default_experience"`
	DefaultCurrency          int64   `mapstructure:"default_currency"`
	ExcellenceHighRatio      float64 `mapstructure:"excellence_high_ratio"`
	ExcellenceHighMultiplier float64 `mapstructure:"excellence_high_multiplier"`
	ExcellenceMidRatio       float64 `mapstructure:"excellence_mid_ratio"`
	ExcellenceMidMultiplier  float64 `mapstructure:"excellence_mid_multiplier"`
	BadgeBonusMultiplier     float64 `mapstructure:"badge_bonus_multiplier"`
	BadgeBonusCap            int64   `mapstructure:"badge_bonus_cap"`
}

// LockConfig (学生, 班级) 串行化锁
type LockConfig struct {
	Backend       string      `mapstructure:"backend"` // local / redis
	TTLMs         int         `mapstructure:"ttl_ms"`
	WaitTimeoutMs int         `mapstructure:"wait_timeout_ms"`
	Redis         RedisConfig `mapstructure:"redis"`
}

// RedisConfig Redis 连接
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CatalogConfig 等级/徽章目录
type CatalogConfig struct {
	Path string `mapstructure:"path"` // 为空使用内置目录
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 默认查找路径
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量，如 QUEST_STORAGE_DRIVER
	v.SetEnvPrefix("QUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("配置文件未找到，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 处理环境变量占位符
	cfg.Storage.DSN = expandEnv(cfg.Storage.DSN)
	cfg.Lock.Redis.Password = expandEnv(cfg.Lock.Redis.Password)

	// 处理相对路径
	if cfg.Storage.DBPath != ":memory:" {
		cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查枚举类配置项
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver 不支持: %s", c.Storage.Driver)
	}
	switch strings.ToLower(c.Lock.Backend) {
	case "local", "redis":
	default:
		return fmt.Errorf("lock.backend 不支持: %s", c.Lock.Backend)
	}
	if strings.EqualFold(c.Lock.Backend, "redis") && c.Lock.Redis.Addr == "" {
		return fmt.Errorf("lock.backend=redis 时 lock.redis.addr 不能为空")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "schoolquest")
	v.SetDefault("app.log_level", "info")

	// Storage
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.db_path", "./data/schoolquest.db")

	// Progression
	v.SetDefault("progression.passing_score", 11)
	v.SetDefault("progression.max_score", 20)
	v.SetDefault("progression.default_experience", 100)
	v.SetDefault("progression.default_currency", 10)
	v.SetDefault("progression.excellence_high_ratio", 0.9)
	v.SetDefault("progression.excellence_high_multiplier", 1.2)
	v.SetDefault("progression.excellence_mid_ratio", 0.75)
	v.SetDefault("progression.excellence_mid_multiplier", 1.1)
	v.SetDefault("progression.badge_bonus_multiplier", 2)
	v.SetDefault("progression.badge_bonus_cap", 100)

	// Lock
	v.SetDefault("lock.backend", "local")
	v.SetDefault("lock.ttl_ms", 10000)
	v.SetDefault("lock.wait_timeout_ms", 5000)
	v.SetDefault("lock.redis.addr", "localhost:6379")
	v.SetDefault("lock.redis.db", 0)
}

// expandEnv 展开环境变量占位符 ${VAR}
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := s[2 : len(s)-1]
		return os.Getenv(envVar)
	}
	return s
}

// resolvePath 解析相对路径为绝对路径
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	// 获取可执行文件目录
	exe, err := os.Executable()
	if err != nil {
		return path
	}

	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, path)
}

// SetupLogger 根据配置设置日志级别
func SetupLogger(level string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
