package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

func DefaultConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("获取可执行文件路径失败: %w", err)
	}
	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, "config", "config.yaml"), nil
}

func WriteFile(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("cfg 不能为空")
	}
	if path == "" {
		return fmt.Errorf("path 不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	p := cfg.Progression
	payload := map[string]any{
		"app": map[string]any{
			"name":      cfg.App.Name,
			"log_level": cfg.App.LogLevel,
		},
		"storage": map[string]any{
			"driver":  cfg.Storage.Driver,
			"db_path": cfg.Storage.DBPath,
			"dsn":     cfg.Storage.DSN,
		},
		"progression": map[string]any{
			"passing_score":              p.PassingScore,
			"max_score":                  p.MaxScore,
			"default_experience":         p.DefaultExperience,
			"default_currency":           p.DefaultCurrency,
			"excellence_high_ratio":      p.ExcellenceHighRatio,
			"excellence_high_multiplier": p.ExcellenceHighMultiplier,
			"excellence_mid_ratio":       p.ExcellenceMidRatio,
			"excellence_mid_multiplier":  p.ExcellenceMidMultiplier,
			"badge_bonus_multiplier":     p.BadgeBonusMultiplier,
			"badge_bonus_cap":            p.BadgeBonusCap,
		},
		"lock": map[string]any{
			"backend":         cfg.Lock.Backend,
			"ttl_ms":          cfg.Lock.TTLMs,
			"wait_timeout_ms": cfg.Lock.WaitTimeoutMs,
			"redis": map[string]any{
				"addr":     cfg.Lock.Redis.Addr,
				"password": cfg.Lock.Redis.Password,
				"db":       cfg.Lock.Redis.DB,
			},
		},
		"catalog": map[string]any{
			"path": cfg.Catalog.Path,
		},
	}

	b, err := yaml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
