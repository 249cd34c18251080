// Package catalog 等级阈值与徽章定义的种子数据
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/yuqie6/SchoolQuest/internal/schema"
	"go.yaml.in/yaml/v3"
)

//go:embed default.yaml
var defaultYAML []byte

type Catalog struct {
	Levels []Level `yaml:"levels"`
	Badges []Badge `yaml:"badges"`
}

type Level struct {
	Level      int   `yaml:"level"`
	Experience int64 `yaml:"experience"`
}

type Badge struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Criterion   string `yaml:"criterion"`
	Required    int64  `yaml:"required"`
	ClassID     int64  `yaml:"class_id"` // 0 表示全部班级
	Active      *bool  `yaml:"active"`   // 缺省为 true
}

// Default 内置目录
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Load path 为空时使用内置目录
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取目录文件失败: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("解析目录失败: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate 等级升序且阈值严格递增；徽章 code 唯一、条件类型已知、门槛为正
func (c *Catalog) Validate() error {
	if len(c.Levels) == 0 {
		return fmt.Errorf("目录无效: 等级表为空")
	}
	for i, lv := range c.Levels {
		if lv.Level < 1 || lv.Experience < 0 {
			return fmt.Errorf("目录无效: 等级 %d 阈值 %d", lv.Level, lv.Experience)
		}
		if i == 0 {
			continue
		}
		prev := c.Levels[i-1]
		if lv.Level <= prev.Level || lv.Experience <= prev.Experience {
			return fmt.Errorf("目录无效: 等级 %d 未按升序或阈值未严格递增", lv.Level)
		}
	}

	seen := make(map[string]struct{}, len(c.Badges))
	for _, b := range c.Badges {
		code := strings.TrimSpace(b.Code)
		if code == "" {
			return fmt.Errorf("目录无效: 徽章 code 为空")
		}
		if _, dup := seen[code]; dup {
			return fmt.Errorf("目录无效: 徽章 code 重复: %s", code)
		}
		seen[code] = struct{}{}
		if !schema.CriterionType(b.Criterion).Valid() {
			return fmt.Errorf("目录无效: 徽章 %s 的条件类型未知: %s", code, b.Criterion)
		}
		if b.Required <= 0 {
			return fmt.Errorf("目录无效: 徽章 %s 的门槛必须 > 0", code)
		}
	}
	return nil
}

func (c *Catalog) LevelThresholds() []schema.LevelThreshold {
	out := make([]schema.LevelThreshold, 0, len(c.Levels))
	for _, lv := range c.Levels {
		out = append(out, schema.LevelThreshold{Level: lv.Level, ExperienceRequired: lv.Experience})
	}
	return out
}

func (c *Catalog) BadgeDefinitions() []schema.BadgeDefinition {
	out := make([]schema.BadgeDefinition, 0, len(c.Badges))
	for _, b := range c.Badges {
		active := true
		if b.Active != nil {
			active = *b.Active
		}
		out = append(out, schema.BadgeDefinition{
			Code:          strings.TrimSpace(b.Code),
			Name:          b.Name,
			Description:   b.Description,
			CriterionType: schema.CriterionType(b.Criterion),
			RequiredValue: b.Required,
			ClassID:       b.ClassID,
			Active:        active,
		})
	}
	return out
}

type LevelSeeder interface {
	Seed(ctx context.Context, thresholds []schema.LevelThreshold) (int64, error)
}

type BadgeSeeder interface {
	SeedDefinitions(ctx context.Context, defs []schema.BadgeDefinition) (int64, error)
}

// Seed 幂等写入；已存在的等级与徽章保持不变
func (c *Catalog) Seed(ctx context.Context, levels LevelSeeder, badges BadgeSeeder) error {
	nLevels, err := levels.Seed(ctx, c.LevelThresholds())
	if err != nil {
		return err
	}
	nBadges, err := badges.SeedDefinitions(ctx, c.BadgeDefinitions())
	if err != nil {
		return err
	}
	if nLevels > 0 || nBadges > 0 {
		slog.Info("目录已写入", "levels", nLevels, "badges", nBadges)
	}
	return nil
}
