package service

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
)

// 班级覆盖项 key
const (
	SettingPassingScore             = "passing_score"
	SettingMaxScore                 = "max_score"
	SettingDefaultExperience        = "default_experience"
	SettingDefaultCurrency          = "default_currency"
	SettingExcellenceHighRatio      = "excellence_high_ratio"
	SettingExcellenceHighMultiplier = "excellence_high_multiplier"
	SettingExcellenceMidRatio       = "excellence_mid_ratio"
	SettingExcellenceMidMultiplier  = "excellence_mid_multiplier"
	SettingBadgeBonusMultiplier     = "badge_bonus_multiplier"
	SettingBadgeBonusCap            = "badge_bonus_cap"
)

// ProgressionSettings 一个班级生效的进度参数
type ProgressionSettings struct {
	PassingScore             float64
	MaxScore                 float64
	DefaultExperience        int64
	DefaultCurrency          int64
	ExcellenceHighRatio      float64
	ExcellenceHighMultiplier float64
	ExcellenceMidRatio       float64
	ExcellenceMidMultiplier  float64
	BadgeBonusMultiplier     float64
	BadgeBonusCap            int64
}

// DefaultProgressionSettings 与配置文件默认值一致
func DefaultProgressionSettings() ProgressionSettings {
	return ProgressionSettings{
		PassingScore:             11,
		MaxScore:                 20,
		DefaultExperience:        100,
		DefaultCurrency:          10,
		ExcellenceHighRatio:      0.9,
		ExcellenceHighMultiplier: 1.2,
		ExcellenceMidRatio:       0.75,
		ExcellenceMidMultiplier:  1.1,
		BadgeBonusMultiplier:     2,
		BadgeBonusCap:            100,
	}
}

// Validate 检查参数组合是否自洽
func (s ProgressionSettings) Validate() error {
	const op = "ProgressionSettings.Validate"
	switch {
	case !(s.MaxScore > 0):
		return newError(op, ErrConfiguration, "max_score 必须 > 0")
	case s.PassingScore < 0 || s.PassingScore > s.MaxScore:
		return newError(op, ErrConfiguration, "passing_score 必须在 [0, max_score] 内")
	case s.DefaultExperience < 0 || s.DefaultCurrency < 0:
		return newError(op, ErrConfiguration, "默认奖励不能为负")
	case s.ExcellenceMidRatio < 0 || s.ExcellenceHighRatio > 1 || s.ExcellenceMidRatio > s.ExcellenceHighRatio:
		return newError(op, ErrConfiguration, "优秀阈值必须满足 0 <= mid <= high <= 1")
	case s.ExcellenceHighMultiplier < 1 || s.ExcellenceMidMultiplier < 1:
		return newError(op, ErrConfiguration, "优秀倍率不能小于 1")
	case s.BadgeBonusMultiplier < 0 || s.BadgeBonusCap < 0:
		return newError(op, ErrConfiguration, "徽章奖励参数不能为负")
	}
	return nil
}

// Policy 由当前参数构造奖励策略
func (s ProgressionSettings) Policy() RewardPolicy {
	return ExcellencePolicy{
		HighRatio:      s.ExcellenceHighRatio,
		HighMultiplier: s.ExcellenceHighMultiplier,
		MidRatio:       s.ExcellenceMidRatio,
		MidMultiplier:  s.ExcellenceMidMultiplier,
	}
}

// BadgeBonus 徽章奖励经验：min(cap, required × multiplier)
func (s ProgressionSettings) BadgeBonus(requiredValue int64) int64 {
	if requiredValue <= 0 {
		return 0
	}
	bonus := int64(math.Round(float64(requiredValue) * s.BadgeBonusMultiplier))
	return min(bonus, s.BadgeBonusCap)
}

// SettingsResolver 全局默认值 + 班级覆盖项
type SettingsResolver struct {
	defaults ProgressionSettings
	repo     ClassSettingRepository
}

func NewSettingsResolver(defaults ProgressionSettings, repo ClassSettingRepository) (*SettingsResolver, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	return &SettingsResolver{defaults: defaults, repo: repo}, nil
}

func (r *SettingsResolver) Defaults() ProgressionSettings {
	return r.defaults
}

// For 解析班级生效参数；无法解析的覆盖项记录日志后忽略
// 全部覆盖项先合并再整体校验；整体越界时按 key 排序逐项应用，拒绝导致越界的项，结果与读取顺序无关
func (r *SettingsResolver) For(ctx context.Context, classID int64) (ProgressionSettings, error) {
	s := r.defaults
	if r.repo == nil {
		return s, nil
	}
	overrides, err := r.repo.GetAll(ctx, classID)
	if err != nil {
		return s, err
	}
	if len(overrides) == 0 {
		return s, nil
	}

	parsed := make(map[string]settingValue, len(overrides))
	for key, raw := range overrides {
		v, known, ok := parseSetting(key, raw)
		switch {
		case !known:
			slog.Debug("忽略未知班级配置", "class_id", classID, "key", key)
		case !ok:
			slog.Warn("班级配置无法解析，使用默认值", "class_id", classID, "key", key, "value", raw)
		default:
			parsed[key] = v
		}
	}

	merged := s
	for key, v := range parsed {
		v.apply(&merged, key)
	}
	if merged.Validate() == nil {
		return merged, nil
	}

	keys := make([]string, 0, len(parsed))
	for key := range parsed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		next := s
		parsed[key].apply(&next, key)
		if err := next.Validate(); err != nil {
			slog.Warn("班级配置越界，使用默认值", "class_id", classID, "key", key, "value", overrides[key], "error", err)
			continue
		}
		s = next
	}
	return s, nil
}

// settingValue 已解析的覆盖值，f 与 i 二选一
type settingValue struct {
	f     float64
	i     int64
	isInt bool
}

func (v settingValue) apply(s *ProgressionSettings, key string) {
	if v.isInt {
		*intField(s, key) = v.i
		return
	}
	*floatField(s, key) = v.f
}

// parseSetting known=false 表示未知 key；ok=false 表示值无法解析
func parseSetting(key, raw string) (v settingValue, known, ok bool) {
	var zero ProgressionSettings
	if floatField(&zero, key) != nil {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return v, true, false
		}
		return settingValue{f: f}, true, true
	}
	if intField(&zero, key) != nil {
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return v, true, false
		}
		return settingValue{i: i, isInt: true}, true, true
	}
	return v, false, false
}

func floatField(s *ProgressionSettings, key string) *float64 {
	switch key {
	case SettingPassingScore:
		return &s.PassingScore
	case SettingMaxScore:
		return &s.MaxScore
	case SettingExcellenceHighRatio:
		return &s.ExcellenceHighRatio
	case SettingExcellenceHighMultiplier:
		return &s.ExcellenceHighMultiplier
	case SettingExcellenceMidRatio:
		return &s.ExcellenceMidRatio
	case SettingExcellenceMidMultiplier:
		return &s.ExcellenceMidMultiplier
	case SettingBadgeBonusMultiplier:
		return &s.BadgeBonusMultiplier
	}
	return nil
}

func intField(s *ProgressionSettings, key string) *int64 {
	switch key {
	case SettingDefaultExperience:
		return &s.DefaultExperience
	case SettingDefaultCurrency:
		return &s.DefaultCurrency
	case SettingBadgeBonusCap:
		return &s.BadgeBonusCap
	}
	return nil
}
