package service

import "math"

const defaultMaxScore = 20

// Reward 一次批改对应的奖励
type Reward struct {
	Experience   int64
	Currency     int64
	Percentage   float64 // 0-100
	BonusApplied bool
	Multiplier   float64
}

// RewardPolicy 奖励计算策略（可替换）
type RewardPolicy interface {
	ComputeReward(baseExperience, baseCurrency int64, score, maxScore float64) (Reward, error)
}

// ExcellencePolicy 默认策略：按得分率折算 + 优秀倍率
type ExcellencePolicy struct {
	HighRatio      float64
	HighMultiplier float64
	MidRatio       float64
	MidMultiplier  float64
}

// DefaultExcellencePolicy 18/20 ×1.2，15/20 ×1.1
func DefaultExcellencePolicy() ExcellencePolicy {
	return ExcellencePolicy{HighRatio: 0.9, HighMultiplier: 1.2, MidRatio: 0.75, MidMultiplier: 1.1}
}

// ComputeReward maxScore <= 0 时按 20 分制
func (p ExcellencePolicy) ComputeReward(baseExperience, baseCurrency int64, score, maxScore float64) (Reward, error) {
	const op = "RewardCalculator.ComputeReward"
	if baseExperience < 0 || baseCurrency < 0 {
		return Reward{}, newError(op, ErrInvalidAmount, "基础奖励不能为负: exp=%d currency=%d", baseExperience, baseCurrency)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) || math.IsNaN(maxScore) || math.IsInf(maxScore, 0) {
		return Reward{}, newError(op, ErrInvalidScore, "分数无效: %v/%v", score, maxScore)
	}
	if maxScore <= 0 {
		maxScore = defaultMaxScore
	}

	ratio := clamp(score/maxScore, 0, 1)
	percentage := ratio * 100

	exp := math.Round(float64(baseExperience) * percentage / 100)
	cur := math.Round(float64(baseCurrency) * percentage / 100)

	multiplier := 1.0
	switch {
	case ratio >= p.HighRatio:
		multiplier = p.HighMultiplier
	case ratio >= p.MidRatio:
		multiplier = p.MidMultiplier
	}
	bonus := multiplier != 1
	if bonus {
		exp = math.Round(exp * multiplier)
		cur = math.Round(cur * multiplier)
	}

	return Reward{
		Experience:   int64(math.Max(exp, 0)),
		Currency:     int64(math.Max(cur, 0)),
		Percentage:   round2(percentage),
		BonusApplied: bonus,
		Multiplier:   multiplier,
	}, nil
}

// clamp 将数值限制在指定范围内
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// round2 保留两位小数
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
