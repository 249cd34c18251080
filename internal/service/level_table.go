package service

import (
	"sort"

	"github.com/yuqie6/SchoolQuest/internal/schema"
)

// LevelTable 等级 → 累计经验阈值，启动时构建一次，之后只读
type LevelTable struct {
	levels     []int
	thresholds []int64
}

// NewLevelTable 校验并构建等级表：非空、等级递增、阈值严格递增
func NewLevelTable(rows []schema.LevelThreshold) (*LevelTable, error) {
	const op = "NewLevelTable"
	if len(rows) == 0 {
		return nil, newError(op, ErrConfiguration, "等级表为空")
	}
	t := &LevelTable{
		levels:     make([]int, len(rows)),
		thresholds: make([]int64, len(rows)),
	}
	for i, row := range rows {
		if row.Level < 1 {
			return nil, newError(op, ErrConfiguration, "等级必须 >= 1: %d", row.Level)
		}
		if row.ExperienceRequired < 0 {
			return nil, newError(op, ErrConfiguration, "等级 %d 的阈值为负", row.Level)
		}
		if i > 0 {
			if row.Level <= rows[i-1].Level {
				return nil, newError(op, ErrConfiguration, "等级未按升序排列: %d 在 %d 之后", row.Level, rows[i-1].Level)
			}
			if row.ExperienceRequired <= rows[i-1].ExperienceRequired {
				return nil, newError(op, ErrConfiguration, "等级 %d 的阈值未严格递增", row.Level)
			}
		}
		t.levels[i] = row.Level
		t.thresholds[i] = row.ExperienceRequired
	}
	return t, nil
}

// LevelFor 返回阈值 <= totalExperience 的最高等级；低于所有阈值时返回最低等级
func (t *LevelTable) LevelFor(totalExperience int64) int {
	// 第一个阈值 > exp 的下标
	i := sort.Search(len(t.thresholds), func(i int) bool {
		return t.thresholds[i] > totalExperience
	})
	if i == 0 {
		return t.levels[0]
	}
	return t.levels[i-1]
}

// ThresholdFor 离开 level 所需的累计经验（即下一级的阈值）；满级时 ok=false
func (t *LevelTable) ThresholdFor(level int) (int64, bool) {
	i := sort.SearchInts(t.levels, level+1)
	if i >= len(t.levels) {
		return 0, false
	}
	return t.thresholds[i], true
}

// StartOf level 自身的阈值；低于最低等级时返回 0
func (t *LevelTable) StartOf(level int) int64 {
	i := sort.Search(len(t.levels), func(i int) bool {
		return t.levels[i] > level
	})
	if i == 0 {
		return 0
	}
	return t.thresholds[i-1]
}

func (t *LevelTable) MinLevel() int { return t.levels[0] }

func (t *LevelTable) MaxLevel() int { return t.levels[len(t.levels)-1] }

// Progress 当前等级内的进度百分比（0-100）；满级恒为 100
func (t *LevelTable) Progress(totalExperience int64) float64 {
	level := t.LevelFor(totalExperience)
	next, ok := t.ThresholdFor(level)
	if !ok {
		return 100
	}
	start := t.StartOf(level)
	if totalExperience < start {
		return 0
	}
	return round2(float64(totalExperience-start) / float64(next-start) * 100)
}
