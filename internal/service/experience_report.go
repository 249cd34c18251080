package service

import (
	"context"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/repository"
)

// ExperienceReport 基于经验流水的统计（精确值，不做估算）
type ExperienceReport struct {
	events     ExperienceEventRepository
	experience *ExperienceLedger
	currency   *CurrencyLedger
	badges     *BadgeAwardRegistry
}

// NewExperienceReport 创建报告服务
func NewExperienceReport(
	events ExperienceEventRepository,
	experience *ExperienceLedger,
	currency *CurrencyLedger,
	badges *BadgeAwardRegistry,
) *ExperienceReport {
	return &ExperienceReport{
		events:     events,
		experience: experience,
		currency:   currency,
		badges:     badges,
	}
}

// WeeklyReport 本周与上周的经验
type WeeklyReport struct {
	WeekStart       string                 `json:"week_start"`
	WeekEnd         string                 `json:"week_end"`
	ThisWeek        int64                  `json:"this_week"`
	PreviousWeek    int64                  `json:"previous_week"`
	GrowthRate      float64                `json:"growth_rate"` // 相比上周，上周为 0 时为 0
	ByReason        []repository.ReasonSum `json:"by_reason"`
	TotalExperience int64                  `json:"total_experience"`
}

// Weekly now 所在 ISO 周（周一 00:00 起，按 now 的时区）
func (r *ExperienceReport) Weekly(ctx context.Context, studentID, classID int64, now time.Time) (*WeeklyReport, error) {
	c, err := r.experience.Character(ctx, studentID, classID)
	if err != nil {
		return nil, err
	}

	start, end := repository.WeekRange(now)
	prevStart := start.AddDate(0, 0, -7)

	thisWeek, err := r.events.SumByTimeRange(ctx, studentID, classID, start, end)
	if err != nil {
		return nil, err
	}
	prevWeek, err := r.events.SumByTimeRange(ctx, studentID, classID, prevStart, start)
	if err != nil {
		return nil, err
	}
	byReason, err := r.events.SumByReason(ctx, studentID, classID, start, end)
	if err != nil {
		return nil, err
	}

	growth := 0.0
	if prevWeek != 0 {
		growth = round2(float64(thisWeek-prevWeek) / float64(prevWeek) * 100)
	}

	return &WeeklyReport{
		WeekStart:       start.Format("2006-01-02"),
		WeekEnd:         end.AddDate(0, 0, -1).Format("2006-01-02"),
		ThisWeek:        thisWeek,
		PreviousWeek:    prevWeek,
		GrowthRate:      growth,
		ByReason:        byReason,
		TotalExperience: c.TotalExperience,
	}, nil
}

// BadgeView 已获徽章
type BadgeView struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	AwardedAt time.Time `json:"awarded_at"`
}

// StudentStatus 学生在班级中的进度概览
type StudentStatus struct {
	StudentID       int64       `json:"student_id"`
	ClassID         int64       `json:"class_id"`
	Archetype       string      `json:"archetype"`
	Level           int         `json:"level"`
	TotalExperience int64       `json:"total_experience"`
	NextThreshold   *int64      `json:"next_threshold,omitempty"` // 满级时为空
	LevelProgress   float64     `json:"level_progress"`
	Balance         int64       `json:"balance"`
	Badges          []BadgeView `json:"badges"`
}

// Status 等级、经验、余额、徽章
func (r *ExperienceReport) Status(ctx context.Context, studentID, classID int64) (*StudentStatus, error) {
	c, err := r.experience.Character(ctx, studentID, classID)
	if err != nil {
		return nil, err
	}
	levels := r.experience.Levels()

	st := &StudentStatus{
		StudentID:       studentID,
		ClassID:         classID,
		Archetype:       c.Archetype,
		Level:           c.Level,
		TotalExperience: c.TotalExperience,
		LevelProgress:   levels.Progress(c.TotalExperience),
	}
	if next, ok := levels.ThresholdFor(c.Level); ok {
		st.NextThreshold = &next
	}

	st.Balance, err = r.currency.Balance(ctx, studentID, classID)
	if err != nil {
		return nil, err
	}

	awards, defs, err := r.badges.Awards(ctx, studentID, classID)
	if err != nil {
		return nil, err
	}
	st.Badges = make([]BadgeView, 0, len(awards))
	for _, a := range awards {
		def := defs[a.BadgeID]
		st.Badges = append(st.Badges, BadgeView{Code: def.Code, Name: def.Name, AwardedAt: a.AwardedAt})
	}
	return st, nil
}
