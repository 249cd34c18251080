package service

import (
	"context"
	"log/slog"

	"github.com/yuqie6/SchoolQuest/internal/repository"
	"github.com/yuqie6/SchoolQuest/internal/schema"
)

// BadgeEvaluator 计算学生在某个徽章条件上的当前进度，无副作用
type BadgeEvaluator struct {
	characters CharacterRepository
	stats      ActivityStatsRepository
	settings   *SettingsResolver
}

func NewBadgeEvaluator(characters CharacterRepository, stats ActivityStatsRepository, settings *SettingsResolver) *BadgeEvaluator {
	return &BadgeEvaluator{characters: characters, stats: stats, settings: settings}
}

// ProgressFor 未知条件类型返回 0（记录日志，不视为错误）
func (e *BadgeEvaluator) ProgressFor(ctx context.Context, badge schema.BadgeDefinition, studentID, classID int64) (int64, error) {
	s, err := e.settings.For(ctx, classID)
	if err != nil {
		return 0, err
	}
	return e.progress(ctx, badge, studentID, classID, s)
}

// IsComplete 未知条件类型恒为 false
func (e *BadgeEvaluator) IsComplete(badge schema.BadgeDefinition, progress int64) bool {
	return badge.CriterionType.Valid() && progress >= badge.RequiredValue
}

func (e *BadgeEvaluator) progress(ctx context.Context, badge schema.BadgeDefinition, studentID, classID int64, s ProgressionSettings) (int64, error) {
	switch badge.CriterionType {
	case schema.CriterionLevelReached, schema.CriterionTotalExperience:
		c, err := e.characters.Get(ctx, studentID, classID)
		if err != nil || c == nil {
			return 0, err
		}
		if badge.CriterionType == schema.CriterionLevelReached {
			return int64(c.Level), nil
		}
		return c.TotalExperience, nil

	case schema.CriterionActivitiesCompleted:
		return e.stats.CountPassedActivities(ctx, studentID, classID, s.PassingScore)

	case schema.CriterionFirstSubmission:
		n, err := e.stats.CountSubmissions(ctx, studentID, classID)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return 1, nil
		}
		return 0, nil

	case schema.CriterionPerfectAttendanceStreak:
		statuses, err := e.stats.ListAttendanceStatuses(ctx, studentID, classID)
		if err != nil {
			return 0, err
		}
		return currentStreak(statuses, func(st schema.AttendanceStatus) bool {
			return st == schema.AttendancePresent
		}), nil

	case schema.CriterionPositiveBehaviorStreak:
		points, err := e.stats.ListBehaviorPoints(ctx, studentID, classID)
		if err != nil {
			return 0, err
		}
		return currentStreak(points, func(p int64) bool { return p > 0 }), nil

	case schema.CriterionOnTimeSubmissionStreak:
		timings, err := e.stats.ListSubmissionTimings(ctx, studentID, classID)
		if err != nil {
			return 0, err
		}
		return currentStreak(timings, func(t repository.SubmissionTiming) bool {
			return t.DueAt == nil || !t.SubmittedAt.After(*t.DueAt)
		}), nil

	case schema.CriterionParticipationCount:
		return e.stats.CountPositiveBehavior(ctx, studentID, classID, schema.BehaviorParticipation)

	default:
		slog.Warn("未知的徽章条件类型，跳过", "badge_id", badge.ID, "code", badge.Code, "criterion", badge.CriterionType)
		return 0, nil
	}
}

// currentStreak 从最近一条开始数连续满足条件的记录，遇到第一条不满足即停止
func currentStreak[T any](history []T, qualifies func(T) bool) int64 {
	var n int64
	for _, item := range history {
		if !qualifies(item) {
			break
		}
		n++
	}
	return n
}
