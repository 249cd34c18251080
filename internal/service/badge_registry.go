package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/schema"
)

// AwardResult 本次新授予的徽章
type AwardResult struct {
	Award           schema.BadgeAward
	Badge           schema.BadgeDefinition
	Progress        int64
	BonusExperience int64
	LevelChange     LevelChange
	Notification    schema.Notification
}

// BadgeAwardRegistry 评估并授予徽章；唯一索引保证每个 (学生, 徽章, 班级) 至多一条
type BadgeAwardRegistry struct {
	badges     BadgeRepository
	evaluator  *BadgeEvaluator
	experience *ExperienceLedger
	settings   *SettingsResolver
	metrics    Metrics
	now        func() time.Time
}

func NewBadgeAwardRegistry(badges BadgeRepository, evaluator *BadgeEvaluator, experience *ExperienceLedger, settings *SettingsResolver, metrics Metrics) *BadgeAwardRegistry {
	return &BadgeAwardRegistry{
		badges:     badges,
		evaluator:  evaluator,
		experience: experience,
		settings:   settings,
		metrics:    metricsOrNoop(metrics),
		now:        time.Now,
	}
}

// EvaluateAndAward 返回本次新授予的徽章；没有新满足的条件时返回空
// 徽章奖励经验可能让等级类徽章达成，所以循环到没有新徽章为止
func (r *BadgeAwardRegistry) EvaluateAndAward(ctx context.Context, studentID, classID int64) ([]AwardResult, error) {
	s, err := r.settings.For(ctx, classID)
	if err != nil {
		return nil, err
	}
	defs, err := r.badges.ListActive(ctx, classID)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, nil
	}
	awarded, err := r.badges.AwardedBadgeIDs(ctx, studentID, classID)
	if err != nil {
		return nil, err
	}

	var out []AwardResult
	for round := 0; round < len(defs); round++ {
		granted := false
		for _, def := range defs {
			if _, ok := awarded[def.ID]; ok {
				continue
			}
			if !def.CriterionType.Valid() {
				slog.Warn("未知的徽章条件类型，跳过", "badge_id", def.ID, "code", def.Code, "criterion", def.CriterionType)
				awarded[def.ID] = struct{}{}
				continue
			}
			progress, err := r.evaluator.progress(ctx, def, studentID, classID, s)
			if err != nil {
				return nil, err
			}
			if !r.evaluator.IsComplete(def, progress) {
				continue
			}

			res, ok, err := r.award(ctx, def, progress, studentID, classID, s)
			if err != nil {
				return nil, err
			}
			awarded[def.ID] = struct{}{}
			if !ok {
				// 并发请求已经授予，视为无操作
				slog.Debug("徽章已被并发授予", "student_id", studentID, "class_id", classID, "badge", def.Code)
				continue
			}
			out = append(out, res)
			granted = true
		}
		if !granted {
			break
		}
	}
	return out, nil
}

func (r *BadgeAwardRegistry) award(ctx context.Context, def schema.BadgeDefinition, progress, studentID, classID int64, s ProgressionSettings) (AwardResult, bool, error) {
	award := schema.BadgeAward{
		StudentID: studentID,
		BadgeID:   def.ID,
		ClassID:   classID,
		AwardedAt: r.now(),
	}
	ok, err := r.badges.CreateAward(ctx, &award)
	if err != nil || !ok {
		return AwardResult{}, false, err
	}

	res := AwardResult{Award: award, Badge: def, Progress: progress}
	if bonus := s.BadgeBonus(def.RequiredValue); bonus > 0 {
		change, err := r.experience.Apply(ctx, studentID, classID, bonus, ReasonBadgeBonus, fmt.Sprintf("badge:%d", def.ID))
		if err != nil {
			return AwardResult{}, false, err
		}
		res.BonusExperience = bonus
		res.LevelChange = change
	}
	res.Notification = badgeAwardedNotification(studentID, classID, def, res.BonusExperience)

	metricsFor(ctx, r.metrics).BadgeAwarded(def.Code)
	slog.Info("授予徽章", "student_id", studentID, "class_id", classID, "badge", def.Code, "bonus_exp", res.BonusExperience)
	return res, true, nil
}

// Awards 学生在班级中已获得的徽章及定义
func (r *BadgeAwardRegistry) Awards(ctx context.Context, studentID, classID int64) ([]schema.BadgeAward, map[int64]schema.BadgeDefinition, error) {
	awards, err := r.badges.ListAwards(ctx, studentID, classID)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]int64, 0, len(awards))
	for _, a := range awards {
		ids = append(ids, a.BadgeID)
	}
	defs, err := r.badges.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return awards, defs, nil
}
