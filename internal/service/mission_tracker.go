package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/schema"
)

// MissionResult 一次任务进度刷新的结果
type MissionResult struct {
	Mission         schema.Mission
	Progress        schema.MissionProgress
	JustCompleted   bool
	ExperienceBonus int64 // 本次发放的经验奖励
	CurrencyBonus   int64 // 本次发放的货币奖励
	LevelChange     *LevelChange
	Notification    *schema.Notification // 仅在刚完成时生成
}

// MissionProgressTracker 聚合任务下活动的完成情况
// 完成状态是单向的：一旦完成不会因成绩修改而回退
type MissionProgressTracker struct {
	missions   MissionRepository
	classroom  ClassroomRepository
	experience *ExperienceLedger
	currency   *CurrencyLedger
	settings   *SettingsResolver
	metrics    Metrics
	now        func() time.Time
}

func NewMissionProgressTracker(missions MissionRepository, classroom ClassroomRepository, experience *ExperienceLedger, currency *CurrencyLedger, settings *SettingsResolver, metrics Metrics) *MissionProgressTracker {
	return &MissionProgressTracker{
		missions:   missions,
		classroom:  classroom,
		experience: experience,
		currency:   currency,
		settings:   settings,
		metrics:    metricsOrNoop(metrics),
		now:        time.Now,
	}
}

// Refresh 重算任务进度；任务下没有活动时返回 0% 且不落库
func (t *MissionProgressTracker) Refresh(ctx context.Context, missionID, studentID int64) (MissionResult, error) {
	const op = "MissionProgressTracker.Refresh"
	m, err := t.missions.GetByID(ctx, missionID)
	if err != nil {
		return MissionResult{}, err
	}
	if m == nil {
		return MissionResult{}, newError(op, ErrNotFound, "任务不存在: %d", missionID)
	}
	res := MissionResult{
		Mission:  *m,
		Progress: schema.MissionProgress{MissionID: missionID, StudentID: studentID},
	}

	total, err := t.missions.CountActivities(ctx, missionID)
	if err != nil {
		return MissionResult{}, err
	}
	if total == 0 {
		return res, nil
	}

	s, err := t.settings.For(ctx, m.ClassID)
	if err != nil {
		return MissionResult{}, err
	}
	passed, err := t.missions.CountPassedActivities(ctx, missionID, studentID, s.PassingScore)
	if err != nil {
		return MissionResult{}, err
	}
	percent := min(round2(float64(passed)/float64(total)*100), 100)

	p, err := t.missions.EnsureProgress(ctx, missionID, studentID)
	if err != nil {
		return MissionResult{}, err
	}
	shown := percent
	if p.Completed {
		shown = 100
	}
	if err := t.missions.UpdateCounts(ctx, p.ID, int(passed), int(total), shown); err != nil {
		return MissionResult{}, err
	}

	if !p.Completed && percent >= 100 {
		ok, err := t.missions.MarkCompleted(ctx, p.ID, t.now())
		if err != nil {
			return MissionResult{}, err
		}
		res.JustCompleted = ok
	}

	if p.Completed || res.JustCompleted {
		if err := t.grantBonuses(ctx, p.ID, m, studentID, &res); err != nil {
			return MissionResult{}, err
		}
	}

	if res.JustCompleted {
		n := missionCompletedNotification(studentID, *m)
		res.Notification = &n
		metricsFor(ctx, t.metrics).MissionCompleted()
		slog.Info("任务完成", "mission_id", missionID, "student_id", studentID, "class_id", m.ClassID)
	}

	latest, err := t.missions.GetProgress(ctx, missionID, studentID)
	if err != nil {
		return MissionResult{}, err
	}
	if latest != nil {
		res.Progress = *latest
	}
	return res, nil
}

// grantBonuses 经验与货币奖励各自由标记位控制，只补发尚未发放的部分
func (t *MissionProgressTracker) grantBonuses(ctx context.Context, progressID int64, m *schema.Mission, studentID int64, res *MissionResult) error {
	sourceRef := fmt.Sprintf("mission:%d", m.ID)

	ok, err := t.missions.MarkExperienceBonusGranted(ctx, progressID)
	if err != nil {
		return err
	}
	if ok && m.BonusExperience > 0 {
		change, err := t.experience.Apply(ctx, studentID, m.ClassID, m.BonusExperience, ReasonMissionBonus, sourceRef)
		if err != nil {
			return err
		}
		res.ExperienceBonus = m.BonusExperience
		res.LevelChange = &change
	}

	ok, err = t.missions.MarkCurrencyBonusGranted(ctx, progressID)
	if err != nil {
		return err
	}
	if ok && m.BonusCurrency > 0 {
		if _, err := t.currency.Append(ctx, TransactionInput{
			StudentID: studentID,
			ClassID:   m.ClassID,
			Direction: schema.CurrencyCredit,
			Amount:    m.BonusCurrency,
			Reason:    ReasonMissionBonus,
			SourceRef: sourceRef,
		}); err != nil {
			return err
		}
		res.CurrencyBonus = m.BonusCurrency
	}
	return nil
}

// RefreshForActivity 刷新活动所属的任务；活动未挂任务或任务已停用时返回空
func (t *MissionProgressTracker) RefreshForActivity(ctx context.Context, activityID, studentID int64) ([]MissionResult, error) {
	a, err := t.classroom.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, newError("MissionProgressTracker.RefreshForActivity", ErrNotFound, "活动不存在: %d", activityID)
	}
	if a.MissionID == 0 {
		return nil, nil
	}
	m, err := t.missions.GetByID(ctx, a.MissionID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.Active {
		return nil, nil
	}
	res, err := t.Refresh(ctx, m.ID, studentID)
	if err != nil {
		return nil, err
	}
	return []MissionResult{res}, nil
}

// RefreshAll 刷新班级下全部启用的任务
func (t *MissionProgressTracker) RefreshAll(ctx context.Context, studentID, classID int64) ([]MissionResult, error) {
	missions, err := t.missions.ListActiveByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	out := make([]MissionResult, 0, len(missions))
	for _, m := range missions {
		res, err := t.Refresh(ctx, m.ID, studentID)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}
