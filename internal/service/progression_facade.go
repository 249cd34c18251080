package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/repository"
	"github.com/yuqie6/SchoolQuest/internal/schema"
)

// SubmissionGrade 一次批改结果（调用方已完成权限与范围校验）
type SubmissionGrade struct {
	SubmissionID  int64   `validate:"gte=0"` // 可选：外部系统的提交 ID
	ActivityID    int64   `validate:"gt=0"`
	StudentID     int64   `validate:"gt=0"`
	ClassID       int64   `validate:"gt=0"`
	Score         float64 `validate:"finite,gte=0"`
	MaxScore      float64 `validate:"finite,gte=0"`  // 0 表示使用班级 max_score
	MaxExperience *int64  `validate:"omitnil,gte=0"` // 为空表示使用活动或班级默认值，0 表示本次不发放经验
	MaxCurrency   *int64  `validate:"omitnil,gte=0"` // 同上
	SubmittedAt   time.Time
}

type BehaviorEvent struct {
	StudentID  int64                   `validate:"gt=0"`
	ClassID    int64                   `validate:"gt=0"`
	Category   schema.BehaviorCategory `validate:"behavior_category"`
	Points     int64
	Note       string
	RecordedAt time.Time
}

type AttendanceEvent struct {
	StudentID int64                   `validate:"gt=0"`
	ClassID   int64                   `validate:"gt=0"`
	Date      string                  `validate:"day"` // YYYY-MM-DD
	Status    schema.AttendanceStatus `validate:"attendance_status"`
}

type PurchaseRequest struct {
	StudentID int64 `validate:"gt=0"`
	ClassID   int64 `validate:"gt=0"`
	ItemID    int64 `validate:"gt=0"`
}

// GradeOutcome 批改事件产生的全部状态变化
type GradeOutcome struct {
	Submission    schema.Submission
	Reward        Reward
	Rewarded      bool // false 表示该提交此前已发放过奖励（重复批改/重复投递）
	LevelChange   LevelChange
	Missions      []MissionResult
	Badges        []AwardResult
	Notifications []schema.Notification
}

type BehaviorOutcome struct {
	Record        schema.BehaviorRecord
	LevelChange   LevelChange
	Badges        []AwardResult
	Notifications []schema.Notification
}

type AttendanceOutcome struct {
	Record        schema.AttendanceRecord
	LevelChange   LevelChange
	Badges        []AwardResult
	Notifications []schema.Notification
}

type MissionCheckOutcome struct {
	Missions      []MissionResult
	LevelChange   LevelChange
	Badges        []AwardResult
	Notifications []schema.Notification
}

type PurchaseOutcome struct {
	Item          schema.StoreItem
	TransactionID string
	Balance       int64
	Notifications []schema.Notification
}

// ProgressionDeps 门面依赖
type ProgressionDeps struct {
	Tx            Transactor
	Locker        Locker
	Classroom     ClassroomRepository
	Grants        RewardGrantRepository
	Notifications NotificationRepository
	Publisher     Publisher
	Settings      *SettingsResolver
	Experience    *ExperienceLedger
	Currency      *CurrencyLedger
	Badges        *BadgeAwardRegistry
	Missions      *MissionProgressTracker
	Metrics       Metrics
}

// ProgressionFacade 每个外部事件：加 (学生, 班级) 锁 → 单事务 → 提交后分发通知
type ProgressionFacade struct {
	ProgressionDeps
	now func() time.Time
}

func NewProgressionFacade(deps ProgressionDeps) *ProgressionFacade {
	deps.Metrics = metricsOrNoop(deps.Metrics)
	return &ProgressionFacade{ProgressionDeps: deps, now: time.Now}
}

func lockKey(studentID, classID int64) string {
	return fmt.Sprintf("progression:%d:%d", studentID, classID)
}

// run 加锁并在单个事务中执行 fn；fn 返回的通知在事务内写入发件箱，提交后再分发
// 事务内产生的业务指标同样在提交后才上报
func (f *ProgressionFacade) run(ctx context.Context, op string, studentID, classID int64, fn func(ctx context.Context) ([]schema.Notification, error)) (err error) {
	start := f.now()
	defer func() {
		f.Metrics.ObserveEvent(op, outcomeLabel(err), time.Since(start))
	}()

	if f.Locker != nil {
		unlock, err := f.Locker.Lock(ctx, lockKey(studentID, classID))
		if err != nil {
			return err
		}
		defer unlock()
	}

	txCtx, pending := withMetricsBuffer(ctx)
	var notes []schema.Notification
	err = f.Tx.Transaction(txCtx, func(ctx context.Context) error {
		out, err := fn(ctx)
		if err != nil {
			return err
		}
		if f.Notifications != nil {
			if err := f.Notifications.BatchInsert(ctx, out); err != nil {
				return err
			}
		}
		notes = out
		return nil
	})
	if err != nil {
		slog.Warn("进度事件处理失败，已回滚", "op", op, "student_id", studentID, "class_id", classID, "error", err)
		return err
	}

	pending.flush()
	f.publish(ctx, notes)
	return nil
}

// publish 提交后分发，失败只记录日志，不影响已提交的状态
func (f *ProgressionFacade) publish(ctx context.Context, notes []schema.Notification) {
	if len(notes) == 0 || f.Publisher == nil {
		return
	}
	ids := make([]string, 0, len(notes))
	for _, n := range notes {
		f.Publisher.Publish(n)
		ids = append(ids, n.ID)
	}
	if f.Notifications == nil {
		return
	}
	if err := f.Notifications.MarkDelivered(ctx, ids, f.now()); err != nil {
		slog.Warn("标记通知已投递失败", "count", len(ids), "error", err)
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	for _, kind := range []error{ErrNotFound, ErrInvalidInput, ErrInvalidAmount, ErrInvalidScore, ErrInsufficientFunds, ErrConcurrencyConflict, ErrConfiguration} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "error"
}

// Enroll 学生加入班级时创建角色
func (f *ProgressionFacade) Enroll(ctx context.Context, studentID, classID int64, archetype string) (*schema.Character, error) {
	var out *schema.Character
	err := f.run(ctx, "enroll", studentID, classID, func(ctx context.Context) ([]schema.Notification, error) {
		c, err := f.Experience.Enroll(ctx, studentID, classID, archetype)
		out = c
		return nil, err
	})
	return out, err
}

// OnSubmissionGraded 记录成绩 →（首次）计算奖励 → 经验 → 货币 → 刷新任务 → 评估徽章
func (f *ProgressionFacade) OnSubmissionGraded(ctx context.Context, in SubmissionGrade) (*GradeOutcome, error) {
	const op = "ProgressionFacade.OnSubmissionGraded"
	if err := checkInput(op, in); err != nil {
		return nil, err
	}

	out := &GradeOutcome{}
	err := f.run(ctx, "submission_graded", in.StudentID, in.ClassID, func(ctx context.Context) ([]schema.Notification, error) {
		before, err := f.Experience.Character(ctx, in.StudentID, in.ClassID)
		if err != nil {
			return nil, err
		}
		activity, err := f.Classroom.GetActivity(ctx, in.ActivityID)
		if err != nil {
			return nil, err
		}
		if activity == nil || activity.ClassID != in.ClassID {
			return nil, newError(op, ErrNotFound, "活动不存在: %d (class=%d)", in.ActivityID, in.ClassID)
		}
		s, err := f.Settings.For(ctx, in.ClassID)
		if err != nil {
			return nil, err
		}
		maxScore := in.MaxScore
		if maxScore == 0 {
			maxScore = s.MaxScore
		}
		if in.Score > maxScore {
			return nil, newError(op, ErrInvalidScore, "分数超出满分: %v > %v", in.Score, maxScore)
		}

		submittedAt := in.SubmittedAt
		if submittedAt.IsZero() {
			submittedAt = f.now()
		}
		gradedAt := f.now()
		score := in.Score
		sub, err := f.Classroom.RecordGrade(ctx, &schema.Submission{
			ID:          in.SubmissionID,
			ActivityID:  in.ActivityID,
			StudentID:   in.StudentID,
			ClassID:     in.ClassID,
			Score:       &score,
			SubmittedAt: submittedAt,
			GradedAt:    &gradedAt,
		})
		if err != nil {
			return nil, err
		}
		out.Submission = *sub

		reward, err := s.Policy().ComputeReward(
			rewardBase(s.DefaultExperience, in.MaxExperience, activity.MaxExperience),
			rewardBase(s.DefaultCurrency, in.MaxCurrency, activity.MaxCurrency),
			in.Score, maxScore,
		)
		if err != nil {
			return nil, err
		}
		out.Reward = reward

		out.Rewarded, err = f.Grants.TryCreate(ctx, &schema.RewardGrant{
			Source:     repository.GrantSourceSubmission,
			SourceID:   sub.ID,
			StudentID:  in.StudentID,
			ClassID:    in.ClassID,
			Experience: reward.Experience,
			Currency:   reward.Currency,
		})
		if err != nil {
			return nil, err
		}
		if out.Rewarded {
			sourceRef := fmt.Sprintf("submission:%d", sub.ID)
			if reward.Experience > 0 {
				if _, err := f.Experience.Apply(ctx, in.StudentID, in.ClassID, reward.Experience, ReasonActivityGraded, sourceRef); err != nil {
					return nil, err
				}
			}
			if reward.Currency > 0 {
				if _, err := f.Currency.Append(ctx, TransactionInput{
					StudentID: in.StudentID,
					ClassID:   in.ClassID,
					Direction: schema.CurrencyCredit,
					Amount:    reward.Currency,
					Reason:    ReasonActivityGraded,
					SourceRef: sourceRef,
				}); err != nil {
					return nil, err
				}
			}
		} else {
			slog.Info("提交已发放过奖励，仅更新成绩", "submission_id", sub.ID, "student_id", in.StudentID)
		}

		out.Missions, err = f.Missions.RefreshForActivity(ctx, in.ActivityID, in.StudentID)
		if err != nil {
			return nil, err
		}
		out.Badges, err = f.Badges.EvaluateAndAward(ctx, in.StudentID, in.ClassID)
		if err != nil {
			return nil, err
		}

		out.LevelChange, err = f.levelChangeSince(ctx, before)
		if err != nil {
			return nil, err
		}
		out.Notifications = collectNotifications(in.StudentID, in.ClassID, out.LevelChange, out.Missions, out.Badges)
		return out.Notifications, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OnBehaviorLogged 正向行为分直接转为经验，随后评估徽章
func (f *ProgressionFacade) OnBehaviorLogged(ctx context.Context, in BehaviorEvent) (*BehaviorOutcome, error) {
	const op = "ProgressionFacade.OnBehaviorLogged"
	if err := checkInput(op, in); err != nil {
		return nil, err
	}

	out := &BehaviorOutcome{}
	err := f.run(ctx, "behavior_logged", in.StudentID, in.ClassID, func(ctx context.Context) ([]schema.Notification, error) {
		before, err := f.Experience.Character(ctx, in.StudentID, in.ClassID)
		if err != nil {
			return nil, err
		}
		rec := schema.BehaviorRecord{
			StudentID:  in.StudentID,
			ClassID:    in.ClassID,
			Category:   in.Category,
			Points:     in.Points,
			Note:       in.Note,
			RecordedAt: in.RecordedAt,
		}
		if rec.RecordedAt.IsZero() {
			rec.RecordedAt = f.now()
		}
		if err := f.Classroom.CreateBehavior(ctx, &rec); err != nil {
			return nil, err
		}
		out.Record = rec

		if in.Points > 0 {
			if _, err := f.Experience.Apply(ctx, in.StudentID, in.ClassID, in.Points, ReasonBehavior, fmt.Sprintf("behavior:%d", rec.ID)); err != nil {
				return nil, err
			}
		}
		out.Badges, err = f.Badges.EvaluateAndAward(ctx, in.StudentID, in.ClassID)
		if err != nil {
			return nil, err
		}
		out.LevelChange, err = f.levelChangeSince(ctx, before)
		if err != nil {
			return nil, err
		}
		out.Notifications = collectNotifications(in.StudentID, in.ClassID, out.LevelChange, nil, out.Badges)
		return out.Notifications, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OnAttendanceRecorded 记录考勤后评估徽章（连续出勤类）
func (f *ProgressionFacade) OnAttendanceRecorded(ctx context.Context, in AttendanceEvent) (*AttendanceOutcome, error) {
	const op = "ProgressionFacade.OnAttendanceRecorded"
	if err := checkInput(op, in); err != nil {
		return nil, err
	}

	out := &AttendanceOutcome{}
	err := f.run(ctx, "attendance_recorded", in.StudentID, in.ClassID, func(ctx context.Context) ([]schema.Notification, error) {
		before, err := f.Experience.Character(ctx, in.StudentID, in.ClassID)
		if err != nil {
			return nil, err
		}
		rec := schema.AttendanceRecord{StudentID: in.StudentID, ClassID: in.ClassID, Date: in.Date, Status: in.Status}
		if err := f.Classroom.UpsertAttendance(ctx, &rec); err != nil {
			return nil, err
		}
		out.Record = rec

		out.Badges, err = f.Badges.EvaluateAndAward(ctx, in.StudentID, in.ClassID)
		if err != nil {
			return nil, err
		}
		out.LevelChange, err = f.levelChangeSince(ctx, before)
		if err != nil {
			return nil, err
		}
		out.Notifications = collectNotifications(in.StudentID, in.ClassID, out.LevelChange, nil, out.Badges)
		return out.Notifications, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckMissions 刷新班级全部任务并评估徽章
func (f *ProgressionFacade) CheckMissions(ctx context.Context, studentID, classID int64) (*MissionCheckOutcome, error) {
	if studentID <= 0 || classID <= 0 {
		return nil, newError("ProgressionFacade.CheckMissions", ErrInvalidInput, "student/class 必须为正")
	}

	out := &MissionCheckOutcome{}
	err := f.run(ctx, "mission_check", studentID, classID, func(ctx context.Context) ([]schema.Notification, error) {
		before, err := f.Experience.Character(ctx, studentID, classID)
		if err != nil {
			return nil, err
		}
		out.Missions, err = f.Missions.RefreshAll(ctx, studentID, classID)
		if err != nil {
			return nil, err
		}
		out.Badges, err = f.Badges.EvaluateAndAward(ctx, studentID, classID)
		if err != nil {
			return nil, err
		}
		out.LevelChange, err = f.levelChangeSince(ctx, before)
		if err != nil {
			return nil, err
		}
		out.Notifications = collectNotifications(studentID, classID, out.LevelChange, out.Missions, out.Badges)
		return out.Notifications, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OnPurchase 原子地检查余额并扣款；物品本身的效果不在引擎范围内
func (f *ProgressionFacade) OnPurchase(ctx context.Context, in PurchaseRequest) (*PurchaseOutcome, error) {
	const op = "ProgressionFacade.OnPurchase"
	if err := checkInput(op, in); err != nil {
		return nil, err
	}

	out := &PurchaseOutcome{}
	err := f.run(ctx, "purchase", in.StudentID, in.ClassID, func(ctx context.Context) ([]schema.Notification, error) {
		item, err := f.Classroom.GetStoreItem(ctx, in.ItemID)
		if err != nil {
			return nil, err
		}
		if item == nil || item.ClassID != in.ClassID {
			return nil, newError(op, ErrNotFound, "商品不存在: %d (class=%d)", in.ItemID, in.ClassID)
		}
		if !item.Active {
			return nil, newError(op, ErrInvalidInput, "商品已下架: %d", item.ID)
		}
		out.Item = *item

		txID, err := f.Currency.Spend(ctx, in.StudentID, in.ClassID, item.Price, ReasonPurchase, fmt.Sprintf("item:%d", item.ID))
		if err != nil {
			return nil, err
		}
		out.TransactionID = txID

		out.Balance, err = f.Currency.Balance(ctx, in.StudentID, in.ClassID)
		if err != nil {
			return nil, err
		}
		out.Notifications = []schema.Notification{purchaseNotification(in.StudentID, *item, txID, out.Balance)}
		return out.Notifications, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// levelChangeSince 汇总一次事件内的等级变化（成绩、任务奖励、徽章奖励合并计算）
func (f *ProgressionFacade) levelChangeSince(ctx context.Context, before *schema.Character) (LevelChange, error) {
	after, err := f.Experience.Character(ctx, before.StudentID, before.ClassID)
	if err != nil {
		return LevelChange{}, err
	}
	return LevelChange{
		CharacterID:        before.ID,
		PreviousLevel:      before.Level,
		NewLevel:           after.Level,
		PreviousExperience: before.TotalExperience,
		NewExperience:      after.TotalExperience,
		LeveledUp:          after.Level > before.Level,
	}, nil
}

// collectNotifications 顺序：升级 → 任务完成 → 徽章
func collectNotifications(studentID, classID int64, change LevelChange, missions []MissionResult, badges []AwardResult) []schema.Notification {
	var out []schema.Notification
	if change.LeveledUp {
		out = append(out, levelUpNotification(studentID, classID, change.PreviousLevel, change.NewLevel))
	}
	for _, m := range missions {
		if m.Notification != nil {
			out = append(out, *m.Notification)
		}
	}
	for _, b := range badges {
		out = append(out, b.Notification)
	}
	return out
}

// rewardBase 取第一个显式设置的值（含 0），都未设置时用班级默认值
func rewardBase(fallback int64, values ...*int64) int64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return fallback
}
