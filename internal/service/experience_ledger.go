package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuqie6/SchoolQuest/internal/schema"
)

const defaultCASRetries = 5

// LevelChange 一次经验变更前后的状态
type LevelChange struct {
	CharacterID        int64
	PreviousLevel      int
	NewLevel           int
	PreviousExperience int64
	NewExperience      int64
	LeveledUp          bool
}

// Applied 实际变化量（截断后）
func (c LevelChange) Applied() int64 {
	return c.NewExperience - c.PreviousExperience
}

// ExperienceLedger 角色经验与等级的唯一写入口
type ExperienceLedger struct {
	tx         Transactor
	characters CharacterRepository
	events     ExperienceEventRepository
	levels     *LevelTable
	metrics    Metrics
	maxRetries int
	now        func() time.Time
}

func NewExperienceLedger(tx Transactor, characters CharacterRepository, events ExperienceEventRepository, levels *LevelTable, metrics Metrics) *ExperienceLedger {
	return &ExperienceLedger{
		tx:         tx,
		characters: characters,
		events:     events,
		levels:     levels,
		metrics:    metricsOrNoop(metrics),
		maxRetries: defaultCASRetries,
		now:        time.Now,
	}
}

func (l *ExperienceLedger) Levels() *LevelTable {
	return l.levels
}

// Enroll 为学生在班级中创建角色；已存在时原样返回
func (l *ExperienceLedger) Enroll(ctx context.Context, studentID, classID int64, archetype string) (*schema.Character, error) {
	const op = "ExperienceLedger.Enroll"
	if studentID <= 0 || classID <= 0 {
		return nil, newError(op, ErrInvalidInput, "student_id/class_id 必须为正: %d/%d", studentID, classID)
	}
	var out *schema.Character
	err := l.tx.Transaction(ctx, func(ctx context.Context) error {
		created, err := l.characters.CreateIfAbsent(ctx, &schema.Character{
			StudentID: studentID,
			ClassID:   classID,
			Archetype: strings.TrimSpace(archetype),
			Level:     l.levels.LevelFor(0),
		})
		if err != nil {
			return err
		}
		if created {
			slog.Info("角色已创建", "student_id", studentID, "class_id", classID, "archetype", archetype)
		}
		out, err = l.characters.Get(ctx, studentID, classID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Character 查询角色，不存在返回 ErrNotFound
func (l *ExperienceLedger) Character(ctx context.Context, studentID, classID int64) (*schema.Character, error) {
	c, err := l.characters.Get(ctx, studentID, classID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, newError("ExperienceLedger.Character", ErrNotFound, "角色不存在: student=%d class=%d", studentID, classID)
	}
	return c, nil
}

// Apply 增减经验并重算等级；总经验不低于 0
// 版本号 CAS + 有限重试，重试耗尽返回 ErrConcurrencyConflict
func (l *ExperienceLedger) Apply(ctx context.Context, studentID, classID, delta int64, reason, sourceRef string) (LevelChange, error) {
	const op = "ExperienceLedger.Apply"

	var change LevelChange
	err := l.tx.Transaction(ctx, func(ctx context.Context) error {
		for attempt := 0; attempt < l.maxRetries; attempt++ {
			c, err := l.characters.GetForUpdate(ctx, studentID, classID)
			if err != nil {
				return err
			}
			if c == nil {
				return newError(op, ErrNotFound, "角色不存在: student=%d class=%d", studentID, classID)
			}

			change = LevelChange{
				CharacterID:        c.ID,
				PreviousLevel:      c.Level,
				NewLevel:           c.Level,
				PreviousExperience: c.TotalExperience,
				NewExperience:      c.TotalExperience,
			}
			if delta == 0 {
				return nil
			}

			newExp := max(c.TotalExperience+delta, 0)
			newLevel := l.levels.LevelFor(newExp)
			ok, err := l.characters.CompareAndSwapExperience(ctx, c.ID, c.Version, newExp, newLevel)
			if err != nil {
				return err
			}
			if !ok {
				l.metrics.ConcurrencyRetry(op)
				slog.Debug("角色版本冲突，重试", "student_id", studentID, "class_id", classID, "attempt", attempt+1)
				continue
			}

			change.NewExperience = newExp
			change.NewLevel = newLevel
			change.LeveledUp = newLevel > c.Level

			if err := l.events.Append(ctx, &schema.ExperienceEvent{
				ID:                 uuid.NewString(),
				CharacterID:        c.ID,
				StudentID:          studentID,
				ClassID:            classID,
				Delta:              change.Applied(),
				RequestedDelta:     delta,
				Reason:             reason,
				SourceRef:          sourceRef,
				PreviousExperience: change.PreviousExperience,
				NewExperience:      newExp,
				PreviousLevel:      change.PreviousLevel,
				NewLevel:           newLevel,
				CreatedAt:          l.now(),
			}); err != nil {
				return err
			}
			return nil
		}
		return newError(op, ErrConcurrencyConflict, "角色经验更新重试 %d 次仍冲突", l.maxRetries)
	})
	if err != nil {
		return LevelChange{}, err
	}

	if change.Applied() != 0 {
		metricsFor(ctx, l.metrics).ExperienceApplied(reason, change.Applied())
	}
	if change.LeveledUp {
		metricsFor(ctx, l.metrics).LevelUp()
		slog.Info("角色升级", "student_id", studentID, "class_id", classID, "from", change.PreviousLevel, "to", change.NewLevel)
	}
	return change, nil
}
