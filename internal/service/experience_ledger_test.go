package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/schema"
)

func TestExperienceLedger_ApplyLevelsUp(t *testing.T) {
	e := newEngine(t)
	e.enroll(t, 1, 10)
	ctx := context.Background()

	change, err := e.experience.Apply(ctx, 1, 10, 120, ReasonActivityGraded, "submission:1")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !change.LeveledUp || change.PreviousLevel != 1 || change.NewLevel != 2 {
		t.Fatalf("unexpected change: %+v", change)
	}

	c, _ := e.experience.Character(ctx, 1, 10)
	if c.TotalExperience != 120 || c.Level != 2 {
		t.Fatalf("character=%+v", c)
	}
}

func TestExperienceLedger_ClampsAtZero(t *testing.T) {
	e := newEngine(t)
	e.enroll(t, 1, 10)
	ctx := context.Background()

	if _, err := e.experience.Apply(ctx, 1, 10, 40, ReasonBehavior, ""); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	change, err := e.experience.Apply(ctx, 1, 10, -500, ReasonBehavior, "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if change.NewExperience != 0 || change.Applied() != -40 {
		t.Fatalf("clamp: %+v", change)
	}

	var ev schema.ExperienceEvent
	if err := e.db.First(&ev, "requested_delta = ?", -500).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if ev.Delta != -40 {
		t.Fatalf("event delta=%d, want applied -40", ev.Delta)
	}
}

func TestExperienceLedger_ZeroDeltaWritesNothing(t *testing.T) {
	e := newEngine(t)
	e.enroll(t, 1, 10)

	if _, err := e.experience.Apply(context.Background(), 1, 10, 0, ReasonBehavior, ""); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	var n int64
	e.db.Model(&schema.ExperienceEvent{}).Count(&n)
	if n != 0 {
		t.Fatalf("zero delta wrote %d events", n)
	}
}

func TestExperienceLedger_OrderIndependent(t *testing.T) {
	e := newEngine(t)
	e.enroll(t, 1, 10)
	e.enroll(t, 2, 10)
	ctx := context.Background()

	deltas := []int64{50, 30, 20, 180}
	for i := range deltas {
		if _, err := e.experience.Apply(ctx, 1, 10, deltas[i], ReasonBehavior, ""); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if _, err := e.experience.Apply(ctx, 2, 10, deltas[len(deltas)-1-i], ReasonBehavior, ""); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}

	a, _ := e.experience.Character(ctx, 1, 10)
	b, _ := e.experience.Character(ctx, 2, 10)
	if a.TotalExperience != b.TotalExperience || a.Level != b.Level {
		t.Fatalf("order changed result: %+v vs %+v", a, b)
	}
	if a.TotalExperience != 280 || a.Level != 3 {
		t.Fatalf("total=%d level=%d", a.TotalExperience, a.Level)
	}
}

func TestExperienceLedger_NotEnrolled(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	if _, err := e.experience.Apply(ctx, 9, 10, 10, ReasonBehavior, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Apply err=%v, want ErrNotFound", err)
	}
	if _, err := e.experience.Character(ctx, 9, 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Character err=%v, want ErrNotFound", err)
	}
}

func TestExperienceLedger_EnrollIsIdempotent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	first, err := e.experience.Enroll(ctx, 1, 10, "mage")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := e.experience.Apply(ctx, 1, 10, 30, ReasonBehavior, ""); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	again, err := e.experience.Enroll(ctx, 1, 10, "warrior")
	if err != nil {
		t.Fatalf("Enroll again: %v", err)
	}
	if again.ID != first.ID || again.TotalExperience != 30 || again.Archetype != "mage" {
		t.Fatalf("re-enroll should return existing character, got %+v", again)
	}
}

type directTx struct{}

func (directTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// contendedCharacters CAS 永远失败，模拟持续的并发写
type contendedCharacters struct {
	attempts int
}

func (r *contendedCharacters) Get(ctx context.Context, studentID, classID int64) (*schema.Character, error) {
	return &schema.Character{ID: 1, StudentID: studentID, ClassID: classID, Level: 1}, nil
}

func (r *contendedCharacters) GetForUpdate(ctx context.Context, studentID, classID int64) (*schema.Character, error) {
	return r.Get(ctx, studentID, classID)
}

func (r *contendedCharacters) CreateIfAbsent(ctx context.Context, c *schema.Character) (bool, error) {
	return false, nil
}

func (r *contendedCharacters) CompareAndSwapExperience(ctx context.Context, id, version, totalExperience int64, level int) (bool, error) {
	r.attempts++
	return false, nil
}

// 不经过门面锁，直接并发 Apply：CAS 保证不丢失更新
func TestExperienceLedger_ConcurrentApplyLosesNothing(t *testing.T) {
	e := newEngine(t)
	e.enroll(t, 1, 10)
	ctx := context.Background()

	const workers = 30
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.experience.Apply(ctx, 1, 10, 7, ReasonBehavior, ""); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Apply: %v", err)
	}

	c, err := e.experience.Character(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Character: %v", err)
	}
	if c.TotalExperience != workers*7 {
		t.Fatalf("exp=%d, want %d", c.TotalExperience, workers*7)
	}
	if c.Level != 2 {
		t.Fatalf("level=%d, want 2", c.Level)
	}
	var events int64
	e.db.Model(&schema.ExperienceEvent{}).Where("student_id = ? AND class_id = ?", 1, 10).Count(&events)
	if events != workers {
		t.Fatalf("events=%d, want %d", events, workers)
	}
}

func TestExperienceLedger_ConflictAfterRetries(t *testing.T) {
	levels, _ := NewLevelTable(testThresholds)
	chars := &contendedCharacters{}
	l := NewExperienceLedger(directTx{}, chars, nil, levels, nil)

	_, err := l.Apply(context.Background(), 1, 10, 10, ReasonBehavior, "")
	if !errors.Is(err, ErrConcurrencyConflict) {
		t.Fatalf("err=%v, want ErrConcurrencyConflict", err)
	}
	if chars.attempts != defaultCASRetries {
		t.Fatalf("attempts=%d, want %d", chars.attempts, defaultCASRetries)
	}
}

func TestExperienceReport_Weekly(t *testing.T) {
	e := newEngine(t)
	e.enroll(t, 1, 10)
	ctx := context.Background()

	now := time.Date(2026, 10, 14, 15, 0, 0, 0, time.Local) // 周三
	e.experience.now = func() time.Time { return now.AddDate(0, 0, -7) }
	if _, err := e.experience.Apply(ctx, 1, 10, 40, ReasonBehavior, ""); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	e.experience.now = func() time.Time { return now }
	if _, err := e.experience.Apply(ctx, 1, 10, 50, ReasonActivityGraded, ""); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := e.experience.Apply(ctx, 1, 10, 10, ReasonBehavior, ""); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	r, err := e.report.Weekly(ctx, 1, 10, now)
	if err != nil {
		t.Fatalf("Weekly: %v", err)
	}
	if r.WeekStart != "2026-10-12" || r.WeekEnd != "2026-10-18" {
		t.Fatalf("week=%s~%s", r.WeekStart, r.WeekEnd)
	}
	if r.ThisWeek != 60 || r.PreviousWeek != 40 || r.GrowthRate != 50 {
		t.Fatalf("report=%+v", r)
	}
	if r.TotalExperience != 100 || len(r.ByReason) != 2 {
		t.Fatalf("report=%+v", r)
	}
}
