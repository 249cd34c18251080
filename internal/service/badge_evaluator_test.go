package service

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/repository"
	"github.com/yuqie6/SchoolQuest/internal/schema"
)

// fakeStats 列表均为最近在前
type fakeStats struct {
	passed        int64
	submissions   int64
	timings       []repository.SubmissionTiming
	attendance    []schema.AttendanceStatus
	behavior      []int64
	participation int64
}

func (f fakeStats) CountPassedActivities(ctx context.Context, studentID, classID int64, passingScore float64) (int64, error) {
	return f.passed, nil
}

func (f fakeStats) CountSubmissions(ctx context.Context, studentID, classID int64) (int64, error) {
	return f.submissions, nil
}

func (f fakeStats) ListSubmissionTimings(ctx context.Context, studentID, classID int64) ([]repository.SubmissionTiming, error) {
	return f.timings, nil
}

func (f fakeStats) ListAttendanceStatuses(ctx context.Context, studentID, classID int64) ([]schema.AttendanceStatus, error) {
	return f.attendance, nil
}

func (f fakeStats) ListBehaviorPoints(ctx context.Context, studentID, classID int64) ([]int64, error) {
	return f.behavior, nil
}

func (f fakeStats) CountPositiveBehavior(ctx context.Context, studentID, classID int64, category schema.BehaviorCategory) (int64, error) {
	return f.participation, nil
}

type fixedCharacter struct{ c *schema.Character }

func (f fixedCharacter) Get(ctx context.Context, studentID, classID int64) (*schema.Character, error) {
	return f.c, nil
}

func (f fixedCharacter) GetForUpdate(ctx context.Context, studentID, classID int64) (*schema.Character, error) {
	return f.c, nil
}

func (f fixedCharacter) CreateIfAbsent(ctx context.Context, c *schema.Character) (bool, error) {
	return false, nil
}

func (f fixedCharacter) CompareAndSwapExperience(ctx context.Context, id, version, totalExperience int64, level int) (bool, error) {
	return true, nil
}

func TestBadgeEvaluator_ProgressFor(t *testing.T) {
	due := time.Date(2026, 10, 10, 23, 59, 0, 0, time.UTC)
	stats := fakeStats{
		passed:      4,
		submissions: 2,
		timings: []repository.SubmissionTiming{
			{SubmittedAt: due.Add(-time.Hour), DueAt: &due},
			{SubmittedAt: due.Add(time.Hour)}, // 无截止时间视为按时
			{SubmittedAt: due.Add(time.Hour), DueAt: &due},
			{SubmittedAt: due.Add(-time.Hour), DueAt: &due},
		},
		attendance:    []schema.AttendanceStatus{schema.AttendancePresent, schema.AttendancePresent, schema.AttendanceLate, schema.AttendancePresent},
		behavior:      []int64{2, 1, 0, 5},
		participation: 7,
	}
	settings, _ := NewSettingsResolver(DefaultProgressionSettings(), nil)
	ev := NewBadgeEvaluator(fixedCharacter{&schema.Character{Level: 3, TotalExperience: 320}}, stats, settings)

	cases := []struct {
		criterion schema.CriterionType
		want      int64
	}{
		{schema.CriterionLevelReached, 3},
		{schema.CriterionTotalExperience, 320},
		{schema.CriterionActivitiesCompleted, 4},
		{schema.CriterionFirstSubmission, 1},
		{schema.CriterionOnTimeSubmissionStreak, 2},
		{schema.CriterionPerfectAttendanceStreak, 2},
		{schema.CriterionPositiveBehaviorStreak, 2},
		{schema.CriterionParticipationCount, 7},
		{"mystery", 0},
	}
	for _, c := range cases {
		got, err := ev.ProgressFor(context.Background(), schema.BadgeDefinition{CriterionType: c.criterion, RequiredValue: 1}, 1, 10)
		if err != nil {
			t.Fatalf("%s: %v", c.criterion, err)
		}
		if got != c.want {
			t.Fatalf("%s: progress=%d, want %d", c.criterion, got, c.want)
		}
	}
}

func TestBadgeEvaluator_IsComplete(t *testing.T) {
	ev := &BadgeEvaluator{}
	badge := schema.BadgeDefinition{CriterionType: schema.CriterionLevelReached, RequiredValue: 5}
	if ev.IsComplete(badge, 4) || !ev.IsComplete(badge, 5) {
		t.Fatalf("threshold check wrong")
	}
	unknown := schema.BadgeDefinition{CriterionType: "mystery", RequiredValue: 0}
	if ev.IsComplete(unknown, 100) {
		t.Fatalf("unknown criterion must never complete")
	}
}

func TestBadgeEvaluator_NoCharacter(t *testing.T) {
	settings, _ := NewSettingsResolver(DefaultProgressionSettings(), nil)
	ev := NewBadgeEvaluator(fixedCharacter{}, fakeStats{}, settings)
	got, err := ev.ProgressFor(context.Background(), schema.BadgeDefinition{CriterionType: schema.CriterionLevelReached}, 1, 10)
	if err != nil || got != 0 {
		t.Fatalf("got %d, %v", got, err)
	}
}
