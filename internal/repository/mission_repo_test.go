package repository

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/schema"
	"github.com/yuqie6/SchoolQuest/internal/testutil"
)

func ptrFloat(v float64) *float64 { return &v }

func TestMissionRepositoryCountsPassedActivities(t *testing.T) {
	db := testutil.OpenTestDB(t)
	missions := NewMissionRepository(db)
	classroom := NewClassroomRepository(db)
	ctx := context.Background()

	m := &schema.Mission{ClassID: 10, Title: "Fractions", Active: true}
	if err := missions.Create(ctx, m); err != nil {
		t.Fatalf("create mission: %v", err)
	}
	var acts []schema.Activity
	for i := 0; i < 3; i++ {
		a := schema.Activity{ClassID: 10, MissionID: m.ID, Title: "step"}
		if err := classroom.CreateActivity(ctx, &a); err != nil {
			t.Fatalf("create activity: %v", err)
		}
		acts = append(acts, a)
	}
	// 不挂任务的活动不计入
	if err := classroom.CreateActivity(ctx, &schema.Activity{ClassID: 10, Title: "free"}); err != nil {
		t.Fatalf("create activity: %v", err)
	}

	now := time.Now()
	scores := []float64{15, 8, 11}
	for i, a := range acts {
		if _, err := classroom.RecordGrade(ctx, &schema.Submission{ActivityID: a.ID, StudentID: 1, ClassID: 10, Score: ptrFloat(scores[i]), SubmittedAt: now}); err != nil {
			t.Fatalf("record grade: %v", err)
		}
	}

	total, err := missions.CountActivities(ctx, m.ID)
	if err != nil || total != 3 {
		t.Fatalf("total=%d err=%v, want 3", total, err)
	}
	passed, err := missions.CountPassedActivities(ctx, m.ID, 1, 11)
	if err != nil || passed != 2 {
		t.Fatalf("passed=%d err=%v, want 2", passed, err)
	}
}

func TestMissionRepositoryFlagsFlipOnce(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewMissionRepository(db)
	ctx := context.Background()

	p, err := repo.EnsureProgress(ctx, 5, 1)
	if err != nil {
		t.Fatalf("EnsureProgress error: %v", err)
	}
	again, err := repo.EnsureProgress(ctx, 5, 1)
	if err != nil || again.ID != p.ID {
		t.Fatalf("EnsureProgress should return the same row: %+v err=%v", again, err)
	}

	// 未完成时不能发放奖励
	if ok, _ := repo.MarkExperienceBonusGranted(ctx, p.ID); ok {
		t.Fatalf("bonus flag flipped before completion")
	}

	ok, err := repo.MarkCompleted(ctx, p.ID, time.Now())
	if err != nil || !ok {
		t.Fatalf("MarkCompleted: ok=%v err=%v", ok, err)
	}
	if ok, _ := repo.MarkCompleted(ctx, p.ID, time.Now()); ok {
		t.Fatalf("MarkCompleted should succeed only once")
	}

	if ok, _ := repo.MarkExperienceBonusGranted(ctx, p.ID); !ok {
		t.Fatalf("first experience flip should succeed")
	}
	if ok, _ := repo.MarkExperienceBonusGranted(ctx, p.ID); ok {
		t.Fatalf("second experience flip should fail")
	}
	if ok, _ := repo.MarkCurrencyBonusGranted(ctx, p.ID); !ok {
		t.Fatalf("currency flip is independent and should succeed")
	}

	got, _ := repo.GetProgress(ctx, 5, 1)
	if !got.Completed || got.PercentComplete != 100 || !got.BonusesGranted() || got.CompletedAt == nil {
		t.Fatalf("got=%+v", got)
	}
}
