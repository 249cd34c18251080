package repository

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/schema"
	"github.com/yuqie6/SchoolQuest/internal/testutil"
)

func TestBadgeRepositoryListActiveScopesByClass(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewBadgeRepository(db)
	ctx := context.Background()

	defs := []schema.BadgeDefinition{
		{Code: "global", CriterionType: schema.CriterionLevelReached, RequiredValue: 5, Active: true},
		{Code: "class-10", CriterionType: schema.CriterionFirstSubmission, RequiredValue: 1, ClassID: 10, Active: true},
		{Code: "class-20", CriterionType: schema.CriterionFirstSubmission, RequiredValue: 1, ClassID: 20, Active: true},
		{Code: "retired", CriterionType: schema.CriterionFirstSubmission, RequiredValue: 1, Active: false},
	}
	if _, err := repo.SeedDefinitions(ctx, defs); err != nil {
		t.Fatalf("SeedDefinitions error: %v", err)
	}

	got, err := repo.ListActive(ctx, 10)
	if err != nil {
		t.Fatalf("ListActive error: %v", err)
	}
	if len(got) != 2 || got[0].Code != "global" || got[1].Code != "class-10" {
		t.Fatalf("got=%+v, want global + class-10", got)
	}
}

func TestBadgeRepositorySeedDoesNotOverwritePublished(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewBadgeRepository(db)
	ctx := context.Background()

	if _, err := repo.SeedDefinitions(ctx, []schema.BadgeDefinition{{Code: "lvl5", Name: "Level 5", CriterionType: schema.CriterionLevelReached, RequiredValue: 5, Active: true}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	n, err := repo.SeedDefinitions(ctx, []schema.BadgeDefinition{{Code: "lvl5", Name: "Changed", CriterionType: schema.CriterionLevelReached, RequiredValue: 50, Active: true}})
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows affected=%d, want 0", n)
	}
	def, _ := repo.GetByCode(ctx, "lvl5")
	if def == nil || def.RequiredValue != 5 || def.Name != "Level 5" {
		t.Fatalf("def=%+v", def)
	}
}

func TestBadgeRepositoryCreateAwardOnlyOnce(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewBadgeRepository(db)
	ctx := context.Background()

	now := time.Now()
	ok, err := repo.CreateAward(ctx, &schema.BadgeAward{StudentID: 1, BadgeID: 3, ClassID: 10, AwardedAt: now})
	if err != nil || !ok {
		t.Fatalf("first award: ok=%v err=%v", ok, err)
	}
	ok, err = repo.CreateAward(ctx, &schema.BadgeAward{StudentID: 1, BadgeID: 3, ClassID: 10, AwardedAt: now})
	if err != nil {
		t.Fatalf("second award error: %v", err)
	}
	if ok {
		t.Fatalf("second award should lose on the unique key")
	}

	ids, err := repo.AwardedBadgeIDs(ctx, 1, 10)
	if err != nil {
		t.Fatalf("AwardedBadgeIDs error: %v", err)
	}
	if _, has := ids[3]; !has || len(ids) != 1 {
		t.Fatalf("ids=%v", ids)
	}
}
