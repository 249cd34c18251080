package service

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/eventbus"
	"github.com/yuqie6/SchoolQuest/internal/lock"
	"github.com/yuqie6/SchoolQuest/internal/repository"
	"github.com/yuqie6/SchoolQuest/internal/schema"
	"github.com/yuqie6/SchoolQuest/internal/testutil"
	"gorm.io/gorm"
)

// engine 内存 SQLite 上组装的完整引擎
type engine struct {
	db            *gorm.DB
	characters    *repository.CharacterRepository
	badges        *repository.BadgeRepository
	missions      *repository.MissionRepository
	classroom     *repository.ClassroomRepository
	notifications *repository.NotificationRepository
	settingsRepo  *repository.ClassSettingRepository
	hub           *eventbus.Hub

	settings   *SettingsResolver
	experience *ExperienceLedger
	currency   *CurrencyLedger
	evaluator  *BadgeEvaluator
	registry   *BadgeAwardRegistry
	tracker    *MissionProgressTracker
	facade     *ProgressionFacade
	report     *ExperienceReport
}

var testThresholds = []schema.LevelThreshold{
	{Level: 1, ExperienceRequired: 0},
	{Level: 2, ExperienceRequired: 100},
	{Level: 3, ExperienceRequired: 250},
	{Level: 4, ExperienceRequired: 450},
	{Level: 5, ExperienceRequired: 700},
}

// newEngine badges 为空时不写入任何徽章定义
func newEngine(t *testing.T, badges ...schema.BadgeDefinition) *engine {
	t.Helper()
	ctx := context.Background()
	db := testutil.OpenTestDB(t)

	e := &engine{
		db:            db,
		characters:    repository.NewCharacterRepository(db),
		badges:        repository.NewBadgeRepository(db),
		missions:      repository.NewMissionRepository(db),
		classroom:     repository.NewClassroomRepository(db),
		notifications: repository.NewNotificationRepository(db),
		settingsRepo:  repository.NewClassSettingRepository(db),
		hub:           eventbus.NewHub(),
	}
	if len(badges) > 0 {
		if _, err := e.badges.SeedDefinitions(ctx, badges); err != nil {
			t.Fatalf("seed badges: %v", err)
		}
	}

	levels, err := NewLevelTable(testThresholds)
	if err != nil {
		t.Fatalf("level table: %v", err)
	}
	settings, err := NewSettingsResolver(DefaultProgressionSettings(), e.settingsRepo)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}

	tx := repository.NewTransactor(db)
	e.settings = settings
	e.experience = NewExperienceLedger(tx, e.characters, repository.NewExperienceEventRepository(db), levels, nil)
	e.currency = NewCurrencyLedger(tx, repository.NewCurrencyRepository(db), nil)
	e.evaluator = NewBadgeEvaluator(e.characters, e.classroom, settings)
	e.registry = NewBadgeAwardRegistry(e.badges, e.evaluator, e.experience, settings, nil)
	e.tracker = NewMissionProgressTracker(e.missions, e.classroom, e.experience, e.currency, settings, nil)
	e.facade = NewProgressionFacade(ProgressionDeps{
		Tx:            tx,
		Locker:        lock.NewLocal(),
		Classroom:     e.classroom,
		Grants:        repository.NewRewardGrantRepository(db),
		Notifications: e.notifications,
		Publisher:     e.hub,
		Settings:      settings,
		Experience:    e.experience,
		Currency:      e.currency,
		Badges:        e.registry,
		Missions:      e.tracker,
	})
	e.report = NewExperienceReport(repository.NewExperienceEventRepository(db), e.experience, e.currency, e.registry)
	return e
}

func (e *engine) enroll(t *testing.T, studentID, classID int64) {
	t.Helper()
	if _, err := e.experience.Enroll(context.Background(), studentID, classID, "mage"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
}

func (e *engine) activity(t *testing.T, classID, missionID int64) *schema.Activity {
	t.Helper()
	a := &schema.Activity{ClassID: classID, MissionID: missionID, Title: "activity"}
	if err := e.classroom.CreateActivity(context.Background(), a); err != nil {
		t.Fatalf("create activity: %v", err)
	}
	return a
}

func (e *engine) mission(t *testing.T, classID, bonusExp, bonusCur int64) *schema.Mission {
	t.Helper()
	m := &schema.Mission{ClassID: classID, Title: "mission", BonusExperience: bonusExp, BonusCurrency: bonusCur, Active: true}
	if err := e.missions.Create(context.Background(), m); err != nil {
		t.Fatalf("create mission: %v", err)
	}
	return m
}

// grade 直接写成绩，不经过门面（不发奖励）
func (e *engine) grade(t *testing.T, activityID, studentID, classID int64, score float64) {
	t.Helper()
	if _, err := e.classroom.RecordGrade(context.Background(), &schema.Submission{
		ActivityID:  activityID,
		StudentID:   studentID,
		ClassID:     classID,
		Score:       &score,
		SubmittedAt: time.Now(),
	}); err != nil {
		t.Fatalf("record grade: %v", err)
	}
}
