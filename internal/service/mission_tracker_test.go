package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuqie6/SchoolQuest/internal/schema"
)

func TestMissionProgressTracker_CompletesOnce(t *testing.T) {
	e := newEngine(t)
	e.enroll(t, 1, 10)
	ctx := context.Background()

	m := e.mission(t, 10, 50, 20)
	a1 := e.activity(t, 10, m.ID)
	a2 := e.activity(t, 10, m.ID)

	e.grade(t, a1.ID, 1, 10, 15)
	res, err := e.tracker.Refresh(ctx, m.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Progress.PercentComplete)
	assert.False(t, res.JustCompleted)
	assert.Zero(t, res.ExperienceBonus)

	e.grade(t, a2.ID, 1, 10, 12)
	res, err = e.tracker.Refresh(ctx, m.ID, 1)
	require.NoError(t, err)
	assert.True(t, res.JustCompleted)
	assert.True(t, res.Progress.Completed)
	assert.Equal(t, 100.0, res.Progress.PercentComplete)
	assert.Equal(t, int64(50), res.ExperienceBonus)
	assert.Equal(t, int64(20), res.CurrencyBonus)
	require.NotNil(t, res.Notification)
	assert.Equal(t, schema.NotificationMissionCompleted, res.Notification.Kind)

	res, err = e.tracker.Refresh(ctx, m.ID, 1)
	require.NoError(t, err)
	assert.False(t, res.JustCompleted)
	assert.Zero(t, res.ExperienceBonus)
	assert.Zero(t, res.CurrencyBonus)
	assert.Nil(t, res.Notification)

	c, _ := e.experience.Character(ctx, 1, 10)
	assert.Equal(t, int64(50), c.TotalExperience)
	balance, _ := e.currency.Balance(ctx, 1, 10)
	assert.Equal(t, int64(20), balance)
}

func TestMissionProgressTracker_CompletionIsSticky(t *testing.T) {
	e := newEngine(t)
	e.enroll(t, 1, 10)
	ctx := context.Background()

	m := e.mission(t, 10, 0, 0)
	a := e.activity(t, 10, m.ID)
	e.grade(t, a.ID, 1, 10, 18)
	res, err := e.tracker.Refresh(ctx, m.ID, 1)
	require.NoError(t, err)
	require.True(t, res.JustCompleted)

	// 改成不及格后任务仍保持完成
	e.grade(t, a.ID, 1, 10, 3)
	res, err = e.tracker.Refresh(ctx, m.ID, 1)
	require.NoError(t, err)
	assert.True(t, res.Progress.Completed)
	assert.Equal(t, 100.0, res.Progress.PercentComplete)
	assert.Equal(t, 0, res.Progress.CompletedActivityCount)
	assert.False(t, res.JustCompleted)
}

func TestMissionProgressTracker_RetriesMissingBonus(t *testing.T) {
	e := newEngine(t)
	e.enroll(t, 1, 10)
	ctx := context.Background()

	m := e.mission(t, 10, 30, 15)
	a := e.activity(t, 10, m.ID)
	e.grade(t, a.ID, 1, 10, 20)

	// 模拟上次只发放了经验：完成标记与经验标记已置位，货币未发
	p, err := e.missions.EnsureProgress(ctx, m.ID, 1)
	require.NoError(t, err)
	_, err = e.missions.MarkCompleted(ctx, p.ID, p.UpdatedAt)
	require.NoError(t, err)
	_, err = e.missions.MarkExperienceBonusGranted(ctx, p.ID)
	require.NoError(t, err)

	res, err := e.tracker.Refresh(ctx, m.ID, 1)
	require.NoError(t, err)
	assert.False(t, res.JustCompleted)
	assert.Zero(t, res.ExperienceBonus)
	assert.Equal(t, int64(15), res.CurrencyBonus)
	assert.True(t, res.Progress.CurrencyBonusGranted)
}

func TestMissionProgressTracker_NoActivities(t *testing.T) {
	e := newEngine(t)
	e.enroll(t, 1, 10)
	ctx := context.Background()

	m := e.mission(t, 10, 30, 15)
	res, err := e.tracker.Refresh(ctx, m.ID, 1)
	require.NoError(t, err)
	assert.Zero(t, res.Progress.PercentComplete)
	assert.False(t, res.Progress.Completed)

	stored, err := e.missions.GetProgress(ctx, m.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, stored, "empty mission must not persist progress")
}

func TestMissionProgressTracker_RefreshForActivity(t *testing.T) {
	e := newEngine(t)
	e.enroll(t, 1, 10)
	ctx := context.Background()

	loose := e.activity(t, 10, 0)
	got, err := e.tracker.RefreshForActivity(ctx, loose.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = e.tracker.RefreshForActivity(ctx, 9999, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.tracker.Refresh(ctx, 9999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
