package service

import (
	"context"
	"errors"
	"testing"
)

type fakeSettingRepo struct {
	values map[int64]map[string]string
	err    error
}

func (f fakeSettingRepo) GetAll(ctx context.Context, classID int64) (map[string]string, error) {
	return f.values[classID], f.err
}

func (f fakeSettingRepo) Set(ctx context.Context, classID int64, key, value string) error {
	return nil
}

func TestSettingsResolver_Overrides(t *testing.T) {
	repo := fakeSettingRepo{values: map[int64]map[string]string{
		7: {
			SettingPassingScore:      "12",
			SettingDefaultExperience: "80",
			SettingMaxScore:          "abc", // 无法解析
			SettingBadgeBonusCap:     "-5",  // 越界
			"unknown_key":            "1",
		},
	}}
	r, err := NewSettingsResolver(DefaultProgressionSettings(), repo)
	if err != nil {
		t.Fatalf("NewSettingsResolver: %v", err)
	}

	s, err := r.For(context.Background(), 7)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if s.PassingScore != 12 || s.DefaultExperience != 80 {
		t.Fatalf("overrides not applied: %+v", s)
	}
	if s.MaxScore != 20 || s.BadgeBonusCap != 100 {
		t.Fatalf("invalid overrides should keep defaults: %+v", s)
	}

	other, _ := r.For(context.Background(), 8)
	if other != r.Defaults() {
		t.Fatalf("class without overrides should use defaults")
	}
}

func TestSettingsResolver_CrossKeyOverridesAreStable(t *testing.T) {
	repo := fakeSettingRepo{values: map[int64]map[string]string{
		7: {SettingMaxScore: "40", SettingPassingScore: "30"},
		8: {SettingMaxScore: "40", SettingPassingScore: "50"}, // 合并后越界
	}}
	r, err := NewSettingsResolver(DefaultProgressionSettings(), repo)
	if err != nil {
		t.Fatalf("NewSettingsResolver: %v", err)
	}

	for i := 0; i < 200; i++ {
		s, err := r.For(context.Background(), 7)
		if err != nil {
			t.Fatalf("For: %v", err)
		}
		if s.MaxScore != 40 || s.PassingScore != 30 {
			t.Fatalf("call %d: max=%v passing=%v, want 40/30", i, s.MaxScore, s.PassingScore)
		}

		// 按 key 排序：max_score 先生效，passing_score=50 被拒绝
		s, err = r.For(context.Background(), 8)
		if err != nil {
			t.Fatalf("For: %v", err)
		}
		if s.MaxScore != 40 || s.PassingScore != 11 {
			t.Fatalf("call %d: max=%v passing=%v, want 40/11", i, s.MaxScore, s.PassingScore)
		}
	}
}

func TestSettingsResolver_RejectsInvalidDefaults(t *testing.T) {
	bad := DefaultProgressionSettings()
	bad.PassingScore = 30
	if _, err := NewSettingsResolver(bad, nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err=%v, want ErrConfiguration", err)
	}
}

func TestProgressionSettings_BadgeBonus(t *testing.T) {
	s := DefaultProgressionSettings()
	cases := []struct{ required, want int64 }{
		{0, 0},
		{5, 10},
		{50, 100},
		{1000, 100},
	}
	for _, c := range cases {
		if got := s.BadgeBonus(c.required); got != c.want {
			t.Fatalf("BadgeBonus(%d)=%d, want %d", c.required, got, c.want)
		}
	}
}
