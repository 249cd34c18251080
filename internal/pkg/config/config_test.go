package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "local", cfg.Lock.Backend)
	assert.Equal(t, 11.0, cfg.Progression.PassingScore)
	assert.Equal(t, int64(100), cfg.Progression.BadgeBonusCap)
	assert.True(t, filepath.IsAbs(cfg.Storage.DBPath))
}

func TestWriteFileRoundTrip(t *testing.T) {
	t.Setenv("QUEST_TEST_DSN", "postgres://quest@localhost/quest")

	path := filepath.Join(t.TempDir(), "config", "config.yaml")
	cfg := &Config{
		App:     AppConfig{Name: "schoolquest", LogLevel: "debug"},
		Storage: StorageConfig{Driver: "postgres", DSN: "${QUEST_TEST_DSN}"},
		Progression: ProgressionConfig{
			PassingScore: 12, MaxScore: 20, DefaultExperience: 80, DefaultCurrency: 5,
			ExcellenceHighRatio: 0.9, ExcellenceHighMultiplier: 1.2,
			ExcellenceMidRatio: 0.75, ExcellenceMidMultiplier: 1.1,
			BadgeBonusMultiplier: 3, BadgeBonusCap: 50,
		},
		Lock: LockConfig{Backend: "redis", TTLMs: 2000, WaitTimeoutMs: 1000, Redis: RedisConfig{Addr: "127.0.0.1:6379", DB: 2}},
	}
	require.NoError(t, WriteFile(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://quest@localhost/quest", got.Storage.DSN)
	assert.Equal(t, 12.0, got.Progression.PassingScore)
	assert.Equal(t, int64(50), got.Progression.BadgeBonusCap)
	assert.Equal(t, 3.0, got.Progression.BadgeBonusMultiplier)
	assert.Equal(t, "redis", got.Lock.Backend)
	assert.Equal(t, 2, got.Lock.Redis.DB)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteFile(path, &Config{
		Storage: StorageConfig{Driver: "mysql"},
		Lock:    LockConfig{Backend: "local"},
	}))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
