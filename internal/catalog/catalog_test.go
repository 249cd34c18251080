package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yuqie6/SchoolQuest/internal/repository"
	"github.com/yuqie6/SchoolQuest/internal/schema"
	"github.com/yuqie6/SchoolQuest/internal/testutil"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default error: %v", err)
	}
	if len(c.Levels) != 10 || c.Levels[4].Experience != 700 {
		t.Fatalf("unexpected levels: %+v", c.Levels)
	}
	for _, d := range c.BadgeDefinitions() {
		if !d.Active {
			t.Fatalf("badge %s should default to active", d.Code)
		}
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]string{
		"empty levels":       "levels: []\n",
		"not increasing":     "levels:\n  - {level: 1, experience: 0}\n  - {level: 2, experience: 0}\n",
		"unsorted":           "levels:\n  - {level: 2, experience: 100}\n  - {level: 1, experience: 200}\n",
		"unknown criterion":  "levels:\n  - {level: 1, experience: 0}\nbadges:\n  - {code: x, criterion: telepathy, required: 1}\n",
		"duplicate code":     "levels:\n  - {level: 1, experience: 0}\nbadges:\n  - {code: x, criterion: first-submission, required: 1}\n  - {code: x, criterion: first-submission, required: 1}\n",
		"non-positive value": "levels:\n  - {level: 1, experience: 0}\nbadges:\n  - {code: x, criterion: first-submission, required: 0}\n",
		"malformed yaml":     "levels: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestLoadFromFileAndInactiveBadge(t *testing.T) {
	doc := strings.Join([]string{
		"levels:",
		"  - {level: 1, experience: 0}",
		"  - {level: 2, experience: 50}",
		"badges:",
		"  - {code: retired, criterion: first-submission, required: 1, active: false, class_id: 7}",
	}, "\n")
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	defs := c.BadgeDefinitions()
	if len(defs) != 1 || defs[0].Active || defs[0].ClassID != 7 {
		t.Fatalf("defs=%+v", defs)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.OpenTestDB(t)
	levels := repository.NewLevelThresholdRepository(db)
	badges := repository.NewBadgeRepository(db)
	ctx := context.Background()

	c, err := Default()
	if err != nil {
		t.Fatalf("Default error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := c.Seed(ctx, levels, badges); err != nil {
			t.Fatalf("Seed #%d error: %v", i+1, err)
		}
	}

	rows, err := levels.List(ctx)
	if err != nil || len(rows) != 10 {
		t.Fatalf("levels=%d err=%v", len(rows), err)
	}
	var n int64
	db.Model(&schema.BadgeDefinition{}).Count(&n)
	if n != int64(len(c.Badges)) {
		t.Fatalf("badges=%d, want %d", n, len(c.Badges))
	}
}
