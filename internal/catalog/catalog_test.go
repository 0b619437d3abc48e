package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	defs := c.Definitions()
	require.NotEmpty(t, defs)
	assert.Equal(t, "first_chore", defs[0].Code)
	assert.Equal(t, 1, defs[0].Target)

	hard, ok := c.Lookup("hard_five")
	require.True(t, ok)
	assert.Equal(t, "hard", hard.Difficulty)
	assert.Equal(t, string(entities.AchievementKindCompletionCount), hard.Kind)
}

func TestSeeds(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	seeds := c.Seeds("u1")
	require.Len(t, seeds, len(c.Definitions()))

	ids := make(map[string]bool)
	for _, s := range seeds {
		assert.Equal(t, "u1", s.UserID)
		assert.Zero(t, s.Progress)
		assert.False(t, s.Completed)
		assert.NotEmpty(t, s.ID)
		ids[s.ID] = true
	}
	assert.Len(t, ids, len(seeds))
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":          "achievements: []",
		"missing code":   "achievements: [{target: 1}]",
		"duplicate":      "achievements: [{code: a, target: 1}, {code: a, target: 2}]",
		"zero target":    "achievements: [{code: a, target: 0}]",
		"unknown kind":   "achievements: [{code: a, target: 1, kind: streak}]",
		"bad difficulty": "achievements: [{code: a, target: 1, difficulty: epic}]",
		"not yaml":       "achievements: {",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("achievements:\n  - code: Hard\n    target: 2\n    difficulty: HARD\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	d, ok := c.Lookup("Hard")
	require.True(t, ok)
	assert.Equal(t, "hard", d.Difficulty)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
