// Package catalog holds the achievement goals seeded for every user.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

//go:embed achievements.yaml
var defaultCatalog []byte

// Definition is one catalog entry.
type Definition struct {
	Code        string `yaml:"code"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Kind        string `yaml:"kind"`
	Difficulty  string `yaml:"difficulty"`
	Target      int    `yaml:"target"`
}

type document struct {
	Achievements []Definition `yaml:"achievements"`
}

// Catalog is an immutable, validated list of definitions.
type Catalog struct {
	defs   []Definition
	byCode map[string]Definition
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{byCode: make(map[string]Definition, len(doc.Achievements))}
	for i, d := range doc.Achievements {
		d.Code = strings.TrimSpace(d.Code)
		if d.Code == "" {
			return nil, fmt.Errorf("achievement #%d: code is required", i+1)
		}
		if _, dup := c.byCode[d.Code]; dup {
			return nil, fmt.Errorf("achievement %q: duplicate code", d.Code)
		}
		if d.Target < 1 {
			return nil, fmt.Errorf("achievement %q: target must be positive", d.Code)
		}

		if d.Kind == "" {
			d.Kind = string(entities.AchievementKindCompletionCount)
		}
		if entities.AchievementKind(d.Kind) != entities.AchievementKindCompletionCount {
			return nil, fmt.Errorf("achievement %q: unsupported kind %q", d.Code, d.Kind)
		}

		if d.Difficulty != "" {
			diff := entities.Difficulty(strings.ToLower(strings.TrimSpace(d.Difficulty)))
			if !diff.Valid() {
				return nil, fmt.Errorf("achievement %q: unknown difficulty %q", d.Code, d.Difficulty)
			}
			d.Difficulty = string(diff)
		}

		c.defs = append(c.defs, d)
		c.byCode[d.Code] = d
	}

	if len(c.defs) == 0 {
		return nil, errors.New("catalog has no achievements")
	}

	return c, nil
}

// Definitions returns a copy of the catalog entries in file order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Lookup returns the definition with the given code.
func (c *Catalog) Lookup(code string) (Definition, bool) {
	d, ok := c.byCode[code]
	return d, ok
}

// Seeds implements service.AchievementCatalog.
func (c *Catalog) Seeds(userID string) []entities.Achievement {
	out := make([]entities.Achievement, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, entities.Achievement{
			ID:         uuid.NewString(),
			UserID:     userID,
			Code:       d.Code,
			Kind:       entities.AchievementKind(d.Kind),
			Difficulty: entities.Difficulty(d.Difficulty),
			Target:     d.Target,
		})
	}
	return out
}
