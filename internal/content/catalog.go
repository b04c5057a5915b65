// Package content holds the lesson catalog: per language, the learning
// modules, their units and the words each unit teaches.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	srs "github.com/example/chirpolly/internal/spaced_repetition"
	"github.com/example/chirpolly/pkg/models"
)

var (
	ErrUnitNotFound     = errors.New("content: unit not found")
	ErrLanguageNotFound = errors.New("content: language not found")
)

// Catalog maps a language code to its learning path.
type Catalog struct {
	Languages map[string][]models.LearningModule `json:"languages" yaml:"languages"`
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{Languages: map[string][]models.LearningModule{}}
}

// Load reads a catalog from a .yaml, .yml or .json file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, c)
	case ".json":
		err = json.Unmarshal(raw, c)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", path, err)
	}
	if c.Languages == nil {
		c.Languages = map[string][]models.LearningModule{}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the catalog in the format given by the file extension.
func (c *Catalog) Save(path string) error {
	var (
		raw []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = yaml.Marshal(c)
	case ".json":
		raw, err = json.MarshalIndent(c, "", "  ")
	default:
		return fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return nil
}

// Validate checks that unit IDs are unique within a language and every word
// has a spelling.
func (c *Catalog) Validate() error {
	for lang, modules := range c.Languages {
		seen := map[string]bool{}
		for _, m := range modules {
			for _, u := range m.Units {
				if u.UnitID == "" {
					return fmt.Errorf("content: %s/%s: unit without id", lang, m.Level)
				}
				if seen[u.UnitID] {
					return fmt.Errorf("content: %s: duplicate unit %s", lang, u.UnitID)
				}
				seen[u.UnitID] = true
				for i, w := range u.Words {
					if strings.TrimSpace(w.Word) == "" {
						return fmt.Errorf("content: %s/%s: word %d is empty", lang, u.UnitID, i)
					}
				}
			}
		}
	}
	return nil
}

// LanguageCodes returns the language codes in sorted order.
func (c *Catalog) LanguageCodes() []string {
	codes := make([]string, 0, len(c.Languages))
	for code := range c.Languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Modules returns a language's learning path.
func (c *Catalog) Modules(language string) ([]models.LearningModule, error) {
	modules, ok := c.Languages[strings.ToLower(language)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLanguageNotFound, language)
	}
	return modules, nil
}

// Unit looks up a unit by ID within a language.
func (c *Catalog) Unit(language, unitID string) (models.LessonUnit, error) {
	for _, m := range c.Languages[strings.ToLower(language)] {
		for _, u := range m.Units {
			if u.UnitID == unitID {
				return u, nil
			}
		}
	}
	return models.LessonUnit{}, fmt.Errorf("%w: %s/%s", ErrUnitNotFound, language, unitID)
}

// AddUnit appends a unit to the module with the given level and theme,
// creating the module if needed.
func (c *Catalog) AddUnit(language, level, theme string, unit models.LessonUnit) {
	language = strings.ToLower(language)
	modules := c.Languages[language]
	for i := range modules {
		if modules[i].Level == level && modules[i].Theme == theme {
			modules[i].Units = append(modules[i].Units, unit)
			return
		}
	}
	c.Languages[language] = append(modules, models.LearningModule{Level: level, Theme: theme, Units: []models.LessonUnit{unit}})
}

// AddWord puts w into the unit unitID of language, creating the module and
// unit as needed. A word with the same canonical spelling is replaced, and
// created reports whether the word is new to the unit.
func (c *Catalog) AddWord(language, level, theme, unitID, unitTitle string, w models.Word) (created bool) {
	language = strings.ToLower(language)
	modules := c.Languages[language]
	for i := range modules {
		for j := range modules[i].Units {
			u := &modules[i].Units[j]
			if u.UnitID != unitID {
				continue
			}
			for k := range u.Words {
				if srs.Canonical(u.Words[k].Word) == srs.Canonical(w.Word) {
					u.Words[k] = w
					return false
				}
			}
			u.Words = append(u.Words, w)
			return true
		}
	}
	if unitTitle == "" {
		unitTitle = unitID
	}
	c.AddUnit(language, level, theme, models.LessonUnit{UnitID: unitID, Title: unitTitle, Words: []models.Word{w}})
	return true
}
