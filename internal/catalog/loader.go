// Package catalog loads the skills offered for interviews.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Skill is one selectable interview topic
type Skill struct {
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category" yaml:"-"`
	Icon     string `json:"icon,omitempty" yaml:"icon"`
}

// Category groups related skills
type Category struct {
	Name   string  `json:"name" yaml:"name"`
	Skills []Skill `json:"skills" yaml:"skills"`
}

// Difficulty describes one difficulty level
type Difficulty struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Catalog is the full skills listing
type Catalog struct {
	Categories   []Category   `json:"categories" yaml:"categories"`
	Difficulties []Difficulty `json:"difficulties" yaml:"difficulties"`
}

// Loader manages loading and lookup of the skills catalog
type Loader struct {
	mu      sync.RWMutex
	catalog *Catalog
	index   map[string]Skill
}

// NewLoader creates a loader holding the built-in catalog
func NewLoader() *Loader {
	l := &Loader{}
	cat, err := parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in skills catalog is invalid: %v", err))
	}
	l.set(cat)
	return l
}

// LoadFromFile replaces the catalog with the one in path. A missing file
// keeps the current catalog.
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("skills file not found, using built-in catalog", "file", path)
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	cat, err := parse(data)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	l.set(cat)

	slog.Info("skills catalog loaded", "file", path, "categories", len(cat.Categories), "skills", l.Count())
	return nil
}

func parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(cat.Categories) == 0 {
		return nil, fmt.Errorf("at least one category is required")
	}

	seen := make(map[string]bool)
	for ci := range cat.Categories {
		c := &cat.Categories[ci]
		if c.Name == "" {
			return nil, fmt.Errorf("category %d: name is required", ci+1)
		}
		for si := range c.Skills {
			s := &c.Skills[si]
			s.Name = strings.TrimSpace(s.Name)
			if s.Name == "" {
				return nil, fmt.Errorf("category %s: skill %d: name is required", c.Name, si+1)
			}
			if strings.Contains(s.Name, ",") {
				return nil, fmt.Errorf("skill %q: name must not contain a comma", s.Name)
			}
			key := strings.ToLower(s.Name)
			if seen[key] {
				return nil, fmt.Errorf("skill %q is listed twice", s.Name)
			}
			seen[key] = true
			s.Category = c.Name
		}
	}

	if len(cat.Difficulties) == 0 {
		cat.Difficulties = []Difficulty{
			{ID: "easy", Label: "Easy"},
			{ID: "medium", Label: "Medium"},
			{ID: "hard", Label: "Hard"},
		}
	}

	return &cat, nil
}

func (l *Loader) set(cat *Catalog) {
	index := make(map[string]Skill)
	for _, c := range cat.Categories {
		for _, s := range c.Skills {
			index[strings.ToLower(s.Name)] = s
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.catalog = cat
	l.index = index
}

// Catalog returns the loaded catalog
func (l *Loader) Catalog() *Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalog
}

// Get looks a skill up by name, case-insensitively
func (l *Loader) Get(name string) (Skill, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.index[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Canonical returns the catalog spelling of each name. Names outside the
// catalog are kept as given, trimmed.
func (l *Loader) Canonical(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if s, ok := l.Get(name); ok {
			out = append(out, s.Name)
			continue
		}
		out = append(out, strings.TrimSpace(name))
	}
	return out
}

// Count returns the number of skills
func (l *Loader) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.index)
}
