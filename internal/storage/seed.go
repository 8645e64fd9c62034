package storage

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"casa/internal/core"
)

// DefaultCategories returns the categories seeded into an empty store.
func DefaultCategories() []core.Category {
	return []core.Category{
		{Name: "Housing", Icon: "home", Color: "bg-red-100 text-red-500 dark:bg-red-900/20 dark:text-red-400"},
		{Name: "Utilities", Icon: "bolt", Color: "bg-blue-100 text-blue-500 dark:bg-blue-900/20 dark:text-blue-400"},
		{Name: "Transportation", Icon: "car", Color: "bg-green-100 text-green-500 dark:bg-green-900/20 dark:text-green-400"},
		{Name: "Food & Groceries", Icon: "utensils", Color: "bg-orange-100 text-orange-500 dark:bg-orange-900/20 dark:text-orange-400"},
		{Name: "Insurance", Icon: "shield", Color: "bg-purple-100 text-purple-500 dark:bg-purple-900/20 dark:text-purple-400"},
		{Name: "Entertainment", Icon: "play", Color: "bg-pink-100 text-pink-500 dark:bg-pink-900/20 dark:text-pink-400"},
		{Name: "Other", Icon: "ellipsis-h", Color: "bg-gray-100 text-gray-500 dark:bg-gray-800 dark:text-gray-400"},
	}
}

type seedFile struct {
	Categories []core.Category `yaml:"categories"`
}

// LoadCategorySeed reads a YAML file of the form
//
//	categories:
//	  - name: Housing
//	    icon: home
//	    color: bg-red-100 text-red-500
//
// An empty path returns DefaultCategories.
func LoadCategorySeed(path string) ([]core.Category, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultCategories(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category seed: %w", err)
	}
	return parseCategorySeed(raw)
}

func parseCategorySeed(raw []byte) ([]core.Category, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse category seed: %w", err)
	}
	seen := make(map[string]bool, len(f.Categories))
	out := make([]core.Category, 0, len(f.Categories))
	for i, c := range f.Categories {
		c.Normalize()
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("category seed entry %d: %w", i, err)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("category seed entry %d: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	return out, nil
}
