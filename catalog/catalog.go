// Package catalog holds the fixed, built-in command list shown alongside custom commands.
// A catalog is an ordered list of categories, each an ordered list of descriptors. It is
// loaded once at startup (embedded default or a YAML file) and never mutated afterwards.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// CustomCategory is reserved for user-defined commands and cannot be declared in a catalog.
const CustomCategory = "Custom"

// Descriptor describes one built-in command.
type Descriptor struct {
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description" json:"description"`
	Aliases       []string `yaml:"aliases" json:"aliases"`
	ModeratorOnly bool     `yaml:"moderatorOnly" json:"moderatorOnly"`
}

// Category is a named, ordered group of descriptors.
type Category struct {
	Name     string       `yaml:"category"`
	Commands []Descriptor `yaml:"commands"`
}

// Catalog is the immutable fixed command list. The zero value is an empty catalog.
type Catalog struct {
	categories []Category
}

// New validates categories and returns a catalog holding a private copy of them.
func New(categories []Category) (*Catalog, error) {
	seen := make(map[string]bool, len(categories))
	var errs []error
	out := make([]Category, 0, len(categories))
	for i, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("category %d: name is required", i))
			continue
		}
		if strings.EqualFold(name, CustomCategory) {
			errs = append(errs, fmt.Errorf("category %q: name is reserved for custom commands", name))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("category %q: declared twice", name))
			continue
		}
		seen[name] = true

		cmds := make([]Descriptor, 0, len(c.Commands))
		names := make(map[string]bool, len(c.Commands))
		for j, d := range c.Commands {
			d.Name = strings.TrimSpace(d.Name)
			d.Description = strings.TrimSpace(d.Description)
			switch {
			case d.Name == "":
				errs = append(errs, fmt.Errorf("category %q command %d: name is required", name, j))
				continue
			case d.Description == "":
				errs = append(errs, fmt.Errorf("category %q command %q: description is required", name, d.Name))
				continue
			case names[d.Name]:
				errs = append(errs, fmt.Errorf("category %q: command %q declared twice", name, d.Name))
				continue
			}
			names[d.Name] = true
			aliases := make([]string, 0, len(d.Aliases))
			for _, a := range d.Aliases {
				if a = strings.TrimSpace(a); a != "" {
					aliases = append(aliases, a)
				}
			}
			d.Aliases = aliases
			cmds = append(cmds, d)
		}
		out = append(out, Category{Name: name, Commands: cmds})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return &Catalog{categories: out}, nil
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var categories []Category
	if err := yaml.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(categories)
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Load reads the catalog at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Categories returns the categories in declared order. The result is a deep copy.
func (c *Catalog) Categories() []Category {
	if c == nil {
		return nil
	}
	out := make([]Category, len(c.categories))
	for i, cat := range c.categories {
		cmds := make([]Descriptor, len(cat.Commands))
		for j, d := range cat.Commands {
			d.Aliases = append([]string{}, d.Aliases...)
			cmds[j] = d
		}
		out[i] = Category{Name: cat.Name, Commands: cmds}
	}
	return out
}

// Len returns the number of descriptors across all categories.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, cat := range c.categories {
		n += len(cat.Commands)
	}
	return n
}
