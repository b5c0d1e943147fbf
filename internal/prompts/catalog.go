// Package prompts serves the quick-action edit instructions offered next to
// the prompt box.
package prompts

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed suggestions.yaml
var defaultCatalog []byte

type catalogFile struct {
	DefaultLocale string              `yaml:"default_locale"`
	Locales       map[string][]string `yaml:"locales"`
}

// Catalog holds suggestion lists keyed by base language ("en", "id").
type Catalog struct {
	defaultLocale string
	locales       map[string][]string
}

// Default returns the catalog bundled with the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("prompts: bundled catalog is invalid: %v", err))
	}
	return c
}

// Parse reads a YAML catalog. Blank entries are dropped; the default locale
// must have at least one suggestion.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("prompts: parse catalog: %w", err)
	}
	c := &Catalog{
		defaultLocale: normalizeLocale(file.DefaultLocale),
		locales:       make(map[string][]string, len(file.Locales)),
	}
	if c.defaultLocale == "" {
		c.defaultLocale = "en"
	}
	for locale, items := range file.Locales {
		var cleaned []string
		for _, item := range items {
			if v := strings.TrimSpace(item); v != "" {
				cleaned = append(cleaned, v)
			}
		}
		if len(cleaned) > 0 {
			c.locales[normalizeLocale(locale)] = cleaned
		}
	}
	if len(c.locales[c.defaultLocale]) == 0 {
		return nil, fmt.Errorf("prompts: default locale %q has no suggestions", c.defaultLocale)
	}
	return c, nil
}

// Suggestions returns the list for locale, falling back to the default
// locale. The returned slice is a copy.
func (c *Catalog) Suggestions(locale string) (string, []string) {
	key := normalizeLocale(locale)
	items, ok := c.locales[key]
	if !ok {
		key = c.defaultLocale
		items = c.locales[key]
	}
	return key, append([]string(nil), items...)
}

// Locales lists the supported locales, default first.
func (c *Catalog) Locales() []string {
	out := []string{c.defaultLocale}
	var rest []string
	for locale := range c.locales {
		if locale != c.defaultLocale {
			rest = append(rest, locale)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return locale
}
