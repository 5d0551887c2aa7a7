// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package i18n renders the player-facing reward texts from embedded YAML
// catalogs through golang.org/x/text.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/playreward/internal/domain/reward/ports"
)

// BaseLocale is used for unknown locales and missing keys.
const BaseLocale = "en-US"

const (
	keyDay    = "duration.day"
	keyHour   = "duration.hour"
	keyMinute = "duration.minute"
	keySecond = "duration.second"
)

//go:embed locales/*/*.yaml
var embedded embed.FS

type catalogFile struct {
	Locale   string                       `yaml:"locale"`
	Messages map[string]string            `yaml:"messages"`
	Plurals  map[string]map[string]string `yaml:"plurals"`
}

// Catalog is an immutable set of localized messages. It implements
// ports.Localizer and is safe for concurrent use.
type Catalog struct {
	builder *catalog.Builder
	tags    []language.Tag
	matcher language.Matcher
}

var _ ports.Localizer = (*Catalog)(nil)

// Load reads the catalogs compiled into the binary.
func Load() (*Catalog, error) {
	return LoadFS(embedded)
}

// LoadFS reads every locales/<tag>/*.yaml file of fsys.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	base := language.MustParse(BaseLocale)
	c := &Catalog{builder: catalog.NewBuilder(catalog.Fallback(base))}
	seen := map[language.Tag]bool{}

	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		dir := path.Base(path.Dir(p))
		if file.Locale != dir {
			return nil, fmt.Errorf("catalog %s: locale %q must match path locale %q", p, file.Locale, dir)
		}
		tag, err := language.Parse(file.Locale)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
		if err := c.add(tag, file); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
		if !seen[tag] {
			seen[tag] = true
			c.tags = append(c.tags, tag)
		}
	}

	if !seen[base] {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	// The matcher falls back to its first tag.
	sort.SliceStable(c.tags, func(i, j int) bool { return c.tags[i] == base && c.tags[j] != base })
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

func (c *Catalog) add(tag language.Tag, file catalogFile) error {
	for key, msg := range file.Messages {
		if err := c.builder.SetString(tag, key, msg); err != nil {
			return fmt.Errorf("message %q: %w", key, err)
		}
	}
	for key, forms := range file.Plurals {
		if _, ok := forms["other"]; !ok {
			return fmt.Errorf("plural %q: missing \"other\" form", key)
		}
		if err := c.builder.Set(tag, key, plural.Selectf(1, "%d", pluralCases(forms)...)); err != nil {
			return fmt.Errorf("plural %q: %w", key, err)
		}
	}
	return nil
}

var pluralOrder = map[string]int{"zero": 1, "one": 2, "two": 3, "few": 4, "many": 5, "other": 6}

// pluralCases orders selectors as x/text expects: exact matches first and
// "other" last.
func pluralCases(forms map[string]string) []any {
	keys := make([]string, 0, len(forms))
	for k := range forms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, oj := pluralOrder[keys[i]], pluralOrder[keys[j]]
		if oi != oj {
			return oi < oj
		}
		return keys[i] < keys[j]
	})
	cases := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		cases = append(cases, k, forms[k])
	}
	return cases
}

// Locales returns the supported locale tags, base first.
func (c *Catalog) Locales() []string {
	out := make([]string, len(c.tags))
	for i, t := range c.tags {
		out[i] = t.String()
	}
	return out
}

// Match resolves a host locale ("ruRU", "ru-RU", "ru") to a supported tag.
func (c *Catalog) Match(locale string) language.Tag {
	t, err := language.Parse(normalizeLocale(locale))
	if err != nil {
		return c.tags[0]
	}
	_, idx, conf := c.matcher.Match(t)
	if conf == language.No {
		return c.tags[0]
	}
	return c.tags[idx]
}

func (c *Catalog) printer(locale string) *message.Printer {
	return message.NewPrinter(c.Match(locale), message.Catalog(c.builder))
}

// Text renders key in locale.
func (c *Catalog) Text(locale, key string, args ...any) string {
	return c.printer(locale).Sprintf(key, args...)
}

// Duration renders d in full words, largest unit first, whole seconds only.
func (c *Catalog) Duration(locale string, d time.Duration) string {
	p := c.printer(locale)
	total := int64(d / time.Second)
	if total <= 0 {
		return p.Sprintf(keySecond, 0)
	}

	units := []struct {
		key  string
		size int64
	}{
		{keyDay, 86400},
		{keyHour, 3600},
		{keyMinute, 60},
		{keySecond, 1},
	}
	parts := make([]string, 0, len(units))
	for _, u := range units {
		if n := total / u.size; n > 0 {
			parts = append(parts, p.Sprintf(u.key, int(n)))
			total -= n * u.size
		}
	}
	return strings.Join(parts, " ")
}

// normalizeLocale turns host-style codes such as "enUS" into BCP 47.
func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if len(locale) == 4 && !strings.ContainsAny(locale, "-_") {
		return locale[:2] + "-" + locale[2:]
	}
	return strings.ReplaceAll(locale, "_", "-")
}
