package i18n

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Fallback is the terminal fallback language.
const Fallback = "en"

// ErrFallbackMissing indicates a catalog without the fallback table.
var ErrFallbackMissing = errors.New("i18n: fallback language table missing")

// Catalog holds nested translation tables keyed by language code.
type Catalog struct {
	tables  map[string]map[string]any
	langs   []string
	matcher language.Matcher
}

// NewCatalog builds a Catalog. The fallback table must be present; the others
// may be partial.
func NewCatalog(tables map[string]map[string]any) (*Catalog, error) {
	if _, ok := tables[Fallback]; !ok {
		return nil, ErrFallbackMissing
	}
	langs := make([]string, 0, len(tables))
	for lang := range tables {
		if lang != Fallback {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	langs = append([]string{Fallback}, langs...)

	tags := make([]language.Tag, 0, len(langs))
	for _, lang := range langs {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("i18n: parse language %q: %w", lang, err)
		}
		tags = append(tags, tag)
	}
	return &Catalog{tables: tables, langs: langs, matcher: language.NewMatcher(tags)}, nil
}

// LoadFS reads every <lang>.json file in dir.
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales: %w", err)
	}
	tables := make(map[string]map[string]any, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", entry.Name(), err)
		}
		var table map[string]any
		if err := json.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("i18n: decode %s: %w", entry.Name(), err)
		}
		tables[strings.TrimSuffix(entry.Name(), ".json")] = table
	}
	return NewCatalog(tables)
}

// Translate resolves a dot-path key in lang, then in the fallback table from
// the root, and finally returns key itself.
func (c *Catalog) Translate(lang, key string) string {
	if c == nil {
		return key
	}
	segments := strings.Split(key, ".")
	if table, ok := c.tables[lang]; ok {
		if value, ok := lookup(table, segments); ok {
			return value
		}
	}
	if value, ok := lookup(c.tables[Fallback], segments); ok {
		return value
	}
	return key
}

// Supports reports whether lang has a table.
func (c *Catalog) Supports(lang string) bool {
	if c == nil {
		return false
	}
	_, ok := c.tables[lang]
	return ok
}

// Languages lists supported codes, fallback first.
func (c *Catalog) Languages() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.langs...)
}

// Negotiate picks the best supported language for an Accept-Language header.
func (c *Catalog) Negotiate(acceptLanguage string) string {
	if c == nil {
		return Fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Fallback
	}
	_, idx, confidence := c.matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(c.langs) {
		return Fallback
	}
	return c.langs[idx]
}

// Resolve returns preferred when it is supported, otherwise the negotiated
// language for acceptLanguage.
func (c *Catalog) Resolve(preferred, acceptLanguage string) string {
	if preferred != "" && c.Supports(preferred) {
		return preferred
	}
	return c.Negotiate(acceptLanguage)
}

// For binds the catalog to one language.
func (c *Catalog) For(lang string) Translator {
	return Translator{catalog: c, lang: lang}
}

// Translator translates keys for a fixed language.
type Translator struct {
	catalog *Catalog
	lang    string
}

// Lang returns the bound language code.
func (t Translator) Lang() string {
	return t.lang
}

// T translates key.
func (t Translator) T(key string) string {
	return t.catalog.Translate(t.lang, key)
}

func lookup(table map[string]any, segments []string) (string, bool) {
	if table == nil {
		return "", false
	}
	var current any = table
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = node[segment]
		if !ok {
			return "", false
		}
	}
	value, ok := current.(string)
	return value, ok
}
