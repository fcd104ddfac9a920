// Package i18n resolves dotted message keys against the embedded locale
// tables and builds the localized names used in carts and notifications.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const DefaultLanguage = "en"

// Supported lists the shipped locales; the first entry is the fallback.
var Supported = []string{"en", "hi", "mr", "gu"}

// Crop keys tried as substrings when a crop name has no direct translation.
var cropKeys = []string{"wheat", "corn", "tomatoes", "carrots", "potatoes", "onions", "rice", "apples", "lettuce", "soybeans"}

const shopItemPrefix = "prod-"

// Catalog holds the parsed locale tables.
type Catalog struct {
	tables   map[string]map[string]any
	fallback string
	matcher  language.Matcher
	tags     []string
}

// Load parses the embedded locale tables. fallback must be one of Supported.
func Load(fallback string) (*Catalog, error) {
	fallback = normalize(fallback)
	if fallback == "" {
		fallback = DefaultLanguage
	}

	c := &Catalog{tables: make(map[string]map[string]any, len(Supported)), fallback: fallback}
	tags := make([]language.Tag, 0, len(Supported))
	for _, lang := range Supported {
		raw, err := localeFS.ReadFile(path.Join("locales", lang+".json"))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", lang, err)
		}
		var table map[string]any
		if err := json.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", lang, err)
		}
		c.tables[lang] = table
		tags = append(tags, language.Make(lang))
		c.tags = append(c.tags, lang)
	}
	if _, ok := c.tables[fallback]; !ok {
		return nil, fmt.Errorf("unsupported default language %q", fallback)
	}
	c.matcher = language.NewMatcher(tags)
	return c, nil
}

// MustLoad is Load for package-level setup in tests and main.
func MustLoad(fallback string) *Catalog {
	c, err := Load(fallback)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the fallback language code.
func (c *Catalog) Default() string {
	return c.fallback
}

// Lookup walks the dotted key in lang, then in the fallback table. ok is false
// when neither yields a non-empty string.
func (c *Catalog) Lookup(lang, key string) (string, bool) {
	if value, ok := walk(c.tables[normalize(lang)], key); ok {
		return value, true
	}
	return walk(c.tables[c.fallback], key)
}

// T resolves key and substitutes {name} placeholders from values. A key with
// no translation is returned unchanged.
func (c *Catalog) T(lang, key string, values map[string]any) string {
	msg, ok := c.Lookup(lang, key)
	if !ok {
		return key
	}
	return interpolate(msg, values)
}

// CropDisplayName localizes a free-form crop name: exact crops.<name> match
// first, then the first known crop contained in the name, else the name as given.
func (c *Catalog) CropDisplayName(lang, name string) string {
	if name == "" {
		return name
	}
	normalized := strings.ToLower(strings.TrimSpace(name))
	if msg, ok := c.Lookup(lang, "crops."+normalized); ok {
		return msg
	}
	for _, crop := range cropKeys {
		if !strings.Contains(normalized, crop) {
			continue
		}
		if msg, ok := c.Lookup(lang, "crops."+crop); ok {
			return msg
		}
		break
	}
	return name
}

// ItemDisplayName localizes a cart line. Shop items carry the catalog id as
// their name; marketplace samples are wrapped in the sample label.
func (c *Catalog) ItemDisplayName(lang, id, name string, isSample bool) string {
	if strings.HasPrefix(id, shopItemPrefix) {
		return c.T(lang, "products."+name+".name", nil)
	}
	crop := c.CropDisplayName(lang, name)
	if isSample {
		return c.SampleName(lang, crop)
	}
	return crop
}

// SampleName wraps an already localized crop name in the sample label.
func (c *Catalog) SampleName(lang, cropName string) string {
	return c.T(lang, "marketplace.sampleName", map[string]any{"cropName": cropName})
}

// Negotiate picks the best supported language for an Accept-Language header.
func (c *Catalog) Negotiate(acceptLanguage string) string {
	if direct := normalize(acceptLanguage); direct != "" {
		if _, ok := c.tables[direct]; ok {
			return direct
		}
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.fallback
	}
	_, idx, confidence := c.matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(c.tags) {
		return c.fallback
	}
	return c.tags[idx]
}

func walk(table map[string]any, key string) (string, bool) {
	if table == nil || key == "" {
		return "", false
	}
	var node any = table
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return "", false
		}
		node, ok = m[part]
		if !ok {
			return "", false
		}
	}
	s, ok := node.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func interpolate(msg string, values map[string]any) string {
	if len(values) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

func normalize(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
