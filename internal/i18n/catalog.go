// Package i18n holds the user-facing status messages in every supported
// locale.
package i18n

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// FallbackLocale is used when a requested locale has no close match.
const FallbackLocale = "en"

//go:embed messages.yaml
var embedded []byte

// Catalog maps locale -> key -> message.
type Catalog struct {
	tags     []language.Tag
	messages []map[string]string
	matcher  language.Matcher
}

// Load parses a YAML catalog of the form {locale: {key: message}}. The
// fallback locale must be present.
func Load(data []byte) (*Catalog, error) {
	raw := map[string]map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("i18n: parse catalog: %w", err)
	}
	if _, ok := raw[FallbackLocale]; !ok {
		return nil, errors.New("i18n: catalog lacks fallback locale " + FallbackLocale)
	}

	locales := make([]string, 0, len(raw))
	for locale := range raw {
		if locale != FallbackLocale {
			locales = append(locales, locale)
		}
	}
	sort.Strings(locales)
	// The matcher falls back to its first tag.
	locales = append([]string{FallbackLocale}, locales...)

	c := &Catalog{}
	for _, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("i18n: locale %q: %w", locale, err)
		}
		c.tags = append(c.tags, tag)
		c.messages = append(c.messages, raw[locale])
	}
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(embedded)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Message returns the message for key in the locale closest to the requested
// one, falling back to English and finally to the key itself.
func (c *Catalog) Message(locale, key string) string {
	idx := c.index(locale)
	if msg, ok := c.messages[idx][key]; ok {
		return msg
	}
	if msg, ok := c.messages[0][key]; ok {
		return msg
	}
	return key
}

// Match returns the supported locale closest to the requested one.
func (c *Catalog) Match(locale string) string {
	base, _ := c.tags[c.index(locale)].Base()
	return base.String()
}

func (c *Catalog) index(locale string) int {
	tag, err := language.Parse(locale)
	if err != nil {
		return 0
	}
	_, idx, conf := c.matcher.Match(tag)
	if conf == language.No {
		return 0
	}
	return idx
}
