// Package i18n holds the user-facing message catalogs (French and English).
// French is the default language and the fallback for missing keys.
package i18n

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

const (
	LangFrench  = "fr"
	LangEnglish = "en"

	DefaultLanguage = LangFrench
)

var (
	SupportedLanguages = []language.Tag{
		language.French,
		language.English,
	}

	matcher = language.NewMatcher(SupportedLanguages)
)

// Bundle maps language -> key -> message.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]map[string]string
}

func NewBundle() *Bundle {
	return &Bundle{catalogs: make(map[string]map[string]string)}
}

// LoadMessages loads a flat JSON catalog for lang.
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: parse catalog %s: %w", lang, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalogs[lang] = messages
	return nil
}

// Translate falls back to the default language, then to the key itself.
func (b *Bundle) Translate(lang, key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if catalog, ok := b.catalogs[lang]; ok {
		if msg, ok := catalog[key]; ok {
			return msg
		}
	}
	if lang != DefaultLanguage {
		if catalog, ok := b.catalogs[DefaultLanguage]; ok {
			if msg, ok := catalog[key]; ok {
				return msg
			}
		}
	}
	return key
}

// Catalog templates are loaded at runtime, so vet cannot check them.
var formatFunc = fmt.Sprintf

func (b *Bundle) Translatef(lang, key string, args ...any) string {
	template := b.Translate(lang, key)
	if len(args) == 0 {
		return template
	}
	return formatFunc(template, args...)
}

// For returns a translator bound to one language.
func (b *Bundle) For(lang string) Localizer {
	return Localizer{bundle: b, lang: func() string { return lang }}
}

// Dynamic returns a translator that reads the language on every call.
func (b *Bundle) Dynamic(lang func() string) Localizer {
	return Localizer{bundle: b, lang: lang}
}

type Localizer struct {
	bundle *Bundle
	lang   func() string
}

func (l Localizer) Translate(key string, args ...any) string {
	lang := DefaultLanguage
	if l.lang != nil {
		lang = l.lang()
	}
	if l.bundle == nil {
		return key
	}
	return l.bundle.Translatef(lang, key, args...)
}

var (
	defaultBundle *Bundle
	defaultErr    error
	defaultOnce   sync.Once
)

// Default returns the bundle built from the embedded catalogs.
func Default() *Bundle {
	defaultOnce.Do(func() {
		defaultBundle, defaultErr = LoadEmbedded()
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultBundle
}

func LoadEmbedded() (*Bundle, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales: %w", err)
	}
	b := NewBundle()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".json" {
			continue
		}
		data, err := localeFS.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, err)
		}
		if err := b.LoadMessages(strings.TrimSuffix(name, ".json"), data); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// MatchLanguage maps any language preference (tag, Accept-Language list or
// locale) to a supported language.
func MatchLanguage(preference string) string {
	if strings.TrimSpace(preference) == "" {
		return DefaultLanguage
	}
	tag, _ := language.MatchStrings(matcher, preference)
	base, _ := tag.Base()
	if strings.HasPrefix(base.String(), LangEnglish) {
		return LangEnglish
	}
	return DefaultLanguage
}
