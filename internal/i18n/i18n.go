// Package i18n holds the per-locale text tables of the bot.
package i18n

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Translator looks up texts by key for a locale.
type Translator struct {
	mu     sync.RWMutex
	tables map[string]map[string]string
}

// New returns a translator with the built-in English and Persian tables.
func New() *Translator {
	tables := make(map[string]map[string]string, len(builtin))
	for lang, table := range builtin {
		copied := make(map[string]string, len(table))
		for k, v := range table {
			copied[k] = v
		}
		tables[lang] = copied
	}
	return &Translator{tables: tables}
}

// Supported reports whether lang has a table.
func (t *Translator) Supported(lang string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.tables[lang]
	return ok
}

// Text returns the string for key in lang, falling back to the default locale
// and then to the key itself. kv are placeholder/value pairs: Text("en", "hello", "name", "Ann").
func (t *Translator) Text(lang, key string, kv ...string) string {
	t.mu.RLock()
	text, ok := t.tables[lang][key]
	if !ok {
		text, ok = t.tables[DefaultLang][key]
	}
	t.mu.RUnlock()
	if !ok {
		text = key
	}
	if len(kv) < 2 {
		return text
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// LoadFile merges a YAML file of the form {lang: {key: text}} over the current tables.
// New locales may be introduced this way.
func (t *Translator) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read locales: %w", err)
	}
	var overrides map[string]map[string]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return fmt.Errorf("parse locales: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for lang, table := range overrides {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		dst, ok := t.tables[lang]
		if !ok {
			dst = make(map[string]string, len(table))
			t.tables[lang] = dst
		}
		for k, v := range table {
			dst[k] = v
		}
	}
	return nil
}
