package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

const DefaultLanguage = "en"

// Translator resolves dotted message keys to printf-style templates. Keys a
// language does not define fall back to the default language.
type Translator struct {
	lang     string
	messages map[string]string
	fallback *Translator
}

// Catalog holds every locale found under locales/.
type Catalog struct {
	langs map[string]*Translator
}

// LoadCatalog reads locales/<lang>.yaml for every file in fsys. The default
// language must be present.
func LoadCatalog(fsys fs.FS) (*Catalog, error) {
	files, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, err
	}
	c := &Catalog{langs: make(map[string]*Translator, len(files))}
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		lang := strings.TrimSuffix(path.Base(f), ".yaml")
		t, err := parse(lang, data)
		if err != nil {
			return nil, err
		}
		c.langs[lang] = t
	}
	def, ok := c.langs[DefaultLanguage]
	if !ok {
		return nil, fmt.Errorf("default language %q missing from catalog", DefaultLanguage)
	}
	for lang, t := range c.langs {
		if lang != DefaultLanguage {
			t.fallback = def
		}
	}
	return c, nil
}

// For returns the translator for lang, or the default one when lang is unknown.
// A region suffix such as "de-CH" is ignored.
func (c *Catalog) For(lang string) *Translator {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if t, ok := c.langs[lang]; ok {
		return t
	}
	return c.langs[DefaultLanguage]
}

// Languages lists the loaded language codes.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.langs))
	for l := range c.langs {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// NewTranslator loads a single language, with the default language behind it.
func NewTranslator(fsys fs.FS, lang string) (*Translator, error) {
	c, err := LoadCatalog(fsys)
	if err != nil {
		return nil, err
	}
	if lang == "" {
		lang = DefaultLanguage
	}
	t, ok := c.langs[lang]
	if !ok {
		return nil, fmt.Errorf("no catalog for language %q", lang)
	}
	return t, nil
}

// MustDefault returns the embedded default-language catalog or panics.
func MustDefault() *Translator {
	t, err := NewTranslator(LocalesFS, DefaultLanguage)
	if err != nil {
		panic(err)
	}
	return t
}

func parse(lang string, data []byte) (*Translator, error) {
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse %s catalog: %w", lang, err)
	}
	t := &Translator{lang: lang, messages: make(map[string]string)}
	if err := flatten("", tree, t.messages); err != nil {
		return nil, fmt.Errorf("%s catalog: %w", lang, err)
	}
	return t, nil
}

// flatten turns nested maps into dotted keys.
func flatten(prefix string, node map[string]interface{}, out map[string]string) error {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]interface{}:
			if err := flatten(key, val, out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("key %q: expected text or a group, got %T", key, v)
		}
	}
	return nil
}

func (t *Translator) Lang() string { return t.lang }

// T returns the template for key formatted with args, or key itself when no
// language defines it.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.lookup(key)
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) lookup(key string) (string, bool) {
	for cur := t; cur != nil; cur = cur.fallback {
		if s, ok := cur.messages[key]; ok {
			return s, true
		}
	}
	return "", false
}
