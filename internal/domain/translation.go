package domain

import "encoding/json"

// Translations maps a locale to a JSON value for that locale.
type Translations map[string]json.RawMessage

// Resolve returns the value of the first locale present, or nil.
func (t Translations) Resolve(locales ...string) json.RawMessage {
	for _, locale := range locales {
		if locale == "" {
			continue
		}
		if v, ok := t[locale]; ok && len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}

// Text resolves a translated string. Non-string values are returned as raw JSON.
func (t Translations) Text(locales ...string) string {
	raw := t.Resolve(locales...)
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

// TextTranslations builds Translations from plain strings, skipping empty ones.
func TextTranslations(values map[string]string) Translations {
	out := make(Translations, len(values))
	for locale, v := range values {
		if v == "" {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		out[locale] = raw
	}
	return out
}
