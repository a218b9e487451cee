package domain

import (
	"encoding/json"
	"testing"
)

func TestTranslationsText_FallbackChain(t *testing.T) {
	tr := Translations{
		"en": json.RawMessage(`"Brake pad"`),
		"ar": json.RawMessage(`"وسادة الفرامل"`),
		"fr": json.RawMessage(`null`),
	}
	if got := tr.Text("ar", "en"); got != "وسادة الفرامل" {
		t.Fatalf("expected arabic title, got %q", got)
	}
	if got := tr.Text("fr", "en"); got != "Brake pad" {
		t.Fatalf("expected fallback to en, got %q", got)
	}
	if got := tr.Text("de"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestTranslationsResolve_Objects(t *testing.T) {
	tr := Translations{"en": json.RawMessage(`{"size":"L"}`)}
	if got := string(tr.Resolve("", "en")); got != `{"size":"L"}` {
		t.Fatalf("unexpected %s", got)
	}
	if got := tr.Text("en"); got != `{"size":"L"}` {
		t.Fatalf("expected raw json text, got %q", got)
	}
}

func TestTextTranslations_SkipsEmpty(t *testing.T) {
	tr := TextTranslations(map[string]string{"en": "Disc", "ar": ""})
	if len(tr) != 1 || tr.Text("en") != "Disc" {
		t.Fatalf("unexpected translations %v", tr)
	}
}
