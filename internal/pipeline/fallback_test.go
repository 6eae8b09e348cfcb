package pipeline

import (
	"strings"
	"testing"
)

func TestRenderFallbackCountry(t *testing.T) {
	t.Parallel()

	s := StructuredAnswer{
		Country: "Германия",
		Sections: []Section{
			{Title: "Визы", Body: "Нужна национальная виза D."},
			{Title: "ВНЖ", Body: "Голубая карта для специалистов."},
		},
		Sources: []string{"https://www.bamf.de", "https://www.make-it-in-germany.com"},
	}

	got := renderFallback(ModeCountry, s)

	for _, want := range []string{
		"<b>Германия</b>",
		"<b>Визы</b>\nНужна национальная виза D.",
		"<b>ВНЖ</b>\nГолубая карта для специалистов.",
		"<b>" + sourcesHeading + "</b>",
		"https://www.bamf.de",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	if !strings.Contains(got, "\n\n") {
		t.Error("blocks are not blank-line separated")
	}
}

func TestRenderFallbackChat(t *testing.T) {
	t.Parallel()

	s := StructuredAnswer{
		Answer:  "Для работы нужна виза.",
		Clarify: []string{"Какая профессия?", "Какой бюджет?", "Третий лишний?"},
		Sources: []string{"https://gov.example"},
	}

	got := renderFallback(ModeChat, s)

	if !strings.Contains(got, "Для работы нужна виза.") {
		t.Errorf("output missing answer:\n%s", got)
	}
	if !strings.Contains(got, "— Какая профессия?") || !strings.Contains(got, "— Какой бюджет?") {
		t.Errorf("output missing clarify bullets:\n%s", got)
	}
	if strings.Contains(got, "Третий лишний?") {
		t.Errorf("clarify not capped at %d items:\n%s", maxClarifyItems, got)
	}
}

func TestRenderFallbackCapsSources(t *testing.T) {
	t.Parallel()

	s := StructuredAnswer{Answer: "Ответ."}
	for i := 0; i < 15; i++ {
		s.Sources = append(s.Sources, "https://example.org/page")
	}

	got := renderFallback(ModeChat, s)
	if n := strings.Count(got, "https://example.org/page"); n != maxSourceItems {
		t.Errorf("rendered %d sources, want %d", n, maxSourceItems)
	}
}

func TestRenderFallbackEscapesContent(t *testing.T) {
	t.Parallel()

	s := StructuredAnswer{
		Country:  "Страна <script>",
		Sections: []Section{{Title: "A & B", Body: "x < y"}},
	}

	got := renderFallback(ModeCountry, s)
	if strings.Contains(got, "<script>") {
		t.Errorf("raw markup leaked into output:\n%s", got)
	}
	if !strings.Contains(got, "A &amp; B") || !strings.Contains(got, "x &lt; y") {
		t.Errorf("content not escaped:\n%s", got)
	}
}

func TestRenderFallbackDeterministic(t *testing.T) {
	t.Parallel()

	s := StructuredAnswer{
		Country:  "Канада",
		Sections: []Section{{Title: "Визы", Body: "Express Entry."}},
		Sources:  []string{"https://www.canada.ca"},
	}

	first := renderFallback(ModeCountry, s)
	for i := 0; i < 5; i++ {
		if got := renderFallback(ModeCountry, s); got != first {
			t.Fatalf("output differs between calls:\n%s\nvs\n%s", first, got)
		}
	}
}

func TestRenderFallbackDegenerate(t *testing.T) {
	t.Parallel()

	if got := renderFallback(ModeCountry, StructuredAnswer{}); got != "" {
		t.Errorf("empty country object rendered %q, want empty string", got)
	}
	if got := renderFallback(ModeChat, StructuredAnswer{}); got != "" {
		t.Errorf("empty chat object rendered %q, want empty string", got)
	}
}
