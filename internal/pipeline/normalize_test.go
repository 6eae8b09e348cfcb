package pipeline

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func rawList(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		out = append(out, json.RawMessage(it))
	}
	return out
}

func TestNormalizeSources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []json.RawMessage
		want  []string
	}{
		{
			name:  "valid urls survive",
			input: rawList(`"https://www.bamf.de"`, `"http://example.org/visa"`),
			want:  []string{"https://www.bamf.de", "http://example.org/visa"},
		},
		{
			name:  "surrounding punctuation trimmed",
			input: rawList(`"(https://www.bamf.de)."`, `"<https://gov.example>"`),
			want:  []string{"https://www.bamf.de", "https://gov.example"},
		},
		{
			name:  "non-urls dropped silently",
			input: rawList(`"посольство Германии"`, `"ftp://old.example"`, `"www.example.com"`, `42`, `null`, `{"url":"https://x"}`),
			want:  nil,
		},
		{
			name:  "mixed keeps only urls",
			input: rawList(`"see below"`, `"https://www.auswaertiges-amt.de"`),
			want:  []string{"https://www.auswaertiges-amt.de"},
		},
		{
			name:  "empty input",
			input: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeSources(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeSources() = %v, want %v", got, tt.want)
			}
			for _, src := range got {
				if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
					t.Errorf("surviving source %q does not match HTTP(S) pattern", src)
				}
			}
		})
	}
}

func TestNormalizeCountrySections(t *testing.T) {
	t.Parallel()

	t.Run("drops empty and malformed sections", func(t *testing.T) {
		t.Parallel()
		raw := rawCountryPayload{
			Country: " Германия ",
			Sections: rawList(
				`{"title":"Визы","body":"Нужна виза D."}`,
				`{"title":"","body":""}`,
				`{"title":"  ","body":"\n"}`,
				`"просто строка"`,
				`{"title":"ВНЖ"}`,
				`{"body":"Только текст."}`,
			),
		}

		got := normalizeCountry(raw)
		if got.Country != "Германия" {
			t.Errorf("Country = %q, want %q", got.Country, "Германия")
		}
		want := []Section{
			{Title: "Визы", Body: "Нужна виза D."},
			{Title: "ВНЖ"},
			{Body: "Только текст."},
		}
		if !reflect.DeepEqual(got.Sections, want) {
			t.Errorf("Sections = %v, want %v", got.Sections, want)
		}
		for _, sec := range got.Sections {
			if sec.Title == "" && sec.Body == "" {
				t.Errorf("surviving section is fully empty: %+v", sec)
			}
		}
	})

	t.Run("caps sections at eight", func(t *testing.T) {
		t.Parallel()
		var sections []json.RawMessage
		for i := 0; i < 12; i++ {
			sections = append(sections, json.RawMessage(`{"title":"Раздел","body":"Текст."}`))
		}
		got := normalizeCountry(rawCountryPayload{Country: "X", Sections: sections})
		if len(got.Sections) != maxSections {
			t.Errorf("len(Sections) = %d, want %d", len(got.Sections), maxSections)
		}
	})
}

func TestNormalizeChat(t *testing.T) {
	t.Parallel()

	raw := rawChatPayload{
		Answer:  "  Для работы в Германии нужна виза.  ",
		Clarify: rawList(`"Какая у вас профессия?"`, `""`, `"  "`, `123`),
		Sources: rawList(`"https://www.make-it-in-germany.com"`, `"not a url"`),
	}

	got := normalizeChat(raw)
	if got.Answer != "Для работы в Германии нужна виза." {
		t.Errorf("Answer = %q", got.Answer)
	}
	if want := []string{"Какая у вас профессия?", "123"}; !reflect.DeepEqual(got.Clarify, want) {
		t.Errorf("Clarify = %v, want %v", got.Clarify, want)
	}
	if want := []string{"https://www.make-it-in-germany.com"}; !reflect.DeepEqual(got.Sources, want) {
		t.Errorf("Sources = %v, want %v", got.Sources, want)
	}
}

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantOK  bool
		wantKey string
	}{
		{"bare object", `{"answer":"ok"}`, true, "answer"},
		{"fenced object", "Вот ответ:\n```json\n{\"answer\":\"ok\"}\n```", true, "answer"},
		{"prose around object", `Конечно! {"country":"Германия"} Надеюсь, помогло.`, true, "country"},
		{"trailing comma repaired", `{"answer":"ok",}`, true, "answer"},
		{"no braces", "просто текст без JSON", false, ""},
		{"only closing brace", "что-то }", false, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			obj, ok := extractJSONObject(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("extractJSONObject() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			var m map[string]any
			if err := json.Unmarshal(obj, &m); err != nil {
				t.Fatalf("extracted object does not parse: %v", err)
			}
			if _, present := m[tt.wantKey]; !present {
				t.Errorf("extracted object missing key %q: %v", tt.wantKey, m)
			}
		})
	}
}
