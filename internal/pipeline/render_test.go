package pipeline

import (
	"strings"
	"testing"
)

func TestMarshalStructuredCapsClarify(t *testing.T) {
	t.Parallel()

	s := StructuredAnswer{
		Answer:  "Нужна виза.",
		Clarify: []string{"Какая страна?", "Какая цель?", "Какой срок?", "Какой бюджет?"},
	}

	payload, err := marshalStructured(ModeChat, s)
	if err != nil {
		t.Fatalf("marshalStructured() error = %v", err)
	}

	if got := strings.Count(payload, "?"); got != maxClarifyItems {
		t.Errorf("expected %d clarify items in payload, found %d:\n%s", maxClarifyItems, got, payload)
	}
	if strings.Contains(payload, "Какой срок?") || strings.Contains(payload, "Какой бюджет?") {
		t.Errorf("clarify items beyond the cap leaked into the render payload:\n%s", payload)
	}
	if !strings.Contains(payload, "Какая страна?") || !strings.Contains(payload, "Какая цель?") {
		t.Errorf("capped payload lost the leading clarify items:\n%s", payload)
	}
}

func TestSanitizeTelegramHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "allowed tags pass through",
			input: `<b>Визы</b> и <i>ВНЖ</i>, <a href="https://gov.example">сайт</a>`,
			want:  `<b>Визы</b> и <i>ВНЖ</i>, <a href="https://gov.example">сайт</a>`,
		},
		{
			name:  "unknown tags escaped",
			input: "<h1>Заголовок</h1><p>Текст</p>",
			want:  "&lt;h1&gt;Заголовок&lt;/h1&gt;&lt;p&gt;Текст&lt;/p&gt;",
		},
		{
			name:  "stray angle bracket escaped",
			input: "x < y и <b>жирный</b>",
			want:  "x &lt; y и <b>жирный</b>",
		},
		{
			name:  "script escaped",
			input: `<script>alert(1)</script>`,
			want:  "&lt;script&gt;alert(1)&lt;/script&gt;",
		},
		{
			name:  "pre and code survive",
			input: "<pre>anmeldung</pre> <code>§ 18b</code>",
			want:  "<pre>anmeldung</pre> <code>§ 18b</code>",
		},
		{
			name:  "plain text untouched",
			input: "Обычный текст без разметки.",
			want:  "Обычный текст без разметки.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sanitizeTelegramHTML(tt.input); got != tt.want {
				t.Errorf("sanitizeTelegramHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
