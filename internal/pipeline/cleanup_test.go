package pipeline

import "testing"

func TestCleanupText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "citation markers stripped",
			input: "Виза нужна [1]. Подробнее на сайте [2][3].",
			want:  "Виза нужна. Подробнее на сайте.",
		},
		{
			name:  "bold and italic stripped",
			input: "**Важно:** подайте *заранее*.",
			want:  "Важно: подайте заранее.",
		},
		{
			name:  "header markers stripped",
			input: "## Визы\nНужна национальная виза.",
			want:  "Визы\nНужна национальная виза.",
		},
		{
			name:  "space runs collapse but newlines survive",
			input: "Первая  строка.\n\n\n\nВторая   строка.",
			want:  "Первая строка.\n\nВторая строка.",
		},
		{
			name:  "space before punctuation removed",
			input: "Да , это возможно !",
			want:  "Да, это возможно!",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  ответ  \n",
			want:  "ответ",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := cleanupText(tt.input); got != tt.want {
				t.Errorf("cleanupText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
