package handlers

import (
	"testing"

	"github.com/mvoronin/relobot/internal/texts"
)

func TestSessionsDefaults(t *testing.T) {
	t.Parallel()
	s := NewSessions()

	if got := s.Stage(1); got != StageMenu {
		t.Errorf("expected default stage %q, got %q", StageMenu, got)
	}
	if got := s.Mode(1); got != ChatModeProfile {
		t.Errorf("expected default mode %q, got %q", ChatModeProfile, got)
	}
	if got := s.WizardField(1); got != "" {
		t.Errorf("expected inactive wizard, got %q", got)
	}
}

func TestSessionsIsolatedPerUser(t *testing.T) {
	t.Parallel()
	s := NewSessions()

	s.SetStage(1, StageChat)
	s.SetMode(1, ChatModeFree)
	s.SetWizardField(1, "home_country")

	if got := s.Stage(2); got != StageMenu {
		t.Errorf("user 2 stage changed unexpectedly: %q", got)
	}
	if got := s.Stage(1); got != StageChat {
		t.Errorf("expected user 1 stage %q, got %q", StageChat, got)
	}
	if got := s.WizardField(1); got != "home_country" {
		t.Errorf("expected active wizard field, got %q", got)
	}

	s.SetWizardField(1, "")
	if got := s.WizardField(1); got != "" {
		t.Errorf("expected wizard reset, got %q", got)
	}
}

func TestPopularCountriesKeyboardLayout(t *testing.T) {
	t.Parallel()

	countries := []texts.Country{
		{Slug: "germany", DisplayName: "Германия"},
		{Slug: "spain", DisplayName: "Испания"},
		{Slug: "portugal", DisplayName: "Португалия"},
	}

	kb := popularCountriesKeyboard(countries)
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("expected 2 rows for 3 countries, got %d", len(kb.InlineKeyboard))
	}
	if len(kb.InlineKeyboard[0]) != 2 || len(kb.InlineKeyboard[1]) != 1 {
		t.Fatalf("unexpected row sizes: %d, %d", len(kb.InlineKeyboard[0]), len(kb.InlineKeyboard[1]))
	}
	if got := kb.InlineKeyboard[0][0].CallbackData; got != "country:germany" {
		t.Errorf("expected callback data %q, got %q", "country:germany", got)
	}
}

func TestWizardOrderMatchesProfileColumns(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, step := range wizardOrder {
		if seen[step.field] {
			t.Errorf("duplicate wizard field %q", step.field)
		}
		seen[step.field] = true
		if step.msgKey == "" {
			t.Errorf("wizard field %q has no question key", step.field)
		}
	}
}
