package texts

import "testing"

func TestLoad(t *testing.T) {
	t.Parallel()

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, key := range []string{"welcome", "help", "main_menu", "thinking_chat", "thinking_country"} {
		if got := c.Msg(key); got == key || got == "" {
			t.Errorf("Msg(%q) missing from catalog", key)
		}
	}

	if got := c.Msg("no_such_key"); got != "no_such_key" {
		t.Errorf("Msg() for unknown key = %q, want the key itself", got)
	}

	countries := c.PopularCountries()
	if len(countries) == 0 {
		t.Fatal("PopularCountries() is empty")
	}
	for _, country := range countries {
		if country.Slug == "" || country.DisplayName == "" || country.CountryQuery == "" {
			t.Errorf("country entry incomplete: %+v", country)
		}
	}

	if _, ok := c.CountryBySlug("germany"); !ok {
		t.Error("CountryBySlug(germany) not found")
	}
	if _, ok := c.CountryBySlug("atlantis"); ok {
		t.Error("CountryBySlug(atlantis) should not resolve")
	}
}
