// Package texts embeds the user-facing message catalog and the list of
// popular country destinations shown as inline buttons.
package texts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
)

//go:embed messages.json popular_countries.json
var files embed.FS

// Country is one popular destination offered as an inline button.
type Country struct {
	Slug         string `json:"-"`
	DisplayName  string `json:"display_name"`
	CountryQuery string `json:"country_query"`
}

// Catalog holds the loaded message strings and popular countries.
type Catalog struct {
	messages  map[string]string
	countries map[string]Country
	ordered   []Country
}

// Load parses the embedded JSON files. It fails loudly at startup rather
// than serving empty strings at runtime.
func Load() (*Catalog, error) {
	c := &Catalog{
		messages:  make(map[string]string),
		countries: make(map[string]Country),
	}

	raw, err := files.ReadFile("messages.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read messages.json: %w", err)
	}
	if err := json.Unmarshal(raw, &c.messages); err != nil {
		return nil, fmt.Errorf("failed to parse messages.json: %w", err)
	}

	raw, err = files.ReadFile("popular_countries.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read popular_countries.json: %w", err)
	}
	var countries map[string]Country
	if err := json.Unmarshal(raw, &countries); err != nil {
		return nil, fmt.Errorf("failed to parse popular_countries.json: %w", err)
	}
	for slug, cfg := range countries {
		cfg.Slug = slug
		if cfg.CountryQuery == "" {
			cfg.CountryQuery = cfg.DisplayName
		}
		c.countries[slug] = cfg
	}

	c.ordered = make([]Country, 0, len(c.countries))
	for _, cfg := range c.countries {
		c.ordered = append(c.ordered, cfg)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].Slug < c.ordered[j].Slug })

	return c, nil
}

// Msg returns the message for key, or the key itself when missing so a
// broken catalog is visible in chat instead of silently blank.
func (c *Catalog) Msg(key string) string {
	if m, ok := c.messages[key]; ok {
		return m
	}
	return key
}

// PopularCountries returns the destinations in stable slug order.
func (c *Catalog) PopularCountries() []Country {
	return c.ordered
}

// CountryBySlug resolves an inline-button slug. Returns ok=false for
// unknown slugs.
func (c *Catalog) CountryBySlug(slug string) (Country, bool) {
	cfg, ok := c.countries[slug]
	return cfg, ok
}
