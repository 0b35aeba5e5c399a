package document

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Hero is the banner block at the top of the home page.
type Hero struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

// Home is the typed view of the "home" section. Only the fields the store
// checks are modeled; the rest of the section stays in the raw JSON.
type Home struct {
	Hero Hero `json:"hero"`
}

// NavItem is one entry of the navigation list. Editors store either a bare
// page identifier ("work") or an object with an "id" field.
type NavItem struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Href  string `json:"href,omitempty"`
}

// UnmarshalJSON accepts both the string and the object form.
func (n *NavItem) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*n = NavItem{ID: id}
		return nil
	}
	type plain NavItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("nav item: %w", err)
	}
	*n = NavItem(p)
	return nil
}

// Nav is the typed view of the "nav" section.
type Nav struct {
	Items []NavItem `json:"items"`
}

// IDs returns the page identifiers in navigation order.
func (n Nav) IDs() []string {
	out := make([]string, 0, len(n.Items))
	for _, it := range n.Items {
		out = append(out, it.ID)
	}
	return out
}

// Metadata is the typed view of the "metadata" section.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Home decodes the home section.
func (d *Document) Home() (Home, error) {
	var h Home
	err := d.DecodeSection(SectionHome, &h)
	return h, err
}

// Nav decodes the nav section.
func (d *Document) Nav() (Nav, error) {
	var n Nav
	err := d.DecodeSection(SectionNav, &n)
	return n, err
}

// Metadata decodes the metadata section.
func (d *Document) Metadata() (Metadata, error) {
	var m Metadata
	err := d.DecodeSection(SectionMetadata, &m)
	return m, err
}

// checkHome verifies home.hero.title is a non-empty string.
func checkHome(d *Document) error {
	raw, ok := d.Section(SectionHome)
	if !ok {
		return &MissingSectionsError{Sections: []string{SectionHome}}
	}
	var shape struct {
		Hero *struct {
			Title any `json:"title"`
		} `json:"hero"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return &MalformedSectionError{Section: SectionHome, Reason: "not an object"}
	}
	if shape.Hero == nil {
		return &MalformedSectionError{Section: SectionHome, Reason: "hero is missing"}
	}
	title, ok := shape.Hero.Title.(string)
	if !ok || strings.TrimSpace(title) == "" {
		return &MalformedSectionError{Section: SectionHome, Reason: "hero.title must be a non-empty string"}
	}
	return nil
}

// checkNav verifies nav.items is a non-empty array.
func checkNav(d *Document) error {
	raw, ok := d.Section(SectionNav)
	if !ok {
		return &MissingSectionsError{Sections: []string{SectionNav}}
	}
	var shape struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return &MalformedSectionError{Section: SectionNav, Reason: "items must be an array"}
	}
	if len(shape.Items) == 0 {
		return &MalformedSectionError{Section: SectionNav, Reason: "items must not be empty"}
	}
	return nil
}
