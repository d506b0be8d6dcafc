// Package webui drives a scripted browser session against the GitHub web
// interface for the organization settings that are not exposed through the
// API.
//
// Which pages and selectors serve which setting is described by an
// external settings table; the session itself only knows how to log in,
// read a property from a selector and write a value back.
package webui

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// SettingDef describes how one setting is read and written on its page.
type SettingDef struct {
	// Selector locates the input element carrying the setting.
	Selector string `yaml:"selector"`
	// ValueSelector is the element property holding the value, e.g.
	// "checked" for checkboxes or "value" for text inputs.
	ValueSelector string `yaml:"valueSelector"`
	// SaveSelector locates the save button for the enclosing form.
	SaveSelector string `yaml:"saveSelector"`
}

// SettingsTable maps a settings page url suffix to the settings served on
// that page.
type SettingsTable map[string]map[string]SettingDef

//go:embed resources/web-settings.yaml
var defaultSettingsTable []byte

// DefaultSettingsTable returns the built-in settings table.
func DefaultSettingsTable() (SettingsTable, error) {
	return parseSettingsTable(defaultSettingsTable)
}

// LoadSettingsTable reads a settings table from an external file,
// overriding the built-in table.
func LoadSettingsTable(path string) (SettingsTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed reading settings table '%s': %w", path, err)
	}
	return parseSettingsTable(data)
}

func parseSettingsTable(data []byte) (SettingsTable, error) {
	var table SettingsTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed parsing settings table: %w", err)
	}
	return table, nil
}

// PagesFor collects the subset of the table needed to write the given
// settings, grouped by page so each page is loaded once.
func (t SettingsTable) PagesFor(settings map[string]any) map[string]map[string]SettingDef {
	pages := make(map[string]map[string]SettingDef)
	for pageURL, pageDefs := range t {
		for name, def := range pageDefs {
			if _, ok := settings[name]; !ok {
				continue
			}
			if pages[pageURL] == nil {
				pages[pageURL] = make(map[string]SettingDef)
			}
			pages[pageURL][name] = def
		}
	}
	return pages
}
