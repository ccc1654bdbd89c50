package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
)

// LoadSettingsFile reads a YAML settings seed: the global alerts toggle,
// an optional GPS location, and the saved cities. It is used to initialize
// the settings record on first boot.
func LoadSettingsFile(path string) (domain.Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	var settings domain.Settings
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return domain.Settings{}, fmt.Errorf("parse settings file %s: %w", path, err)
	}

	for i, city := range settings.Cities {
		if city.Name == "" {
			return domain.Settings{}, fmt.Errorf("settings file %s: city %d has no name", path, i)
		}
	}
	return settings, nil
}
