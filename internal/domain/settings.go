package domain

// City is a saved location from the settings record. AlertsEnabled is a
// pointer so an absent field defaults to enabled.
type City struct {
	Name          string  `json:"name" yaml:"name"`
	Lat           float64 `json:"lat" yaml:"lat"`
	Lon           float64 `json:"lon" yaml:"lon"`
	AlertsEnabled *bool   `json:"alertsEnabled,omitempty" yaml:"alertsEnabled,omitempty"`
}

// GPSLocation is the cached device position, when one exists.
type GPSLocation struct {
	Name string  `json:"name,omitempty" yaml:"name,omitempty"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lon  float64 `json:"lon" yaml:"lon"`
}

// Settings is the persisted user configuration: one optional GPS-derived
// location plus saved cities with per-city alert toggles.
type Settings struct {
	AlertsEnabled *bool        `json:"alertsEnabled,omitempty" yaml:"alertsEnabled,omitempty"`
	GPS           *GPSLocation `json:"gps,omitempty" yaml:"gps,omitempty"`
	Cities        []City       `json:"cities,omitempty" yaml:"cities,omitempty"`
}

// Enabled reports whether alert monitoring is globally on. Absent means on.
func (s Settings) Enabled() bool {
	return s.AlertsEnabled == nil || *s.AlertsEnabled
}

// ActiveLocations builds the location list for one run: the GPS location
// first when cached coordinates exist, then every saved city whose alerts
// toggle is not explicitly off.
func (s Settings) ActiveLocations() []Location {
	var locations []Location

	if s.GPS != nil && (s.GPS.Lat != 0 || s.GPS.Lon != 0) {
		name := s.GPS.Name
		if name == "" {
			name = "Current Location"
		}
		locations = append(locations, Location{
			Name:          name,
			Lat:           s.GPS.Lat,
			Lon:           s.GPS.Lon,
			IsGPS:         true,
			AlertsEnabled: true,
		})
	}

	for _, city := range s.Cities {
		if city.AlertsEnabled != nil && !*city.AlertsEnabled {
			continue
		}
		locations = append(locations, Location{
			Name:          city.Name,
			Lat:           city.Lat,
			Lon:           city.Lon,
			AlertsEnabled: true,
		})
	}

	return locations
}
