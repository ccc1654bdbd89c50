package domain

import "time"

// HazardType classifies the phenomenon behind an alert.
type HazardType string

const (
	HazardEarthquake    HazardType = "earthquake"
	HazardTsunami       HazardType = "tsunami"
	HazardVolcano       HazardType = "volcano"
	HazardHurricane     HazardType = "hurricane"
	HazardWildfire      HazardType = "wildfire"
	HazardTornado       HazardType = "tornado"
	HazardSevereWeather HazardType = "severe_weather"
)

// AlertLevel is the ordered severity of an alert. Info-level alerts are
// never persisted or surfaced; they exist only as a scoring outcome.
type AlertLevel string

const (
	LevelInfo     AlertLevel = "info"
	LevelModerate AlertLevel = "moderate"
	LevelHigh     AlertLevel = "high"
	LevelCritical AlertLevel = "critical"
)

// Rank returns the ordinal position of the level (info=0 .. critical=3).
func (l AlertLevel) Rank() int {
	switch l {
	case LevelModerate:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	default:
		return 0
	}
}

// Alert is the canonical, persisted unit produced by scoring a raw feed
// event against one user location. IDs are stable across runs and
// source-qualified so the merge step can deduplicate them.
type Alert struct {
	ID           string     `json:"id"`
	Type         HazardType `json:"type"`
	Level        AlertLevel `json:"alertLevel"`
	Relevance    int        `json:"relevance"`
	Time         int64      `json:"time"` // event time, epoch millis
	LocationName string     `json:"locationName"`
	DistanceKm   float64    `json:"distanceKm,omitempty"`
	Direction    string     `json:"direction,omitempty"` // compass bearing from the location to the event

	Place       string `json:"place,omitempty"`
	Headline    string `json:"headline,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
	URL         string `json:"url,omitempty"`

	EventLat float64 `json:"eventLat,omitempty"`
	EventLon float64 `json:"eventLon,omitempty"`

	// Earthquake fields.
	Magnitude float64 `json:"magnitude,omitempty"`
	Depth     float64 `json:"depth,omitempty"`
	LocalMMI  float64 `json:"localMMI,omitempty"`
	Tsunami   bool    `json:"tsunami,omitempty"`

	// Hurricane fields.
	Name      string  `json:"name,omitempty"`
	Category  string  `json:"category,omitempty"`
	Intensity float64 `json:"intensity,omitempty"`

	// CAP weather fields.
	Severity  string `json:"severity,omitempty"`
	EventType string `json:"eventType,omitempty"`
	Expires   int64  `json:"expires,omitempty"`
}

// EventTime converts the epoch-millis event time to time.Time.
func (a Alert) EventTime() time.Time {
	return time.UnixMilli(a.Time)
}

// RetentionWindow is the age past which an alert is dropped from the active
// set: earthquakes stay a full day, everything else six hours.
func (a Alert) RetentionWindow() time.Duration {
	if a.Type == HazardEarthquake {
		return 24 * time.Hour
	}
	return 6 * time.Hour
}

// Location is one monitored point, immutable for the duration of a run.
type Location struct {
	Name          string  `json:"name" yaml:"name"`
	Lat           float64 `json:"lat" yaml:"lat"`
	Lon           float64 `json:"lon" yaml:"lon"`
	IsGPS         bool    `json:"isGps,omitempty" yaml:"-"`
	AlertsEnabled bool    `json:"alertsEnabled" yaml:"alertsEnabled"`
}
