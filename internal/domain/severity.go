package domain

// Score pairs an alert level with its 0-100 relevance ranking value.
type Score struct {
	Level     AlertLevel
	Relevance int
}

// Canonical CAP severity vocabulary. Feeds with free-text severities are
// normalized to these values before mapping.
const (
	SeverityExtreme  = "Extreme"
	SeveritySevere   = "Severe"
	SeverityModerate = "Moderate"
	SeverityMinor    = "Minor"
)

// MapWeatherSeverity maps a canonical CAP severity to an alert level. The
// issuing authority's stated severity is authoritative; distance and age
// never inflate it.
func MapWeatherSeverity(severity string) Score {
	switch severity {
	case SeverityExtreme:
		return Score{LevelCritical, 90}
	case SeveritySevere:
		return Score{LevelHigh, 60}
	case SeverityModerate:
		return Score{LevelModerate, 30}
	default:
		return Score{LevelInfo, 10}
	}
}

// MapLocalMMI maps the locally felt intensity to an alert level. MMI 6+
// means damage is possible, 5 is felt by all, 4 by many. Magnitude 7+
// events never score below moderate regardless of distance.
func MapLocalMMI(localMMI, magnitude float64) Score {
	switch {
	case localMMI >= 6:
		return Score{LevelCritical, 90}
	case localMMI >= 5:
		return Score{LevelHigh, 60}
	case localMMI >= 4:
		return Score{LevelModerate, 30}
	case magnitude >= 7:
		return Score{LevelModerate, 25}
	default:
		return Score{LevelInfo, 5}
	}
}

// Elevate bumps a score by exactly one severity step, used for hazard
// subtypes that outrank their stated severity (tsunami, tornado, severe
// thunderstorm). It never jumps two steps.
func Elevate(s Score) Score {
	switch s.Level {
	case LevelInfo:
		return Score{LevelModerate, 30}
	case LevelModerate:
		return Score{LevelHigh, 60}
	default:
		return Score{LevelCritical, 90}
	}
}
