package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/state"
)

// KeywordRule maps free-text keywords to a classification value. Rules are
// evaluated in order; the first rule with any matching keyword wins, so
// more specific vocabulary must come first.
type KeywordRule struct {
	Keywords []string
	Value    string
}

func classify(content string, rules []KeywordRule, fallback string) string {
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(content, kw) {
				return rule.Value
			}
		}
	}
	return fallback
}

// capFeedSpec describes one national CAP-style RSS/Atom feed: its URL and
// headers, coverage predicate, and the per-country keyword tables used to
// infer severity and phenomenon from free text. These feeds publish no
// usable geometry, so an alert applies at country granularity to the first
// in-region location.
type capFeedSpec struct {
	name          string // metric/log label
	displaySource string
	url           string
	accept        string
	fallbackURL   string // alert URL when the entry carries no usable link
	fallbackPlace string
	inRegion      func(lat, lon float64) bool
	scanSummary   bool // classify over title+summary instead of title only
	severityRules []KeywordRule
	eventRules    []KeywordRule
	// elevateFor marks (event, severity) combinations that outrank their
	// stated severity by one step.
	elevateFor func(eventType, severity string) bool
	// hazardFor maps the phenomenon to the alert's hazard type.
	hazardFor func(eventType string) domain.HazardType
	// useItemLink points the alert at the entry's own link.
	useItemLink bool
}

// CAP is the shared adapter over every RSS/Atom CAP-style feed.
type CAP struct {
	spec   capFeedSpec
	client *Client
	logger *slog.Logger
	parser *gofeed.Parser
}

func newCAP(spec capFeedSpec, client *Client, logger *slog.Logger) *CAP {
	return &CAP{spec: spec, client: client, logger: logger, parser: gofeed.NewParser()}
}

func (c *CAP) Name() string { return c.spec.name }

func (c *CAP) Fetch(ctx context.Context, locations []domain.Location, seen *state.SeenSet) ([]domain.Alert, error) {
	covered := domain.FilterLocations(locations, c.spec.inRegion)
	if len(covered) == 0 {
		return nil, nil
	}

	body, err := c.client.Get(ctx, c.spec.name, c.spec.url, map[string]string{"Accept": c.spec.accept})
	if err != nil {
		return nil, err
	}

	parsed, err := c.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s feed: %w", c.spec.name, err)
	}

	var alerts []domain.Alert
	for _, item := range parsed.Items {
		id := item.GUID
		if id == "" {
			id = item.Link
		}
		if id == "" || !seen.Add(id) {
			continue
		}
		c.client.metrics.EventsSeen.WithLabelValues(c.spec.name).Inc()

		content := strings.ToLower(item.Title)
		if c.spec.scanSummary {
			content += " " + strings.ToLower(item.Description)
		}
		severity := classify(content, c.spec.severityRules, domain.SeverityModerate)
		eventType := classify(content, c.spec.eventRules, "weather")

		eventTime := c.client.Now()
		if item.PublishedParsed != nil {
			eventTime = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			eventTime = *item.UpdatedParsed
		}

		score := domain.MapWeatherSeverity(severity)
		if c.spec.elevateFor != nil && c.spec.elevateFor(eventType, severity) {
			score = domain.Elevate(score)
		}
		if score.Level == domain.LevelInfo {
			continue
		}

		hazard := domain.HazardSevereWeather
		if c.spec.hazardFor != nil {
			hazard = c.spec.hazardFor(eventType)
		}

		url := c.spec.fallbackURL
		if c.spec.useItemLink && item.Link != "" {
			url = item.Link
		}
		place := item.Title
		if place == "" {
			place = c.spec.fallbackPlace
		}

		// Country granularity: the first covered location receives the
		// alert; one alert maximum per entry.
		loc := covered[0]
		alerts = append(alerts, domain.Alert{
			ID:           id,
			Type:         hazard,
			Level:        score.Level,
			Relevance:    score.Relevance,
			Time:         eventTime.UnixMilli(),
			LocationName: loc.Name,
			Place:        place,
			Headline:     item.Title,
			Description:  item.Description,
			Severity:     severity,
			EventType:    eventType,
			Source:       c.spec.displaySource,
			URL:          url,
		})
		c.client.metrics.AlertsScored.WithLabelValues(c.spec.name, string(score.Level)).Inc()
	}
	return alerts, nil
}

// NewMetService adapts the New Zealand MetService severe-weather CAP feed.
// Severity is buried in English headline color words; a red severe
// thunderstorm warning outranks its stated severity by one step.
func NewMetService(client *Client, logger *slog.Logger) *CAP {
	return newCAP(capFeedSpec{
		name:          "metservice",
		displaySource: "MetService",
		url:           "https://alerts.metservice.com/cap/rss",
		accept:        "application/rss+xml, application/xml, text/xml",
		fallbackURL:   "https://www.metservice.com/warnings",
		fallbackPlace: "New Zealand",
		inRegion: func(lat, lon float64) bool {
			return domain.InRegion(lat, lon, domain.RegionNewZealand)
		},
		severityRules: []KeywordRule{
			{[]string{"red", "severe thunderstorm warning"}, domain.SeveritySevere},
			{[]string{"orange", "warning"}, domain.SeverityModerate},
			{[]string{"watch"}, domain.SeverityMinor},
		},
		eventRules: []KeywordRule{
			{[]string{"rain"}, "rain"},
			{[]string{"snow"}, "snow"},
			{[]string{"wind"}, "wind"},
			{[]string{"thunderstorm"}, "thunderstorm"},
		},
		elevateFor: func(eventType, severity string) bool {
			return eventType == "thunderstorm" && severity == domain.SeveritySevere
		},
		useItemLink: true,
	}, client, logger)
}

// NewMeteoAlarm adapts the pan-European MeteoAlarm legacy Atom feed.
func NewMeteoAlarm(client *Client, logger *slog.Logger) *CAP {
	return newCAP(capFeedSpec{
		name:          "meteoalarm",
		displaySource: "MeteoAlarm",
		url:           "https://feeds.meteoalarm.org/feeds/meteoalarm-legacy-atom-europe",
		accept:        "application/atom+xml, application/xml, text/xml",
		fallbackURL:   "https://www.meteoalarm.org",
		fallbackPlace: "Europe",
		inRegion: func(lat, lon float64) bool {
			return domain.InRegion(lat, lon, domain.RegionEurope)
		},
		scanSummary: true,
		severityRules: []KeywordRule{
			{[]string{"red", "extreme"}, domain.SeveritySevere},
			{[]string{"orange", "severe"}, domain.SeverityModerate},
			{[]string{"yellow", "moderate"}, domain.SeverityMinor},
		},
		eventRules: []KeywordRule{
			{[]string{"wind", "viento"}, "wind"},
			{[]string{"rain", "lluvia"}, "rain"},
			{[]string{"snow", "nieve"}, "snow"},
			{[]string{"thunder", "storm"}, "thunderstorm"},
			{[]string{"heat", "calor"}, "heat"},
			{[]string{"cold", "frost"}, "cold"},
			{[]string{"flood"}, "flood"},
			{[]string{"fog"}, "fog"},
		},
	}, client, logger)
}

// NewNAAD adapts Canada's National Alert Aggregation & Dissemination Atom
// feed. Vocabulary is bilingual English/French; tornado warnings elevate
// and retype the alert.
func NewNAAD(client *Client, logger *slog.Logger) *CAP {
	return newCAP(capFeedSpec{
		name:          "naad",
		displaySource: "NAAD Canada",
		url:           "https://rss.naad-adna.pelmorex.com/",
		accept:        "application/atom+xml, application/xml, text/xml",
		fallbackURL:   "https://weather.gc.ca/warnings/index_e.html",
		fallbackPlace: "Canada",
		inRegion: func(lat, lon float64) bool {
			return domain.InRegion(lat, lon, domain.RegionCanada)
		},
		scanSummary: true,
		severityRules: []KeywordRule{
			{[]string{"warning", "avertissement"}, domain.SeveritySevere},
			{[]string{"watch", "veille"}, domain.SeverityModerate},
			{[]string{"advisory", "bulletin"}, domain.SeverityMinor},
		},
		eventRules: []KeywordRule{
			{[]string{"tornado", "tornade"}, "tornado"},
			{[]string{"thunderstorm", "orage"}, "thunderstorm"},
			{[]string{"wind", "vent"}, "wind"},
			{[]string{"rain", "pluie"}, "rain"},
			{[]string{"snow", "neige"}, "snow"},
			{[]string{"blizzard"}, "blizzard"},
			{[]string{"frost", "gel"}, "frost"},
			{[]string{"heat", "chaleur"}, "heat"},
			{[]string{"flood", "inondation"}, "flood"},
		},
		elevateFor: func(eventType, _ string) bool {
			return eventType == "tornado"
		},
		hazardFor: func(eventType string) domain.HazardType {
			if eventType == "tornado" {
				return domain.HazardTornado
			}
			return domain.HazardSevereWeather
		},
	}, client, logger)
}

// NewINMET adapts Brazil's INMET warning RSS feed (Portuguese color
// vocabulary).
func NewINMET(client *Client, logger *slog.Logger) *CAP {
	return newCAP(capFeedSpec{
		name:          "inmet",
		displaySource: "INMET Brasil",
		url:           "https://apiprevmet3.inmet.gov.br/avisos/rss",
		accept:        "application/rss+xml, application/xml, text/xml",
		fallbackURL:   "https://alertas2.inmet.gov.br",
		fallbackPlace: "Brasil",
		inRegion: func(lat, lon float64) bool {
			return domain.InRegion(lat, lon, domain.RegionBrazil)
		},
		severityRules: []KeywordRule{
			{[]string{"vermelho", "perigo"}, domain.SeveritySevere},
			{[]string{"laranja"}, domain.SeverityModerate},
			{[]string{"amarelo"}, domain.SeverityMinor},
		},
		eventRules: []KeywordRule{
			{[]string{"chuva", "precipitação"}, "rain"},
			{[]string{"tempestade"}, "thunderstorm"},
			{[]string{"vento"}, "wind"},
			{[]string{"onda de calor"}, "heat"},
		},
	}, client, logger)
}

// NewMeteoChile adapts the Chilean DMC warning RSS feed (Spanish color
// vocabulary).
func NewMeteoChile(client *Client, logger *slog.Logger) *CAP {
	return newCAP(capFeedSpec{
		name:          "meteochile",
		displaySource: "MeteoChile",
		url:           "https://archivos.meteochile.gob.cl/portaldmc/rss/rss.php",
		accept:        "application/rss+xml, application/xml, text/xml",
		fallbackURL:   "https://www.meteochile.gob.cl/alertas",
		fallbackPlace: "Chile",
		inRegion: func(lat, lon float64) bool {
			return domain.InRegion(lat, lon, domain.RegionChile)
		},
		severityRules: []KeywordRule{
			{[]string{"roja", "extrema"}, domain.SeveritySevere},
			{[]string{"naranja", "alerta"}, domain.SeverityModerate},
			{[]string{"amarilla", "aviso"}, domain.SeverityMinor},
		},
		eventRules: []KeywordRule{
			{[]string{"lluvia", "precipitaciones"}, "rain"},
			{[]string{"viento"}, "wind"},
			{[]string{"nieve"}, "snow"},
			{[]string{"tormenta"}, "thunderstorm"},
			{[]string{"marejada"}, "coastal"},
			{[]string{"frío"}, "cold"},
		},
	}, client, logger)
}
