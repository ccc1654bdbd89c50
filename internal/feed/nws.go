package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/state"
)

const nwsFeedURL = "https://api.weather.gov/alerts/active"

// nwsPriorityPrefixes is the first word of each high-priority NWS event
// name. Anything else in the active-alerts firehose is skipped.
var nwsPriorityPrefixes = []string{
	"Tsunami", "Earthquake", "Volcano", "Tornado",
	"Hurricane", "Typhoon", "Tropical", "Extreme", "Storm", "Flash",
}

// NWS adapts the US National Weather Service active-alerts feed: CAP
// alerts as GeoJSON features, severity stated by the issuing office,
// polygon geometry reduced to its centroid.
type NWS struct {
	client *Client
	logger *slog.Logger
	url    string
}

// NewNWS creates the US alerts adapter.
func NewNWS(client *Client, logger *slog.Logger) *NWS {
	return &NWS{client: client, logger: logger, url: nwsFeedURL}
}

func (n *NWS) Name() string { return "nws" }

type nwsFeed struct {
	Features []struct {
		Properties struct {
			ID        string `json:"id"`
			Event     string `json:"event"`
			Severity  string `json:"severity"`
			Certainty string `json:"certainty"`
			Headline  string `json:"headline"`
			AreaDesc  string `json:"areaDesc"`
			Onset     string `json:"onset"`
			Effective string `json:"effective"`
			Sent      string `json:"sent"`
		} `json:"properties"`
		Geometry *struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"` // polygon rings, [lon, lat]
		} `json:"geometry"`
	} `json:"features"`
}

func (n *NWS) Fetch(ctx context.Context, locations []domain.Location, seen *state.SeenSet) ([]domain.Alert, error) {
	usaLocations := domain.FilterLocations(locations, domain.InUSA)
	if len(usaLocations) == 0 {
		return nil, nil
	}

	body, err := n.client.Get(ctx, n.Name(), n.url, map[string]string{
		"User-Agent": "hazard-alert-service/1.0",
		"Accept":     "application/geo+json",
	})
	if err != nil {
		return nil, err
	}

	var data nwsFeed
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode nws feed: %w", err)
	}

	var alerts []domain.Alert
	for _, feature := range data.Features {
		props := feature.Properties
		if !nwsPriority(props.Event) {
			continue
		}

		id := props.ID
		if id == "" {
			id = fmt.Sprintf("nws-%s-%s", props.Event, props.Onset)
		}
		if !seen.Add(id) {
			continue
		}
		n.client.metrics.EventsSeen.WithLabelValues(n.Name()).Inc()

		// Only polygon alerts carry usable geometry; zone-referenced
		// alerts have none and are skipped.
		if feature.Geometry == nil || feature.Geometry.Type != "Polygon" || len(feature.Geometry.Coordinates) == 0 {
			continue
		}
		alertLat, alertLon, ok := domain.PolygonCentroid(ringVertices(feature.Geometry.Coordinates[0]))
		if !ok {
			continue
		}

		eventTime := n.eventTime(props.Onset, props.Effective, props.Sent)
		hazard := classifyNWSEvent(props.Event)

		for _, loc := range usaLocations {
			score := domain.MapWeatherSeverity(props.Severity)
			if hazard == domain.HazardTsunami || hazard == domain.HazardTornado {
				score = domain.Elevate(score)
			}
			if score.Level == domain.LevelInfo {
				continue
			}

			place := props.AreaDesc
			if place == "" {
				place = props.Headline
			}
			if place == "" {
				place = props.Event
			}

			distanceKm := domain.DistanceKm(loc.Lat, loc.Lon, alertLat, alertLon)
			alerts = append(alerts, domain.Alert{
				ID:           id,
				Type:         hazard,
				Level:        score.Level,
				Relevance:    score.Relevance,
				Time:         eventTime.UnixMilli(),
				LocationName: loc.Name,
				DistanceKm:   math.Round(distanceKm),
				Direction:    domain.Direction(loc.Lat, loc.Lon, alertLat, alertLon),
				Place:        place,
				Headline:     props.Headline,
				Severity:     props.Severity,
				EventType:    props.Event,
				Source:       "NWS",
				URL:          "https://alerts.weather.gov",
				EventLat:     alertLat,
				EventLon:     alertLon,
			})
			n.client.metrics.AlertsScored.WithLabelValues(n.Name(), string(score.Level)).Inc()
			break
		}
	}
	return alerts, nil
}

func (n *NWS) eventTime(candidates ...string) time.Time {
	for _, raw := range candidates {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return n.client.Now()
}

func nwsPriority(event string) bool {
	for _, prefix := range nwsPriorityPrefixes {
		if strings.Contains(event, prefix) {
			return true
		}
	}
	return false
}

func classifyNWSEvent(event string) domain.HazardType {
	lower := strings.ToLower(event)
	switch {
	case strings.Contains(lower, "tsunami"):
		return domain.HazardTsunami
	case strings.Contains(lower, "tornado"):
		return domain.HazardTornado
	case strings.Contains(lower, "hurricane"), strings.Contains(lower, "typhoon"):
		return domain.HazardHurricane
	case strings.Contains(lower, "volcano"):
		return domain.HazardVolcano
	case strings.Contains(lower, "earthquake"):
		return domain.HazardEarthquake
	default:
		return domain.HazardSevereWeather
	}
}

// ringVertices converts a GeoJSON ring of [lon, lat] pairs into (lat, lon)
// vertices. Short coordinate arrays are dropped.
func ringVertices(ring [][]float64) [][2]float64 {
	var vertices [][2]float64
	for _, c := range ring {
		if len(c) < 2 {
			continue
		}
		vertices = append(vertices, [2]float64{c[1], c[0]})
	}
	return vertices
}
