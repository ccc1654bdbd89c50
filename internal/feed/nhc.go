package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/state"
)

const nhcFeedURL = "https://www.nhc.noaa.gov/CurrentStorms.json"

// NHC adapts the NOAA National Hurricane Center active-storms feed. A storm
// is classified by NHC category and distance to the location; anything
// beyond 1500 km is ignored outright.
type NHC struct {
	client *Client
	logger *slog.Logger
	url    string
}

// NewNHC creates the tropical-cyclone adapter.
func NewNHC(client *Client, logger *slog.Logger) *NHC {
	return &NHC{client: client, logger: logger, url: nhcFeedURL}
}

// NewNHCWithURL creates the adapter against a non-default endpoint.
func NewNHCWithURL(client *Client, logger *slog.Logger, url string) *NHC {
	n := NewNHC(client, logger)
	n.url = url
	return n
}

func (n *NHC) Name() string { return "nhc" }

// The NHC feed mixes numeric and string encodings for the same fields
// across storms, hence json.Number.
type nhcFeed struct {
	ActiveStorms []struct {
		BinNumber        string      `json:"binNumber"`
		Name             string      `json:"name"`
		Classification   string      `json:"classification"` // HU, TS, STS, TD
		Intensity        json.Number `json:"intensity"`      // knots
		LatitudeNumeric  float64     `json:"latitudeNumeric"`
		LongitudeNumeric float64     `json:"longitudeNumeric"`
		MovementDir      json.Number `json:"movementDir"`
		MovementSpeed    json.Number `json:"movementSpeed"`
		LastUpdate       string      `json:"lastUpdate"`
	} `json:"activeStorms"`
}

func (n *NHC) Fetch(ctx context.Context, locations []domain.Location, seen *state.SeenSet) ([]domain.Alert, error) {
	zoneLocations := domain.FilterLocations(locations, domain.InHurricaneZone)
	if len(zoneLocations) == 0 {
		return nil, nil
	}

	body, err := n.client.Get(ctx, n.Name(), n.url, nil)
	if err != nil {
		return nil, err
	}

	var data nhcFeed
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode nhc feed: %w", err)
	}

	var alerts []domain.Alert
	for _, storm := range data.ActiveStorms {
		key := storm.BinNumber
		if key == "" {
			key = storm.Name
		}
		id := "hurricane-" + key
		if !seen.Add(id) {
			continue
		}
		n.client.metrics.EventsSeen.WithLabelValues(n.Name()).Inc()

		intensity, _ := storm.Intensity.Float64()

		for _, loc := range zoneLocations {
			distanceKm := domain.DistanceKm(loc.Lat, loc.Lon, storm.LatitudeNumeric, storm.LongitudeNumeric)
			score, ok := classifyStorm(storm.Classification, distanceKm)
			if !ok {
				continue
			}

			movement := "?"
			if s := storm.MovementSpeed.String(); s != "" {
				movement = s
			}
			place := fmt.Sprintf("%s - %s at %s mph", storm.Name, storm.MovementDir.String(), movement)

			alerts = append(alerts, domain.Alert{
				ID:           id,
				Type:         domain.HazardHurricane,
				Level:        score.Level,
				Relevance:    score.Relevance,
				Time:         n.client.Now().UnixMilli(),
				LocationName: loc.Name,
				DistanceKm:   math.Round(distanceKm),
				Direction:    domain.Direction(loc.Lat, loc.Lon, storm.LatitudeNumeric, storm.LongitudeNumeric),
				Place:        place,
				Source:       "NHC",
				URL:          "https://www.nhc.noaa.gov",
				EventLat:     storm.LatitudeNumeric,
				EventLon:     storm.LongitudeNumeric,
				Name:         storm.Name,
				Category:     storm.Classification,
				Intensity:    intensity,
			})
			n.client.metrics.AlertsScored.WithLabelValues(n.Name(), string(score.Level)).Inc()
			break
		}
	}
	return alerts, nil
}

// classifyStorm maps an NHC classification plus distance to an alert level.
// A hurricane threatens further out than a tropical storm; depressions and
// anything past 1500 km never alert.
func classifyStorm(category string, distanceKm float64) (domain.Score, bool) {
	if distanceKm >= 1500 {
		return domain.Score{}, false
	}
	isHurricane := category == "HU"
	isTropicalStorm := category == "TS" || category == "STS"

	switch {
	case isHurricane && distanceKm < 500:
		return domain.Score{Level: domain.LevelCritical, Relevance: 90}, true
	case isHurricane && distanceKm < 1000:
		return domain.Score{Level: domain.LevelHigh, Relevance: 60}, true
	case isTropicalStorm && distanceKm < 500:
		return domain.Score{Level: domain.LevelHigh, Relevance: 60}, true
	case isHurricane:
		return domain.Score{Level: domain.LevelModerate, Relevance: 30}, true
	case isTropicalStorm && distanceKm < 1000:
		return domain.Score{Level: domain.LevelModerate, Relevance: 30}, true
	default:
		return domain.Score{}, false
	}
}
