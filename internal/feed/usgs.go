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

const usgsFeedURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/2.5_hour.geojson"

// USGS adapts the global USGS earthquake summary feed (M2.5+, last hour).
// It is the one adapter that applies to every location.
type USGS struct {
	client *Client
	logger *slog.Logger
	url    string
}

// NewUSGS creates the global earthquake adapter.
func NewUSGS(client *Client, logger *slog.Logger) *USGS {
	return &USGS{client: client, logger: logger, url: usgsFeedURL}
}

func (u *USGS) Name() string { return "usgs" }

// USGS GeoJSON wire types.

type usgsFeed struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string `json:"id"`
	Properties struct {
		Mag     float64 `json:"mag"`
		Sig     int     `json:"sig"`
		Tsunami int     `json:"tsunami"`
		Time    int64   `json:"time"`
		Place   string  `json:"place"`
		URL     string  `json:"url"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
	} `json:"geometry"`
}

func (u *USGS) Fetch(ctx context.Context, locations []domain.Location, seen *state.SeenSet) ([]domain.Alert, error) {
	if len(locations) == 0 {
		return nil, nil
	}

	body, err := u.client.Get(ctx, u.Name(), u.url, nil)
	if err != nil {
		return nil, err
	}

	var data usgsFeed
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode usgs feed: %w", err)
	}

	var alerts []domain.Alert
	for _, eq := range data.Features {
		if eq.ID == "" || !seen.Add(eq.ID) {
			continue
		}
		u.client.metrics.EventsSeen.WithLabelValues(u.Name()).Inc()

		coords := eq.Geometry.Coordinates
		if len(coords) < 2 {
			u.logger.Warn("skipping earthquake without coordinates", "source", u.Name(), "id", eq.ID)
			continue
		}
		lon, lat := coords[0], coords[1]
		var depth float64
		if len(coords) > 2 {
			depth = coords[2]
		}

		if alert, ok := scoreQuake(quakeEvent{
			id:        eq.ID,
			lat:       lat,
			lon:       lon,
			depth:     depth,
			magnitude: eq.Properties.Mag,
			tsunami:   eq.Properties.Tsunami == 1,
			timeMs:    eq.Properties.Time,
			place:     eq.Properties.Place,
			url:       eq.Properties.URL,
			source:    "USGS",
		}, locations); ok {
			u.client.metrics.AlertsScored.WithLabelValues(u.Name(), string(alert.Level)).Inc()
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

// quakeEvent is the normalized earthquake record shared by the point-feature
// quake adapters.
type quakeEvent struct {
	id        string
	lat, lon  float64
	depth     float64
	magnitude float64
	tsunami   bool
	timeMs    int64
	place     string
	url       string
	source    string
}

// scoreQuake scores an earthquake against each location in order and
// returns the alert for the first location where the locally felt intensity
// rises above info. A tsunami flag elevates the level by one step.
func scoreQuake(eq quakeEvent, locations []domain.Location) (domain.Alert, bool) {
	for _, loc := range locations {
		distanceKm := domain.DistanceKm(loc.Lat, loc.Lon, eq.lat, eq.lon)
		localMMI := domain.LocalMMI(eq.magnitude, eq.depth, distanceKm)

		score := domain.MapLocalMMI(localMMI, eq.magnitude)
		if eq.tsunami {
			score = domain.Elevate(score)
		}
		if score.Level == domain.LevelInfo {
			continue
		}

		place := eq.place
		if place == "" {
			place = fmt.Sprintf("%.0fkm from %s", distanceKm, loc.Name)
		}

		return domain.Alert{
			ID:           eq.id,
			Type:         domain.HazardEarthquake,
			Level:        score.Level,
			Relevance:    score.Relevance,
			Time:         eq.timeMs,
			LocationName: loc.Name,
			DistanceKm:   math.Round(distanceKm),
			Direction:    domain.Direction(loc.Lat, loc.Lon, eq.lat, eq.lon),
			Place:        place,
			Source:       eq.source,
			URL:          eq.url,
			EventLat:     eq.lat,
			EventLon:     eq.lon,
			Magnitude:    eq.magnitude,
			Depth:        eq.depth,
			LocalMMI:     math.Round(localMMI*10) / 10,
			Tsunami:      eq.tsunami,
		}, true
	}
	return domain.Alert{}, false
}
