package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/state"
)

const geonetFeedURL = "https://api.geonet.org.nz/quake?MMI=3"

// GeoNet adapts the New Zealand GeoNet quake feed: the same point-feature
// geometry as USGS plus publicID, epicentral mmi, and a locality string.
type GeoNet struct {
	client *Client
	logger *slog.Logger
	url    string
}

// NewGeoNet creates the New Zealand earthquake adapter.
func NewGeoNet(client *Client, logger *slog.Logger) *GeoNet {
	return &GeoNet{client: client, logger: logger, url: geonetFeedURL}
}

func (g *GeoNet) Name() string { return "geonet" }

type geonetFeed struct {
	Features []struct {
		Properties struct {
			PublicID  string  `json:"publicID"`
			Magnitude float64 `json:"magnitude"`
			MMI       float64 `json:"mmi"` // epicentral, not used for scoring
			Locality  string  `json:"locality"`
			Time      string  `json:"time"`
		} `json:"properties"`
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
		} `json:"geometry"`
	} `json:"features"`
}

func (g *GeoNet) Fetch(ctx context.Context, locations []domain.Location, seen *state.SeenSet) ([]domain.Alert, error) {
	nzLocations := domain.FilterLocations(locations, func(lat, lon float64) bool {
		return domain.InRegion(lat, lon, domain.RegionNewZealand)
	})
	if len(nzLocations) == 0 {
		return nil, nil
	}

	body, err := g.client.Get(ctx, g.Name(), g.url, nil)
	if err != nil {
		return nil, err
	}

	var data geonetFeed
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode geonet feed: %w", err)
	}

	var alerts []domain.Alert
	for _, feature := range data.Features {
		props := feature.Properties
		id := props.PublicID
		if id == "" {
			id = "geonet-" + props.Time
		}
		if !seen.Add(id) {
			continue
		}
		g.client.metrics.EventsSeen.WithLabelValues(g.Name()).Inc()

		coords := feature.Geometry.Coordinates
		if len(coords) < 2 {
			g.logger.Warn("skipping quake without coordinates", "source", g.Name(), "id", id)
			continue
		}
		lon, lat := coords[0], coords[1]
		var depth float64
		if len(coords) > 2 {
			depth = coords[2]
		}

		eventTime := g.client.Now()
		if t, err := time.Parse(time.RFC3339, props.Time); err == nil {
			eventTime = t
		}

		if alert, ok := scoreQuake(quakeEvent{
			id:        id,
			lat:       lat,
			lon:       lon,
			depth:     depth,
			magnitude: props.Magnitude,
			timeMs:    eventTime.UnixMilli(),
			place:     props.Locality,
			url:       "https://www.geonet.org.nz/earthquake/" + id,
			source:    "GeoNet",
		}, nzLocations); ok {
			g.client.metrics.AlertsScored.WithLabelValues(g.Name(), string(alert.Level)).Inc()
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}
