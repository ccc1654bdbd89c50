package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/state"
)

const (
	smnIndexURL = "https://ssl.smn.gob.ar/CAP/AR.php"
	smnSiteURL  = "https://www.smn.gob.ar/alertas"
)

// SMN adapts Argentina's Servicio Meteorológico Nacional CAP feed. Unlike
// the other weather sources it is two-stage: an RSS index lists per-warning
// CAP XML documents, and each document carries the warning polygon. A
// location only alerts when it sits inside a polygon, so SMN is the one
// weather source with street-level precision.
type SMN struct {
	client      *Client
	logger      *slog.Logger
	indexURL    string
	concurrency int
	parser      *gofeed.Parser
}

// NewSMN creates the Argentina adapter. concurrency bounds the parallel
// detail-document fetches per run.
func NewSMN(client *Client, logger *slog.Logger, concurrency int) *SMN {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SMN{
		client:      client,
		logger:      logger,
		indexURL:    smnIndexURL,
		concurrency: concurrency,
		parser:      gofeed.NewParser(),
	}
}

func (s *SMN) Name() string { return "smn" }

// smnCAPDoc is the subset of a CAP 1.2 alert document SMN publishes per
// warning.
type smnCAPDoc struct {
	XMLName xml.Name `xml:"alert"`
	Sent    string   `xml:"sent"`
	Info    []struct {
		Event       string `xml:"event"`
		Severity    string `xml:"severity"`
		Onset       string `xml:"onset"`
		Expires     string `xml:"expires"`
		Headline    string `xml:"headline"`
		Description string `xml:"description"`
		Area        []struct {
			AreaDesc string   `xml:"areaDesc"`
			Polygons []string `xml:"polygon"`
		} `xml:"area"`
	} `xml:"info"`
}

func (s *SMN) Fetch(ctx context.Context, locations []domain.Location, seen *state.SeenSet) ([]domain.Alert, error) {
	arLocations := domain.FilterLocations(locations, func(lat, lon float64) bool {
		return domain.InRegion(lat, lon, domain.RegionArgentina)
	})
	if len(arLocations) == 0 {
		return nil, nil
	}

	body, err := s.client.Get(ctx, s.Name(), s.indexURL, nil)
	if err != nil {
		return nil, err
	}

	index, err := s.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse smn index: %w", err)
	}

	var detailURLs []string
	for _, item := range index.Items {
		link := item.Link
		if link == "" || !strings.Contains(link, ".xml") {
			continue
		}
		// The index still hands out plain-http links to its own host.
		if strings.HasPrefix(link, "http://") && strings.Contains(link, "smn.gob.ar") {
			link = "https://" + strings.TrimPrefix(link, "http://")
		}
		if !seen.Contains(link) {
			detailURLs = append(detailURLs, link)
		}
	}
	if len(detailURLs) == 0 {
		return nil, nil
	}

	// Fetch detail documents with bounded concurrency. Individual failures
	// are logged and dropped; the rest of the batch still scores.
	sem := make(chan struct{}, s.concurrency)
	docs := make([]*smnCAPDoc, len(detailURLs))
	var wg sync.WaitGroup
	for i, url := range detailURLs {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			raw, err := s.client.Get(ctx, s.Name(), url, nil)
			if err != nil {
				s.logger.Warn("smn detail fetch failed", "url", url, "error", err)
				return
			}
			var doc smnCAPDoc
			if err := xml.Unmarshal(raw, &doc); err != nil {
				s.logger.Warn("smn detail parse failed", "url", url, "error", err)
				return
			}
			docs[i] = &doc
		}(i, url)
	}
	wg.Wait()

	// One alert per (phenomenon, severity) per location, so five index
	// entries for the same storm front collapse into one card. A link is
	// only marked seen once its document parsed; failed fetches stay
	// unmarked and are retried on the next run.
	emitted := make(map[string]bool)
	var alerts []domain.Alert
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		seen.Add(detailURLs[i])
		s.client.metrics.EventsSeen.WithLabelValues(s.Name()).Inc()
		alerts = append(alerts, s.scoreDoc(doc, arLocations, emitted)...)
	}
	return alerts, nil
}

func (s *SMN) scoreDoc(doc *smnCAPDoc, locations []domain.Location, emitted map[string]bool) []domain.Alert {
	var alerts []domain.Alert
	for _, info := range doc.Info {
		phenomenon := classifySMNEvent(info.Event)
		severity := canonicalSeverity(info.Severity)
		score := domain.MapWeatherSeverity(severity)
		if score.Level == domain.LevelInfo {
			continue
		}

		eventTime := s.eventTime(info.Onset, doc.Sent)
		var expires int64
		if t, err := time.Parse(time.RFC3339, info.Expires); err == nil {
			expires = t.UnixMilli()
		}

		var polygons [][][2]float64
		for _, area := range info.Area {
			for _, raw := range area.Polygons {
				if poly := parseCAPPolygon(raw); len(poly) >= 3 {
					polygons = append(polygons, poly)
				}
			}
		}
		if len(polygons) == 0 {
			continue
		}

		for _, loc := range locations {
			inside := false
			for _, poly := range polygons {
				if domain.PointInPolygon(loc.Lat, loc.Lon, poly) {
					inside = true
					break
				}
			}
			if !inside {
				continue
			}

			key := phenomenon + "-" + severity + "-" + loc.Name
			if emitted[key] {
				continue
			}
			emitted[key] = true

			place := info.Headline
			if place == "" {
				place = loc.Name
			}
			alerts = append(alerts, domain.Alert{
				ID:           "smn-" + key,
				Type:         domain.HazardSevereWeather,
				Level:        score.Level,
				Relevance:    score.Relevance,
				Time:         eventTime.UnixMilli(),
				LocationName: loc.Name,
				Place:        place,
				Headline:     info.Headline,
				Description:  info.Description,
				Severity:     severity,
				EventType:    phenomenon,
				Expires:      expires,
				Source:       "SMN Argentina",
				URL:          smnSiteURL,
			})
			s.client.metrics.AlertsScored.WithLabelValues(s.Name(), string(score.Level)).Inc()
		}
	}
	return alerts
}

func (s *SMN) eventTime(candidates ...string) time.Time {
	for _, raw := range candidates {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return s.client.Now()
}

// classifySMNEvent folds SMN's Spanish event names into the phenomenon
// vocabulary used for dedup keys.
func classifySMNEvent(event string) string {
	lower := strings.ToLower(event)
	switch {
	case strings.Contains(lower, "tormenta"), strings.Contains(lower, "granizo"):
		return "tormenta"
	case strings.Contains(lower, "viento"):
		return "viento"
	case strings.Contains(lower, "lluvia"):
		return "lluvia"
	case strings.Contains(lower, "nieve"):
		return "nieve"
	case strings.Contains(lower, "calor"), strings.Contains(lower, "temperatura"):
		return "calor"
	case strings.Contains(lower, "frio"), strings.Contains(lower, "helada"):
		return "frio"
	default:
		return "clima"
	}
}

// canonicalSeverity normalizes a CAP severity element to the canonical
// Extreme/Severe/Moderate/Minor vocabulary, defaulting unknown values to
// Moderate.
func canonicalSeverity(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "extreme":
		return domain.SeverityExtreme
	case "severe":
		return domain.SeveritySevere
	case "minor", "unknown":
		return domain.SeverityMinor
	default:
		return domain.SeverityModerate
	}
}

// parseCAPPolygon parses a CAP polygon value, whitespace-separated
// "lat,lon" pairs, into vertices. Malformed pairs are dropped.
func parseCAPPolygon(raw string) [][2]float64 {
	var points [][2]float64
	for _, pair := range strings.Fields(raw) {
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			continue
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil || math.IsNaN(lat) {
			continue
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || math.IsNaN(lon) {
			continue
		}
		points = append(points, [2]float64{lat, lon})
	}
	return points
}
