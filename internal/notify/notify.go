// Package notify turns scored alerts into user-facing notifications and
// the summary badge.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
	"github.com/couchcryptid/hazard-alert-service/internal/state"
)

// Notification is one rendered alert ready for delivery.
type Notification struct {
	Key                string       `json:"key"`
	Title              string       `json:"title"`
	Body               string       `json:"body"`
	Priority           int          `json:"priority"`
	RequireInteraction bool         `json:"requireInteraction"`
	Alert              domain.Alert `json:"alert"`
}

// Sink delivers rendered notifications. Delivery failures are logged by the
// dispatcher; they never fail the run.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the structured log. It is the default
// sink when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, n Notification) error {
	s.logger.Info("notification",
		"key", n.Key,
		"title", n.Title,
		"body", n.Body,
		"priority", n.Priority,
		"level", n.Alert.Level,
	)
	return nil
}

// Dispatcher renders alerts into notifications and suppresses repeats. The
// suppression key is type-id-location, so the same event re-scored for the
// same place never notifies twice even across restarts.
type Dispatcher struct {
	sink    Sink
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

func NewDispatcher(sink Sink, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Dispatcher {
	return &Dispatcher{sink: sink, logger: logger, metrics: metrics, clock: clock}
}

// Key returns the stable suppression key for an alert.
func Key(a domain.Alert) string {
	return fmt.Sprintf("%s-%s-%s", a.Type, a.ID, a.LocationName)
}

// Dispatch sends a notification for every alert not yet in the notified
// set, and records the new keys in it. The caller persists the set.
func (d *Dispatcher) Dispatch(ctx context.Context, alerts []domain.Alert, notified *state.SeenSet) {
	for _, alert := range alerts {
		key := Key(alert)
		if !notified.Add(key) {
			d.metrics.NotificationsSuppressed.Inc()
			continue
		}

		n := Render(alert, key, d.clock.Now())
		if err := d.sink.Send(ctx, n); err != nil {
			d.logger.Error("notification delivery failed", "key", key, "error", err)
			continue
		}
		d.metrics.NotificationsSent.Inc()
	}
}

// Render builds the notification title and body for an alert.
func Render(a domain.Alert, key string, now time.Time) Notification {
	return Notification{
		Key:                key,
		Title:              title(a),
		Body:               body(a, now),
		Priority:           priority(a.Level),
		RequireInteraction: a.Level == domain.LevelCritical || a.Level == domain.LevelHigh,
		Alert:              a,
	}
}

func priority(level domain.AlertLevel) int {
	switch level {
	case domain.LevelCritical:
		return 2
	case domain.LevelHigh:
		return 1
	default:
		return 0
	}
}

var hazardNames = map[domain.HazardType]string{
	domain.HazardEarthquake:    "Earthquake",
	domain.HazardTsunami:       "Tsunami",
	domain.HazardVolcano:       "Volcano",
	domain.HazardHurricane:     "Hurricane",
	domain.HazardWildfire:      "Wildfire",
	domain.HazardTornado:       "Tornado",
	domain.HazardSevereWeather: "Severe Weather",
}

func title(a domain.Alert) string {
	switch a.Type {
	case domain.HazardEarthquake:
		return fmt.Sprintf("M%.1f Earthquake", a.Magnitude)
	case domain.HazardHurricane:
		if a.Name != "" {
			return a.Name
		}
		return "Hurricane"
	case domain.HazardSevereWeather:
		return strings.TrimSpace(a.Severity + " Weather Alert")
	default:
		if name, ok := hazardNames[a.Type]; ok {
			return name
		}
		return "Hazard Alert"
	}
}

func body(a domain.Alert, now time.Time) string {
	var b strings.Builder

	switch {
	case a.DistanceKm > 0 && a.Direction != "":
		fmt.Fprintf(&b, "%s %s of %s", FormatDistance(a.DistanceKm), a.Direction, a.LocationName)
	case a.DistanceKm > 0:
		fmt.Fprintf(&b, "%s from %s", FormatDistance(a.DistanceKm), a.LocationName)
	default:
		b.WriteString(a.LocationName)
	}

	if age := now.Sub(a.EventTime()); age >= 0 && age < 2*time.Hour {
		b.WriteString(" | " + FormatAge(age))
	}

	if a.Headline != "" {
		b.WriteString("\n" + a.Headline)
	} else if a.Place != "" {
		b.WriteString("\n" + a.Place)
	}

	if a.Type == domain.HazardEarthquake && a.LocalMMI >= 3 {
		b.WriteString("\nExpected shaking: " + domain.MMIDescription(a.LocalMMI))
	}

	if a.Tsunami {
		b.WriteString("\nTSUNAMI WARNING")
	}
	return b.String()
}

// FormatDistance renders a distance the way users expect: exact under
// 100 km, rounded to tens beyond that.
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return "< 1 km"
	case km < 100:
		return fmt.Sprintf("%.0f km", km)
	default:
		return fmt.Sprintf("%.0f km", math.Round(km/10)*10)
	}
}

// FormatAge renders how long ago an event happened.
func FormatAge(age time.Duration) string {
	minutes := age.Minutes()
	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%.0f min ago", minutes)
	}
	hours := math.Round(minutes / 60)
	if hours < 24 {
		return fmt.Sprintf("%.0fh ago", hours)
	}
	return fmt.Sprintf("%.0fd ago", math.Round(hours/24))
}
