package notify

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
	"github.com/couchcryptid/hazard-alert-service/internal/state"
)

type captureSink struct {
	sent []Notification
	err  error
}

func (s *captureSink) Send(_ context.Context, n Notification) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func quakeAlert(id string) domain.Alert {
	return domain.Alert{
		ID:           id,
		Type:         domain.HazardEarthquake,
		Level:        domain.LevelCritical,
		Relevance:    90,
		Time:         time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC).UnixMilli(),
		LocationName: "Wellington",
		DistanceKm:   49,
		Place:        "20 km north of Wellington",
		Magnitude:    7.5,
		LocalMMI:     7.0,
	}
}

func testDispatcher(sink Sink, clock clockwork.Clock) *Dispatcher {
	return NewDispatcher(sink, observability.NewTestLogger(), observability.NewMetricsForTesting(), clock)
}

func TestDispatcher_Dispatch_SendsNewAlert(t *testing.T) {
	sink := &captureSink{}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC))
	d := testDispatcher(sink, clock)

	notified := state.NewSeenSet(nil, state.MaxNotifiedKeys)
	d.Dispatch(context.Background(), []domain.Alert{quakeAlert("us100")}, notified)

	require.Len(t, sink.sent, 1)
	n := sink.sent[0]
	assert.Equal(t, "earthquake-us100-Wellington", n.Key)
	assert.Equal(t, "M7.5 Earthquake", n.Title)
	assert.Contains(t, n.Body, "49 km from Wellington")
	assert.Contains(t, n.Body, "30 min ago")
	assert.Contains(t, n.Body, "Expected shaking: Severe")
	assert.Equal(t, 2, n.Priority)
	assert.True(t, n.RequireInteraction)
}

func TestDispatcher_Dispatch_SuppressesRepeatKey(t *testing.T) {
	sink := &captureSink{}
	d := testDispatcher(sink, clockwork.NewFakeClock())

	notified := state.NewSeenSet(nil, state.MaxNotifiedKeys)
	alert := quakeAlert("us200")
	d.Dispatch(context.Background(), []domain.Alert{alert}, notified)
	d.Dispatch(context.Background(), []domain.Alert{alert}, notified)

	assert.Len(t, sink.sent, 1)
}

func TestDispatcher_Dispatch_SameEventDifferentLocationNotifiesBoth(t *testing.T) {
	sink := &captureSink{}
	d := testDispatcher(sink, clockwork.NewFakeClock())

	a := quakeAlert("us300")
	b := quakeAlert("us300")
	b.LocationName = "Lower Hutt"

	notified := state.NewSeenSet(nil, state.MaxNotifiedKeys)
	d.Dispatch(context.Background(), []domain.Alert{a, b}, notified)
	assert.Len(t, sink.sent, 2)
}

func TestDispatcher_Dispatch_SinkErrorDoesNotAbortBatch(t *testing.T) {
	sink := &captureSink{err: assert.AnError}
	d := testDispatcher(sink, clockwork.NewFakeClock())

	notified := state.NewSeenSet(nil, state.MaxNotifiedKeys)
	d.Dispatch(context.Background(), []domain.Alert{quakeAlert("us400"), quakeAlert("us401")}, notified)
	assert.Empty(t, sink.sent)
	// Keys were still recorded so the alerts do not re-notify forever.
	assert.Equal(t, 2, notified.Len())
}

func TestRender_HurricaneUsesStormName(t *testing.T) {
	a := domain.Alert{
		Type:         domain.HazardHurricane,
		Level:        domain.LevelHigh,
		Name:         "Dorian",
		LocationName: "Miami",
		DistanceKm:   320,
	}
	n := Render(a, Key(a), time.Now())
	assert.Equal(t, "Dorian", n.Title)
	assert.Equal(t, 1, n.Priority)
	assert.Contains(t, n.Body, "320 km from Miami")
}

func TestRender_SevereWeatherIncludesSeverity(t *testing.T) {
	a := domain.Alert{
		Type:         domain.HazardSevereWeather,
		Level:        domain.LevelModerate,
		Severity:     domain.SeverityModerate,
		LocationName: "Madrid",
		Headline:     "Orange wind warning",
	}
	n := Render(a, Key(a), time.Now())
	assert.Equal(t, "Moderate Weather Alert", n.Title)
	assert.Equal(t, 0, n.Priority)
	assert.False(t, n.RequireInteraction)
	assert.Contains(t, n.Body, "Orange wind warning")
}

func TestRender_BodyIncludesBearingWhenKnown(t *testing.T) {
	a := quakeAlert("us600")
	a.Direction = "NE"
	n := Render(a, Key(a), time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC))
	assert.Contains(t, n.Body, "49 km NE of Wellington")
}

func TestRender_TsunamiFlagAddsWarningLine(t *testing.T) {
	a := quakeAlert("us500")
	a.Tsunami = true
	n := Render(a, Key(a), time.Now())
	assert.Contains(t, n.Body, "TSUNAMI WARNING")
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "< 1 km", FormatDistance(0.4))
	assert.Equal(t, "42 km", FormatDistance(42.3))
	assert.Equal(t, "340 km", FormatDistance(342))
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "just now", FormatAge(20*time.Second))
	assert.Equal(t, "45 min ago", FormatAge(45*time.Minute))
	assert.Equal(t, "3h ago", FormatAge(3*time.Hour))
	assert.Equal(t, "2d ago", FormatAge(49*time.Hour))
}

func TestSummarize_BadgeLadder(t *testing.T) {
	critical := domain.Alert{Level: domain.LevelCritical}
	high := domain.Alert{Level: domain.LevelHigh}
	moderate := domain.Alert{Level: domain.LevelModerate}
	info := domain.Alert{Level: domain.LevelInfo}

	assert.Equal(t, Badge{}, Summarize(nil))
	assert.Equal(t, Badge{Text: "!", Color: colorCritical}, Summarize([]domain.Alert{moderate, critical}))
	assert.Equal(t, Badge{Text: "!", Color: colorHigh}, Summarize([]domain.Alert{high, moderate}))
	assert.Equal(t, Badge{Text: "2", Color: colorModerate}, Summarize([]domain.Alert{moderate, moderate}))
	assert.Equal(t, Badge{Text: "1", Color: colorDefault}, Summarize([]domain.Alert{info}))
}

func TestBadgeKeeper(t *testing.T) {
	var k BadgeKeeper
	assert.Equal(t, Badge{}, k.Current())

	k.Set(Badge{Text: "!", Color: colorCritical})
	assert.Equal(t, "!", k.Current().Text)

	k.Clear()
	assert.Equal(t, Badge{}, k.Current())
}
