package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
)

// usgsPayload builds a single-feature feed with the quake at the given
// offset from Wellington.
func usgsPayload(id string, mag, lat, lon, depth float64, tsunami int) string {
	return fmt.Sprintf(`{
		"features": [{
			"id": %q,
			"properties": {"mag": %f, "tsunami": %d, "time": 1700000000000, "place": "10km N of somewhere", "url": "https://example.org/eq"},
			"geometry": {"coordinates": [%f, %f, %f]}
		}]
	}`, id, mag, tsunami, lon, lat, depth)
}

var wellington = domain.Location{Name: "Wellington", Lat: -41.2866, Lon: 174.7756}

func TestUSGS_Fetch_NearbyStrongQuakeIsCritical(t *testing.T) {
	// M7.5 at ~49km epicentral, 10km deep: local MMI ~6.98.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(usgsPayload("us1000abcd", 7.5, wellington.Lat+0.44, wellington.Lon, 10, 0)))
	}))
	defer srv.Close()

	u := NewUSGS(testFeedClient(clockwork.NewRealClock()), observability.NewTestLogger())
	u.url = srv.URL

	alerts, err := u.Fetch(context.Background(), []domain.Location{wellington}, newSeen())
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, "us1000abcd", a.ID)
	assert.Equal(t, domain.HazardEarthquake, a.Type)
	assert.Equal(t, domain.LevelCritical, a.Level)
	assert.Equal(t, 90, a.Relevance)
	assert.Equal(t, "Wellington", a.LocationName)
	assert.Equal(t, "N", a.Direction)
	assert.Equal(t, int64(1700000000000), a.Time)
	assert.InDelta(t, 7.0, a.LocalMMI, 0.1)
}

func TestUSGS_Fetch_DistantSmallQuakeIsDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(usgsPayload("us1000wxyz", 3.0, 10.0, -100.0, 10, 0)))
	}))
	defer srv.Close()

	u := NewUSGS(testFeedClient(clockwork.NewRealClock()), observability.NewTestLogger())
	u.url = srv.URL

	alerts, err := u.Fetch(context.Background(), []domain.Location{wellington}, newSeen())
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestUSGS_Fetch_TsunamiFlagElevates(t *testing.T) {
	// Far enough that the quake alone scores high, tsunami pushes critical.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(usgsPayload("us2000tsun", 7.5, wellington.Lat+0.9, wellington.Lon, 10, 1)))
	}))
	defer srv.Close()

	u := NewUSGS(testFeedClient(clockwork.NewRealClock()), observability.NewTestLogger())
	u.url = srv.URL

	alerts, err := u.Fetch(context.Background(), []domain.Location{wellington}, newSeen())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].Tsunami)
	assert.Equal(t, domain.LevelCritical, alerts[0].Level)
}

func TestUSGS_Fetch_SecondRunWithSamePayloadYieldsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(usgsPayload("us3000dupe", 7.5, wellington.Lat+0.44, wellington.Lon, 10, 0)))
	}))
	defer srv.Close()

	u := NewUSGS(testFeedClient(clockwork.NewRealClock()), observability.NewTestLogger())
	u.url = srv.URL

	seen := newSeen()
	first, err := u.Fetch(context.Background(), []domain.Location{wellington}, seen)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := u.Fetch(context.Background(), []domain.Location{wellington}, seen)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestUSGS_Fetch_FirstQualifyingLocationWins(t *testing.T) {
	lowerHutt := domain.Location{Name: "Lower Hutt", Lat: -41.2, Lon: 174.9}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(usgsPayload("us4000near", 7.5, wellington.Lat+0.3, wellington.Lon, 10, 0)))
	}))
	defer srv.Close()

	u := NewUSGS(testFeedClient(clockwork.NewRealClock()), observability.NewTestLogger())
	u.url = srv.URL

	alerts, err := u.Fetch(context.Background(), []domain.Location{wellington, lowerHutt}, newSeen())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Wellington", alerts[0].LocationName)
}

func TestUSGS_Fetch_NoLocationsSkipsNetwork(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer srv.Close()

	u := NewUSGS(testFeedClient(clockwork.NewRealClock()), observability.NewTestLogger())
	u.url = srv.URL

	alerts, err := u.Fetch(context.Background(), nil, newSeen())
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.False(t, called)
}
