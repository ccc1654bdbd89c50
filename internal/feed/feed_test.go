package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
	"github.com/couchcryptid/hazard-alert-service/internal/state"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testFeedClient(clock clockwork.Clock) *Client {
	return NewClient(5*time.Second, observability.NewTestLogger(), testMetrics(), clock)
}

func TestClient_Get_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := testFeedClient(clockwork.NewRealClock())
	body, err := c.Get(context.Background(), "test", srv.URL, map[string]string{"User-Agent": "test-agent"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestClient_Get_ErrorArmsCooldown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	c := testFeedClient(clock)

	_, err := c.Get(context.Background(), "test", srv.URL, nil)
	require.Error(t, err)

	// Second fetch inside the cooldown window is refused without I/O.
	_, err = c.Get(context.Background(), "test", srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cooling down")
}

func TestClient_Get_CooldownExpires(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	c := testFeedClient(clock)

	_, err := c.Get(context.Background(), "test", srv.URL, nil)
	require.Error(t, err)

	clock.Advance(softCooldown + time.Second)

	body, err := c.Get(context.Background(), "test", srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestClient_Get_AuthFailureUsesHardCooldown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	c := testFeedClient(clock)

	_, err := c.Get(context.Background(), "test", srv.URL, nil)
	require.Error(t, err)

	// Past the soft window but inside the hard window: still cooling.
	clock.Advance(softCooldown + time.Minute)
	_, err = c.Get(context.Background(), "test", srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cooling down")

	clock.Advance(hardCooldown)
	_, err = c.Get(context.Background(), "test", srv.URL, nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "cooling down")
}

func TestClient_Get_CooldownIsPerSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer okSrv.Close()

	clock := clockwork.NewFakeClock()
	c := testFeedClient(clock)

	_, err := c.Get(context.Background(), "failing", srv.URL, nil)
	require.Error(t, err)

	body, err := c.Get(context.Background(), "healthy", okSrv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestClassify_FirstMatchingRuleWins(t *testing.T) {
	rules := []KeywordRule{
		{[]string{"red", "extreme"}, domain.SeveritySevere},
		{[]string{"orange"}, domain.SeverityModerate},
	}
	assert.Equal(t, domain.SeveritySevere, classify("red and orange warning", rules, domain.SeverityMinor))
	assert.Equal(t, domain.SeverityModerate, classify("orange alert", rules, domain.SeverityMinor))
	assert.Equal(t, domain.SeverityMinor, classify("no keywords here", rules, domain.SeverityMinor))
}

func newSeen() *state.SeenSet {
	return state.NewSeenSet(nil, state.MaxSeenIDs)
}
