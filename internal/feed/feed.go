// Package feed implements the source adapters that turn heterogeneous
// hazard feeds into canonical alerts.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
	"github.com/couchcryptid/hazard-alert-service/internal/state"
)

// Adapter is the common contract for one external hazard source. Fetch
// filters the locations to the source's coverage before any network I/O,
// consults the shared seen set so an event is scored at most once per run,
// and produces at most one alert per raw event: the first location in list
// order that scores above info wins. A transport or parse failure yields
// whatever alerts were accumulated plus an error for logging; it never
// aborts the run.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, locations []domain.Location, seen *state.SeenSet) ([]domain.Alert, error)
}

// Cooldown windows applied after failed fetches. Auth and quota errors back
// off much longer than transient transport errors.
const (
	hardCooldown = 30 * time.Minute
	softCooldown = 5 * time.Minute
)

// Client performs feed HTTP fetches with a per-request timeout, per-source
// failure cooldowns, and fetch metrics. All adapters share one Client so
// cooldown state is global to the run loop.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock

	mu        sync.Mutex
	cooldowns map[string]time.Time
}

// NewClient creates a feed client. The timeout bounds each individual
// fetch so one unresponsive source cannot stall a run past the next
// scheduled trigger.
func NewClient(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
		clock:      clock,
		cooldowns:  make(map[string]time.Time),
	}
}

// Now exposes the injected clock to adapters for event-time fallbacks.
func (c *Client) Now() time.Time {
	return c.clock.Now()
}

// Get fetches a URL on behalf of the named source. A source inside its
// cooldown window is skipped without network I/O. Non-2xx responses and
// transport errors arm a cooldown scaled to the failure class.
func (c *Client) Get(ctx context.Context, source, url string, headers map[string]string) ([]byte, error) {
	if until, cooling := c.coolingDown(source); cooling {
		c.metrics.CooldownSkips.WithLabelValues(source).Inc()
		return nil, fmt.Errorf("%s cooling down until %s", source, until.Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchDuration.WithLabelValues(source).Observe(c.clock.Since(start).Seconds())
	if err != nil {
		c.fail(source, softCooldown)
		return nil, fmt.Errorf("%s fetch: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse
		c.fail(source, cooldownFor(resp.StatusCode))
		return nil, fmt.Errorf("%s returned status %d", source, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.fail(source, softCooldown)
		return nil, fmt.Errorf("%s read body: %w", source, err)
	}

	c.clear(source)
	return body, nil
}

func cooldownFor(status int) time.Duration {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return hardCooldown
	default:
		return softCooldown
	}
}

func (c *Client) coolingDown(source string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.cooldowns[source]
	if !ok || c.clock.Now().After(until) {
		return time.Time{}, false
	}
	return until, true
}

func (c *Client) fail(source string, window time.Duration) {
	c.metrics.FetchErrors.WithLabelValues(source).Inc()
	c.mu.Lock()
	c.cooldowns[source] = c.clock.Now().Add(window)
	c.mu.Unlock()
}

func (c *Client) clear(source string) {
	c.mu.Lock()
	delete(c.cooldowns, source)
	c.mu.Unlock()
}
