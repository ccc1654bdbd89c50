// Package runner drives the periodic aggregation loop: load state, fan out
// to the feed adapters, merge and notify, persist, update the badge.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/feed"
	"github.com/couchcryptid/hazard-alert-service/internal/notify"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
	"github.com/couchcryptid/hazard-alert-service/internal/state"
)

// Runner owns the aggregation cycle. Check is single-flight: a trigger that
// arrives while a run is executing is dropped, never queued, so a slow
// source can not pile up overlapping runs.
type Runner struct {
	adapters   []feed.Adapter
	store      state.Store
	dispatcher *notify.Dispatcher
	badge      *notify.BadgeKeeper
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock
	interval   time.Duration

	running atomic.Bool
	ready   atomic.Bool

	mu        sync.RWMutex
	lastRun   time.Time
	lastCount int
	alerts    []domain.Alert
}

// New creates a Runner over the given adapters and state store.
func New(
	adapters []feed.Adapter,
	store state.Store,
	dispatcher *notify.Dispatcher,
	badge *notify.BadgeKeeper,
	logger *slog.Logger,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	interval time.Duration,
) *Runner {
	return &Runner{
		adapters:   adapters,
		store:      store,
		dispatcher: dispatcher,
		badge:      badge,
		logger:     logger,
		metrics:    metrics,
		clock:      clock,
		interval:   interval,
	}
}

// CheckReadiness returns nil once at least one aggregation run has
// completed, successfully or not.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no aggregation run has completed yet")
	}
	return nil
}

// Run executes Check on the configured interval until the context is
// cancelled. The first check fires immediately.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("aggregation loop started", "interval", r.interval)

	r.Check(ctx)
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("aggregation loop stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			r.Check(ctx)
		}
	}
}

// Check performs one aggregation run. It returns false when the run was
// skipped because another was already in flight.
func (r *Runner) Check(ctx context.Context) bool {
	if !r.running.CompareAndSwap(false, true) {
		r.metrics.RunsSkipped.Inc()
		r.logger.Warn("run already in flight, skipping trigger")
		return false
	}
	defer r.running.Store(false)

	r.metrics.RunsTotal.Inc()
	r.metrics.RunInFlight.Set(1)
	defer r.metrics.RunInFlight.Set(0)
	defer r.ready.Store(true)

	start := r.clock.Now()
	if err := r.check(ctx); err != nil {
		r.metrics.RunsFailed.Inc()
		r.logger.Error("aggregation run failed", "error", err)
	}
	r.metrics.RunDuration.Observe(r.clock.Since(start).Seconds())
	return true
}

func (r *Runner) check(ctx context.Context) error {
	st, err := r.store.Load(ctx)
	if err != nil {
		return err
	}

	if !st.Settings.Enabled() {
		r.logger.Debug("alerts disabled, clearing badge")
		r.badge.Clear()
		r.publish(nil, r.clock.Now())
		return nil
	}

	locations := st.Settings.ActiveLocations()
	if len(locations) == 0 {
		r.logger.Debug("no active locations, clearing badge")
		r.badge.Clear()
		r.publish(nil, r.clock.Now())
		return nil
	}

	fresh := r.fanOut(ctx, locations, st.Seen)
	now := r.clock.Now()

	st.Active = state.MergeAlerts(st.Active, fresh, now)
	r.metrics.ActiveAlerts.Set(float64(len(st.Active)))

	// Notify before saving so the notified keys land in the same write as
	// the seen ids and merged alerts.
	r.dispatcher.Dispatch(ctx, fresh, st.Notified)

	if err := r.store.Save(ctx, st); err != nil {
		return err
	}

	r.badge.Set(notify.Summarize(state.RecentAlerts(st.Active, now)))
	r.publish(st.Active, now)

	if len(fresh) > 0 {
		r.logger.Info("aggregation run produced alerts",
			"new", len(fresh), "active", len(st.Active))
	}
	return nil
}

// fanOut runs every adapter concurrently against the shared seen set. An
// adapter error is logged and its partial results kept; one broken source
// never hides the others.
func (r *Runner) fanOut(ctx context.Context, locations []domain.Location, seen *state.SeenSet) []domain.Alert {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	var fresh []domain.Alert

	for _, adapter := range r.adapters {
		wg.Add(1)
		go func(a feed.Adapter) {
			defer wg.Done()
			alerts, err := a.Fetch(ctx, locations, seen)
			if err != nil {
				r.logger.Warn("feed fetch failed", "source", a.Name(), "error", err)
			}
			if len(alerts) > 0 {
				mu.Lock()
				fresh = append(fresh, alerts...)
				mu.Unlock()
			}
		}(adapter)
	}
	wg.Wait()
	return fresh
}

func (r *Runner) publish(alerts []domain.Alert, now time.Time) {
	r.mu.Lock()
	r.alerts = alerts
	r.lastRun = now
	r.lastCount = len(alerts)
	r.mu.Unlock()
}

// Alerts returns the active alert set from the last completed run.
func (r *Runner) Alerts() []domain.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

// LastRun reports when the last run finished and how many alerts it held.
func (r *Runner) LastRun() (time.Time, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastRun, r.lastCount
}

// ClearAlerts empties the active alert set and badge, persisting the
// cleared state. Seen ids and notified keys are kept so cleared events do
// not immediately re-alert.
func (r *Runner) ClearAlerts(ctx context.Context) error {
	st, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	st.Active = nil
	if err := r.store.Save(ctx, st); err != nil {
		return err
	}

	r.badge.Clear()
	r.publish(nil, r.clock.Now())
	r.metrics.ActiveAlerts.Set(0)
	return nil
}
