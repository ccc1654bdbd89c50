package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/hazard-alert-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-alert-service/internal/adapter/sqlite"
	"github.com/couchcryptid/hazard-alert-service/internal/config"
	"github.com/couchcryptid/hazard-alert-service/internal/feed"
	"github.com/couchcryptid/hazard-alert-service/internal/notify"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
	"github.com/couchcryptid/hazard-alert-service/internal/runner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	store, err := sqlite.Open(cfg.StateDBPath)
	if err != nil {
		logger.Error("failed to open state db", "path", cfg.StateDBPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Seed the settings record from the YAML file on first boot only; a
	// record written by a previous run wins over the file.
	if cfg.LocationsFile != "" {
		if err := seedSettings(ctx, store, cfg.LocationsFile, logger); err != nil {
			logger.Error("failed to seed settings", "file", cfg.LocationsFile, "error", err)
			os.Exit(1)
		}
	}

	// Notification sink (feature-flagged via KAFKA_ENABLED).
	var sink notify.Sink
	var kafkaNotifier *kafkaadapter.Notifier
	if cfg.KafkaEnabled {
		kafkaNotifier = kafkaadapter.NewNotifier(cfg, logger)
		sink = kafkaNotifier
		logger.Info("kafka notifications enabled", "topic", cfg.KafkaNotifyTopic, "brokers", cfg.KafkaBrokers)
	} else {
		sink = notify.NewLogSink(logger)
		logger.Info("kafka notifications disabled, logging notifications")
	}

	client := feed.NewClient(cfg.FetchTimeout, logger, metrics, clock)
	adapters := []feed.Adapter{
		feed.NewUSGS(client, logger),
		feed.NewGeoNet(client, logger),
		feed.NewNWS(client, logger),
		feed.NewNHC(client, logger),
		feed.NewMetService(client, logger),
		feed.NewMeteoAlarm(client, logger),
		feed.NewNAAD(client, logger),
		feed.NewINMET(client, logger),
		feed.NewMeteoChile(client, logger),
		feed.NewSMN(client, logger, cfg.DetailFetchConcurrency),
	}

	badge := &notify.BadgeKeeper{}
	dispatcher := notify.NewDispatcher(sink, logger, metrics, clock)
	r := runner.New(adapters, store, dispatcher, badge, logger, metrics, clock, cfg.CheckInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, r, badge, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := r.Run(ctx); err != nil {
			logger.Error("aggregation loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			logger.Error("kafka notifier close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("state db close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func seedSettings(ctx context.Context, store *sqlite.Store, path string, logger *slog.Logger) error {
	has, err := store.HasSettings(ctx)
	if err != nil {
		return err
	}
	if has {
		logger.Info("settings record exists, ignoring seed file", "file", path)
		return nil
	}

	settings, err := config.LoadSettingsFile(path)
	if err != nil {
		return err
	}
	if err := store.SaveSettings(ctx, settings); err != nil {
		return err
	}
	logger.Info("settings seeded", "file", path, "cities", len(settings.Cities))
	return nil
}
