package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"isomero/internal/api"
	"isomero/internal/bot"
	"isomero/internal/cache"
	"isomero/internal/config"
	"isomero/internal/database"
	"isomero/internal/events"
	"isomero/internal/google"
	"isomero/internal/hours"
	"isomero/internal/livestatus"
	"isomero/internal/metrics"
	"isomero/internal/model"
	"isomero/internal/store"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("ISOMERO_CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	tz := cfg.TimeLocation()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *database.DB
	if cfg.Store.Source != config.SourceFile {
		db, err = database.NewDB(cfg.Database.Path, tz, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("open db error")
		}
		defer db.Close()
	}

	bus := events.NewEventBus()
	watcher := config.NewHoursWatcher(cfg.Store.HoursPath, cfg.HoursWatchInterval(), bus, logger)

	source, err := buildSource(ctx, cfg, db, watcher.Current, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up schedule source")
	}

	holder := store.NewHolder()
	refresher := store.NewRefresher(source, holder, bus, store.RefresherConfig{
		PastDays:   cfg.Store.PastDays,
		FutureDays: cfg.Store.FutureDays,
		Interval:   cfg.StoreRefreshInterval(),
		Location:   tz,
	}, logger)

	bus.Subscribe(events.TypeHoursConfigChanged, func(e events.Event) error {
		if e.Payload["result"] == config.HoursApplied {
			refresher.Trigger()
		}
		return nil
	})
	if err := watcher.Start(ctx); err != nil {
		if cfg.Store.Source == config.SourceFile || cfg.Store.SeedFromHours {
			logger.Fatal().Err(err).Msg("failed to load hours config")
		}
		logger.Warn().Err(err).Msg("Hours config not loaded; location names unavailable")
	}
	locationName := func(loc model.Location) string {
		if hcfg := watcher.Current(); hcfg != nil {
			return hcfg.LocationName(loc)
		}
		return loc.String()
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	monthCache := cache.NewMonthCache(rdb, cfg.CacheTTL())

	resolver := hours.NewResolver(logger)
	liveService := livestatus.NewService(resolver)

	monitor := livestatus.NewMonitor(livestatus.MonitorConfig{
		CheckInterval: cfg.LiveStatusInterval(),
		Location:      tz,
	}, liveService, holder, logger)
	monitor.Track(model.DefaultLocations...)
	monitor.OnChange(func(loc model.Location, status model.LiveStatus) {
		logger.Info().Str("location", loc.String()).Bool("open", status.IsOpen).Msg("Location status changed")
	})
	bus.Subscribe(events.TypeSnapshotReloaded, func(events.Event) error {
		if snap, err := holder.Current(); err == nil {
			monitor.Track(snap.Locations...)
		}
		monitor.Trigger()
		return nil
	})
	if err := refresher.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("Initial schedule load failed; will retry")
	}
	go refresher.Run(ctx)

	go monitor.Start(ctx)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}
	if cfg.Monitoring.HealthCheckPort != 0 {
		go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, holder, &logger)
	}

	if db != nil {
		backups := database.NewBackupService(db, database.BackupConfig{
			Enabled:       cfg.Backup.Enabled,
			Interval:      time.Duration(cfg.Backup.IntervalHours) * time.Hour,
			StoragePath:   cfg.Backup.Path,
			RetentionDays: cfg.Backup.RetentionDays,
		}, &logger)
		go backups.Start(ctx)
	}

	defaultLocation, _ := model.ParseLocation(cfg.LiveStatus.DefaultLocation)

	if cfg.Telegram.Enabled {
		if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
			logger.Fatal().Msg("set telegram.bot_token in config")
		}
		b, err := bot.New(cfg.Telegram.BotToken, cfg.Telegram.Debug, holder, resolver, bot.Options{
			DefaultLocation: defaultLocation,
			LocationName:    locationName,
			TimeLocation:    tz,
		}, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("create bot error")
		}
		go b.Start(ctx)
	}

	server := api.NewHTTPServer(api.Config{
		Port:            cfg.HTTP.Port,
		RateLimitRPS:    cfg.HTTP.RateLimitRPS,
		RateLimitBurst:  cfg.HTTP.RateLimitBurst,
		DefaultLocation: defaultLocation,
		LocationName:    locationName,
		TimeLocation:    tz,
	}, holder, resolver, monthCache, logger)

	logger.Info().Str("source", source.Name()).Str("timezone", tz.String()).Msg("Isomero started")
	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("API server error")
	}
	monitor.Stop()
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Console {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// buildSource picks the primary schedule source. Sheets falls back to the
// local database when the spreadsheet cannot be read. With seed_from_hours
// the database is resynced from hours.yaml on every load.
func buildSource(ctx context.Context, cfg *config.Config, db *database.DB, hoursCfg func() *config.HoursConfig, logger zerolog.Logger) (store.Source, error) {
	tz := cfg.TimeLocation()
	if cfg.Store.Source == config.SourceFile {
		return store.NewFileSource(cfg.Store.HoursPath, tz), nil
	}
	if db == nil {
		return nil, errors.New("database-backed source requires a database")
	}
	var local store.Source = db
	if cfg.Store.SeedFromHours {
		local = database.NewSeededSource(db, hoursCfg)
	}

	switch cfg.Store.Source {
	case config.SourceSheets:
		sheetsSource, err := google.NewSheetsSource(ctx, google.SheetsConfig{
			CredentialsFile: cfg.Google.CredentialsFile,
			SpreadsheetID:   cfg.Google.SpreadsheetID,
			SchedulesRange:  cfg.Google.SchedulesRange,
			ExceptionsRange: cfg.Google.ExceptionsRange,
			Location:        tz,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store.NewFailoverSource(sheetsSource, local, cfg.FailoverRetry(), &logger), nil
	case config.SourceSQLite:
		return local, nil
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Store.Source)
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, holder *store.Holder, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !holder.Ready() {
			http.Error(w, "schedule not loaded", http.StatusServiceUnavailable)
			return
		}
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(ctxPing); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
