package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"otkaz/internal/advice"
	"otkaz/internal/amqp"
	"otkaz/internal/backend"
	"otkaz/internal/cache"
	"otkaz/internal/config"
	"otkaz/internal/core"
	applog "otkaz/internal/log"
	"otkaz/internal/publisher"
	"otkaz/internal/services"
	"otkaz/internal/storage"
)

const adviceCacheSize = 64

// AppOptions select the optional integrations a binary wants.
type AppOptions struct {
	// UseAMQP routes remote pushes through the queue when AMQP_URL is set.
	UseAMQP bool
	// UseMQTT publishes the streak state when MQTT_BROKER is set.
	UseMQTT bool
	// UseAdvice builds the Gemini-backed advice requester.
	UseAdvice bool
}

// App is the wired object graph shared by the binaries.
type App struct {
	Config  *config.Config
	Logger  *applog.Logger
	Local   *storage.SQLiteRepository
	Remote  *backend.BackendResult
	Sync    *services.SyncAdapter
	Stats   *services.StatsService
	Advice  *advice.Requester
	Catalog core.Catalog
	Start   time.Time
	Caches  *cache.Manager

	// nil unless enabled and configured
	AMQP *amqp.Client
	MQTT *publisher.Publisher
}

// NewApp opens the stores and wires the services described by cfg. On
// failure everything opened so far is released.
func NewApp(ctx context.Context, logger *applog.Logger, cfg *config.Config, opts AppOptions) (*App, error) {
	app := &App{Config: cfg, Logger: logger, Caches: cache.NewManager()}
	if err := app.wire(ctx, opts); err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	return app, nil
}

func (app *App) wire(ctx context.Context, opts AppOptions) error {
	cfg, logger := app.Config, app.Logger

	var err error
	if app.Catalog, err = config.LoadCatalog(cfg.TriggersFile); err != nil {
		return err
	}
	if app.Start, err = cfg.DefaultStart(); err != nil {
		return fmt.Errorf("parse default start date: %w", err)
	}

	if app.Local, err = storage.NewSQLiteRepository(cfg.SQLiteDBPath); err != nil {
		return fmt.Errorf("open local store: %w", err)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if app.Remote, err = backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg); err != nil {
		return err
	}

	var pusher services.Pusher
	if opts.UseAMQP && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// pushes fall back to in-process writes
			logger.Warn("Failed to initialize AMQP client, pushing in-process", "error", err)
		} else {
			app.AMQP = client
			pusher = client
			logger.Info("Remote pushes go through AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	app.Sync = services.NewSyncAdapter(app.Local, app.Remote.Remote, pusher, services.SyncConfig{
		Policy:      services.MergePolicy(cfg.MergePolicy),
		Ceiling:     cfg.RemoteCeiling,
		PushTimeout: cfg.PushTimeout,
	})

	if opts.UseMQTT && cfg.MQTTBroker != "" {
		pub, err := publisher.New(publisher.Config{
			Broker:      cfg.MQTTBroker,
			TopicPrefix: cfg.MQTTTopicPrefix,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
		}, app.Catalog, app.Start)
		if err != nil {
			// the state topic is optional
			logger.Warn("MQTT publisher disabled", "error", err, "broker", cfg.MQTTBroker)
		} else {
			app.MQTT = pub
			app.Sync.AddObserver(pub)
			logger.Info("Publishing state over MQTT", "topic", pub.Topic())
		}
	}

	app.Stats = services.NewStatsService(app.Sync, app.Sync, app.Catalog, app.Start)

	if opts.UseAdvice {
		app.Advice = newAdvice(ctx, logger, cfg, app.Caches)
	}
	return nil
}

func newAdvice(ctx context.Context, logger *applog.Logger, cfg *config.Config, caches *cache.Manager) *advice.Requester {
	key := cfg.GeminiAPIKey
	if key == "" {
		key = advice.BuildAPIKey
	}
	if key == "" {
		logger.Warn("No Gemini API key configured, SOS answers with a fixed message")
		return advice.NewRequester(nil, nil)
	}

	gen, err := advice.NewGemini(ctx, key, cfg.GeminiModel)
	if err != nil {
		logger.Warn("Gemini client unavailable", "error", err)
		return advice.NewRequester(nil, nil)
	}

	var c cache.Cache[string]
	if cfg.AdviceCacheTTL > 0 {
		lru := cache.NewLRUCache[string](adviceCacheSize, cfg.AdviceCacheTTL)
		caches.Register("advice", lru)
		c = lru
	}
	logger.Info("Advice enabled", "model", gen.Model(), "cache_ttl", cfg.AdviceCacheTTL)
	return advice.NewRequester(gen, c)
}

// CloudEnabled reports whether a remote store is configured and the host
// can reach it.
func (a *App) CloudEnabled() bool {
	return a.Remote != nil && a.Remote.Capabilities.CloudStorage && a.Config.RemoteBackend != config.RemoteNone
}

// Close waits for pending pushes and releases connections and the local
// store.
func (a *App) Close(ctx context.Context) error {
	if a.Sync != nil {
		a.Sync.Wait()
	}
	if a.Caches != nil {
		a.Caches.Stop()
	}
	if a.MQTT != nil {
		a.MQTT.Close()
	}

	var errs []error
	if a.AMQP != nil {
		errs = append(errs, a.AMQP.Close())
	}
	if a.Remote != nil && a.Remote.Cleanup != nil {
		errs = append(errs, a.Remote.Cleanup())
	}
	if a.Local != nil {
		errs = append(errs, a.Local.Close())
	}
	return errors.Join(errs...)
}
