package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/cuemby/portal/pkg/cache"
	"github.com/cuemby/portal/pkg/config"
	"github.com/cuemby/portal/pkg/events"
	"github.com/cuemby/portal/pkg/log"
	"github.com/cuemby/portal/pkg/portal"
	"github.com/cuemby/portal/pkg/registry"
	"github.com/cuemby/portal/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// app holds the components every command needs
type app struct {
	store    *storage.BoltStore
	cache    *cache.Cache
	svc      *portal.Service
	broker   *events.Broker
	notifier *cache.RedisNotifier
	redis    *redis.Client
	retry    portal.RetryPolicy
}

func openApp(cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	a := &app{
		store:  store,
		broker: events.NewBroker(),
		retry:  portal.RetryPolicy{MaxRetries: cfg.Retry.MaxRetries, BaseDelay: cfg.Retry.BaseDelay},
	}

	opts := []cache.Option{cache.WithSize(cfg.Cache.Size)}
	if cfg.Redis.Enabled() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.notifier = cache.NewRedisNotifier(a.redis, cfg.Redis.Channel)
		opts = append(opts, cache.WithNotifier(a.notifier))
	}

	a.cache, err = cache.New(store, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	reg := registry.New()
	for _, p := range widgetProviders(cfg.Registry.Widgets) {
		if err := reg.RegisterProvider(p); err != nil {
			logger := log.WithComponent("registry")
			logger.Warn().Err(err).Str("provider", p.Name()).Msg("Widget provider disabled")
		}
	}

	a.broker.Start()
	a.svc = portal.NewService(store, a.cache,
		portal.WithRegistry(reg, cfg.Registry.ValidateNames),
		portal.WithBroker(a.broker),
	)
	return a, nil
}

// Close releases everything openApp acquired
func (a *app) Close() {
	a.broker.Stop()
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Errorf("Failed to stop cache notifier", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.store.Close(); err != nil {
		log.Errorf("Failed to close store", err)
	}
}

// withApp opens the app for the duration of fn
func withApp(fn func(a *app) error) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// widgetProvider serves widget entries from the config file
type widgetProvider struct {
	name    string
	widgets map[string]registry.Descriptor
}

func (p widgetProvider) Name() string                            { return p.name }
func (p widgetProvider) Widgets() map[string]registry.Descriptor { return p.widgets }

func widgetProviders(widgets []config.WidgetConfig) []registry.Provider {
	byName := make(map[string]widgetProvider)
	for _, w := range widgets {
		provider := w.Provider
		if provider == "" {
			provider = "config"
		}
		p, ok := byName[provider]
		if !ok {
			p = widgetProvider{name: provider, widgets: make(map[string]registry.Descriptor)}
			byName[provider] = p
		}
		p.widgets[w.Name] = registry.Descriptor{
			Title:       w.Title,
			Description: w.Description,
			Category:    w.Category,
			Locations:   w.Locations,
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	providers := make([]registry.Provider, 0, len(names))
	for _, name := range names {
		providers = append(providers, byName[name])
	}
	return providers
}
