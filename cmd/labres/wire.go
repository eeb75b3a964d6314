package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/example/lab-resource-manager/internal/application"
	"github.com/example/lab-resource-manager/internal/calendar"
	"github.com/example/lab-resource-manager/internal/calendar/google"
	"github.com/example/lab-resource-manager/internal/config"
	"github.com/example/lab-resource-manager/internal/logging"
	"github.com/example/lab-resource-manager/internal/metrics"
	"github.com/example/lab-resource-manager/internal/notify"
	"github.com/example/lab-resource-manager/internal/persistence"
	"github.com/example/lab-resource-manager/internal/persistence/jsonfile"
	"github.com/example/lab-resource-manager/internal/persistence/sqlite"
)

// app holds the adapters shared by every command.
type app struct {
	cfg        config.Config
	catalog    *config.ResourceConfig
	logger     *slog.Logger
	usages     *calendar.Repository
	identities persistence.IdentityLinkRepository
	access     *calendar.AccessService
	registry   *prometheus.Registry
	metrics    *metrics.Collector
	closers    []io.Closer
}

func wireApp(ctx context.Context, v *viper.Viper, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logOut, cfg.LogLevel)

	catalog, err := config.LoadResources(cfg.ResourceConfigPath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		catalog:    catalog,
		logger:     logger,
		identities: jsonfile.NewIdentityLinkRepository(cfg.IdentityLinksFile),
		registry:   prometheus.NewRegistry(),
	}
	a.metrics = metrics.NewCollector(a.registry)

	var (
		client         calendar.Client
		mapping        calendar.Mapping
		serviceAccount string
	)
	switch cfg.CalendarBackend {
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLitePath), cfg.ServiceAccountEmail)
		if err != nil {
			return nil, fmt.Errorf("open local calendar: %w", err)
		}
		a.closers = append(a.closers, store)
		client, mapping, serviceAccount = store, store, store.Creator()
	default:
		gc, err := google.NewFromKeyFile(ctx, cfg.ServiceAccountKeyPath)
		if err != nil {
			return nil, err
		}
		serviceAccount = cfg.ServiceAccountEmail
		if serviceAccount == "" {
			if serviceAccount, err = google.ServiceAccountEmail(cfg.ServiceAccountKeyPath); err != nil {
				return nil, err
			}
		}
		client, mapping = gc, calendar.NewIDMapper(cfg.CalendarMappingsFile)
	}

	a.usages = calendar.NewRepository(client, catalog, mapping, serviceAccount, calendar.WithLogger(logger))
	a.access = calendar.NewAccessService(client, catalog)

	logger.Info("configuration loaded",
		"backend", cfg.CalendarBackend,
		"servers", len(catalog.Servers),
		"rooms", len(catalog.Rooms),
		"polling_interval", cfg.PollingInterval.String(),
	)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (a *app) changeNotifier(ctx context.Context) (*application.ChangeNotifier, error) {
	router := notify.NewRouter(a.catalog, a.identities, notify.WithRouterLogger(a.logger))
	return application.NewChangeNotifier(ctx, a.usages, router,
		application.WithPollObserver(a.metrics),
		application.WithNotifierLogger(a.logger),
	)
}
